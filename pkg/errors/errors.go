package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingTableID is returned when the host is constructed without a table id.
	ErrMissingTableID = errors.New("table id is required")
	// ErrTableNotFound is returned when no element carries the configured id.
	ErrTableNotFound = errors.New("table element not found")
	// ErrNotATable is returned when the id resolves to a non-table element.
	ErrNotATable = errors.New("element is not a table")
	// ErrNoPluginsLoaded is returned when plugins were requested but none loaded.
	ErrNoPluginsLoaded = errors.New("no plugins could be loaded")
)

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures configuration validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// HostError is a structural failure of the table host. The table is unusable
// when one of these is returned.
type HostError struct {
	Op  string
	Err error
}

// NewHostError constructs a HostError for the given operation.
func NewHostError(op string, err error) error {
	return &HostError{Op: op, Err: err}
}

func (e *HostError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("tableflow %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("tableflow: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *HostError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PluginError indicates issues within plugin registration, initialization or refresh.
type PluginError struct {
	Plugin  string
	Message string
	Err     error
}

// NewPluginError constructs a PluginError for the given plugin name.
func NewPluginError(plugin string, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &PluginError{Plugin: plugin, Message: message, Err: err}
}

func (e *PluginError) Error() string {
	if e == nil {
		return ""
	}
	if e.Plugin != "" {
		return fmt.Sprintf("plugin error [%s]: %s", e.Plugin, e.Message)
	}
	return fmt.Sprintf("plugin error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *PluginError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// HookError reports a failing pipeline hook callback.
type HookError struct {
	Hook  string
	Label string
	Err   error
}

// NewHookError constructs a HookError.
func NewHookError(hook, label string, err error) error {
	return &HookError{Hook: hook, Label: label, Err: err}
}

func (e *HookError) Error() string {
	if e == nil {
		return ""
	}
	if e.Label != "" {
		return fmt.Sprintf("hook error [%s/%s]: %v", e.Hook, e.Label, e.Err)
	}
	return fmt.Sprintf("hook error [%s]: %v", e.Hook, e.Err)
}

// Unwrap exposes the underlying error.
func (e *HookError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
