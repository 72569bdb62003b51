package plugin

import (
	"fmt"
	"strings"
)

// ErrPluginNotFound is returned when no factory is registered under a name.
type ErrPluginNotFound struct {
	Name string
}

func (e ErrPluginNotFound) Error() string {
	return fmt.Sprintf("plugin '%s' not found in registry\nHint: register a factory for it before loading", e.Name)
}

// ErrCircularDependency is returned when refresh dependencies form a cycle.
type ErrCircularDependency struct {
	Cycle []string
}

func (e ErrCircularDependency) Error() string {
	if len(e.Cycle) == 0 {
		return "circular dependency detected\nHint: review plugin dependencies to remove cycles"
	}

	sequence := append(append([]string{}, e.Cycle...), e.Cycle[0])
	return fmt.Sprintf(
		"circular dependency detected: %s\nHint: break the cycle by removing or refactoring one of the dependencies",
		strings.Join(sequence, " -> "),
	)
}

// ErrMissingDependency is returned when a declared dependency is not loaded.
type ErrMissingDependency struct {
	Plugin     string
	Dependency string
}

func (e ErrMissingDependency) Error() string {
	return fmt.Sprintf(
		"plugin '%s' declares dependency '%s' which is not loaded\nHint: add the dependency to the plugin list",
		e.Plugin,
		e.Dependency,
	)
}

// ErrDependencyFailed is returned for a plugin skipped because one of its
// dependencies failed to refresh.
type ErrDependencyFailed struct {
	Plugin     string
	Dependency string
	Err        error
}

func (e ErrDependencyFailed) Error() string {
	return fmt.Sprintf("plugin '%s' skipped: dependency '%s' failed: %v", e.Plugin, e.Dependency, e.Err)
}

func (e ErrDependencyFailed) Unwrap() error { return e.Err }
