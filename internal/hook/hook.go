// Package hook provides named interception points shared by the table host
// and its plugins.
//
// Each hook name has a mode. Veto hooks are synchronous checks around UI
// actions: callbacks run in registration order, a callback returning false
// cancels the default action and skips the rest, and a failing callback is
// logged without affecting the others. Pipeline hooks run cross-cutting steps
// in priority order, run their declared dependency hooks first, and stop at the
// first error, which is returned to the caller.
package hook

import (
	"context"
	"errors"
)

// Mode selects the execution semantics of a hook name.
type Mode int

const (
	// ModeVeto runs callbacks in registration order; false vetoes.
	ModeVeto Mode = iota
	// ModePipeline runs callbacks by priority; errors propagate.
	ModePipeline
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeVeto:
		return "veto"
	case ModePipeline:
		return "pipeline"
	default:
		return "unknown"
	}
}

// Standard hook names used by the edit flow.
const (
	BeforeEdit = "beforeEdit"
	AfterEdit  = "afterEdit"
	BeforeSave = "beforeSave"
	AfterSave  = "afterSave"
	OnKeydown  = "onKeydown"
	OnRender   = "onRender"
)

// DefaultPriority is used for pipeline callbacks registered without one.
const DefaultPriority = 10

// ErrHookCycle is returned when pipeline dependencies form a cycle.
var ErrHookCycle = errors.New("hook dependency cycle")

// Func is a hook callback. For veto hooks, returning the bool false cancels
// the default action; any other value means "no objection".
type Func func(ctx context.Context, args ...any) (any, error)

// Predicate adapts a boolean check into a Func.
func Predicate(fn func(ctx context.Context, args ...any) bool) Func {
	return func(ctx context.Context, args ...any) (any, error) {
		return fn(ctx, args...), nil
	}
}

// Observer adapts a callback with no opinion into a Func.
func Observer(fn func(ctx context.Context, args ...any)) Func {
	return func(ctx context.Context, args ...any) (any, error) {
		fn(ctx, args...)
		return nil, nil
	}
}

// Result summarizes one Execute call.
type Result struct {
	// Vetoed is true when a veto callback returned false.
	Vetoed bool
	// VetoedBy is the label of the vetoing callback.
	VetoedBy string
	// Values holds the return value of every callback that ran.
	Values []any
}

// Option configures a registration.
type Option func(*registration)

// WithPriority sets the pipeline priority (lower runs earlier).
func WithPriority(priority int) Option {
	return func(r *registration) { r.priority = priority }
}

// WithDependencies names hooks that run before this callback; their results
// are appended to the callback's arguments.
func WithDependencies(names ...string) Option {
	return func(r *registration) { r.dependencies = append(r.dependencies, names...) }
}

// WithLabel names the callback in logs and errors.
func WithLabel(label string) Option {
	return func(r *registration) { r.label = label }
}

type registration struct {
	id           int
	label        string
	fn           Func
	priority     int
	dependencies []string
}
