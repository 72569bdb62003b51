package hook

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/alexisbeaulieu97/tableflow/internal/logger"
	tferrors "github.com/alexisbeaulieu97/tableflow/pkg/errors"
)

// Manager holds hook registrations by name.
type Manager struct {
	mu     sync.RWMutex
	modes  map[string]Mode
	hooks  map[string][]*registration
	nextID int
	logger *logger.Logger
}

// NewManager returns a manager with the standard edit-flow hooks defined as
// veto hooks.
func NewManager(log *logger.Logger) *Manager {
	m := &Manager{
		modes:  make(map[string]Mode),
		hooks:  make(map[string][]*registration),
		logger: log,
	}
	for _, name := range []string{BeforeEdit, AfterEdit, BeforeSave, AfterSave, OnKeydown, OnRender} {
		m.modes[name] = ModeVeto
	}
	return m
}

// Define sets the mode of a hook name. Redefining keeps existing callbacks.
func (m *Manager) Define(name string, mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modes[name] = mode
}

// Mode returns the mode of name; undefined names are veto hooks.
func (m *Manager) Mode(name string) Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.modes[name]
}

// Register adds fn under name and returns a function removing exactly this
// registration. Registering on an undefined name defines it as a veto hook.
func (m *Manager) Register(name string, fn Func, opts ...Option) func() {
	if fn == nil {
		return func() {}
	}
	reg := &registration{fn: fn, priority: DefaultPriority}
	for _, opt := range opts {
		opt(reg)
	}

	m.mu.Lock()
	m.nextID++
	reg.id = m.nextID
	if reg.label == "" {
		reg.label = fmt.Sprintf("%s#%d", name, reg.id)
	}
	if _, ok := m.modes[name]; !ok {
		m.modes[name] = ModeVeto
	}
	m.hooks[name] = append(m.hooks[name], reg)
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { m.remove(name, reg.id) })
	}
}

// Count returns the number of callbacks registered under name.
func (m *Manager) Count(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hooks[name])
}

// Clear drops every registration but keeps mode definitions.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = make(map[string][]*registration)
}

// Allowed runs a veto hook and reports whether the default action may
// proceed.
func (m *Manager) Allowed(ctx context.Context, name string, args ...any) bool {
	res, err := m.Execute(ctx, name, args...)
	return err == nil && !res.Vetoed
}

// Execute runs the callbacks registered under name according to its mode.
func (m *Manager) Execute(ctx context.Context, name string, args ...any) (Result, error) {
	return m.execute(ctx, name, map[string]bool{}, args)
}

func (m *Manager) execute(ctx context.Context, name string, active map[string]bool, args []any) (Result, error) {
	m.mu.RLock()
	mode := m.modes[name]
	regs := append([]*registration(nil), m.hooks[name]...)
	m.mu.RUnlock()

	if mode == ModePipeline {
		return m.runPipeline(ctx, name, regs, active, args)
	}
	return m.runVeto(ctx, name, regs, args), nil
}

func (m *Manager) runVeto(ctx context.Context, name string, regs []*registration, args []any) Result {
	var res Result
	for _, reg := range regs {
		value, err := call(ctx, reg, args)
		if err != nil {
			m.logger.WithFields(map[string]any{"hook": name, "callback": reg.label}).Error(err, "hook callback failed")
			continue
		}
		res.Values = append(res.Values, value)
		if veto, ok := value.(bool); ok && !veto {
			res.Vetoed = true
			res.VetoedBy = reg.label
			return res
		}
	}
	return res
}

func (m *Manager) runPipeline(ctx context.Context, name string, regs []*registration, active map[string]bool, args []any) (Result, error) {
	if active[name] {
		return Result{}, tferrors.NewHookError(name, "", ErrHookCycle)
	}
	active[name] = true
	defer delete(active, name)

	sort.SliceStable(regs, func(i, j int) bool { return regs[i].priority < regs[j].priority })

	var res Result
	for _, reg := range regs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		callArgs := append([]any(nil), args...)
		for _, dep := range reg.dependencies {
			depRes, err := m.execute(ctx, dep, active, args)
			if err != nil {
				return res, err
			}
			callArgs = append(callArgs, depRes.Values)
		}

		value, err := call(ctx, reg, callArgs)
		if err != nil {
			return res, tferrors.NewHookError(name, reg.label, err)
		}
		res.Values = append(res.Values, value)
	}
	return res, nil
}

func (m *Manager) remove(name string, id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	regs := m.hooks[name]
	for i, reg := range regs {
		if reg.id == id {
			m.hooks[name] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

func call(ctx context.Context, reg *registration, args []any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("callback panicked: %v", r)
		}
	}()
	return reg.fn(ctx, args...)
}
