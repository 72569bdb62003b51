package plugin

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	tferrors "github.com/alexisbeaulieu97/tableflow/pkg/errors"
)

// Factory builds a plugin instance from its configuration.
type Factory func(cfg Config) (Plugin, error)

// Registry maps plugin names to factories. Names are case-insensitive.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	names     map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		names:     make(map[string]string),
	}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, f Factory) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("plugin name is required")
	}
	if f == nil {
		return tferrors.NewPluginError(name, fmt.Errorf("factory is nil"))
	}

	key := strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[key]; exists {
		return tferrors.NewPluginError(name, fmt.Errorf("plugin already registered"))
	}
	r.factories[key] = f
	r.names[key] = name
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(name string, f Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[strings.ToLower(name)]
	if !ok {
		return nil, ErrPluginNotFound{Name: name}
	}
	return f, nil
}

// Names lists the registered plugin names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.names))
	for _, name := range r.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
