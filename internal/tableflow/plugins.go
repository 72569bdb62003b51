package tableflow

import (
	"context"
	"errors"
	"strings"

	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	tferrors "github.com/alexisbeaulieu97/tableflow/pkg/errors"
)

// LoadPlugins instantiates and initializes the plugins of spec. Dependencies
// requested in the same spec are initialized first; otherwise spec order is
// kept. Individual failures are logged and recorded on the plugin's entry.
// It fails only when plugins were requested and none loaded.
func (t *TableFlow) LoadPlugins(ctx context.Context, spec plugin.Spec) error {
	if t.table == nil {
		return tferrors.NewHostError("load plugins", errors.New("host is not initialized"))
	}

	requested := spec.Entries()
	attempted := 0
	pending := make([]*plugin.Entry, 0, len(requested))
	instances := make(map[string]plugin.Plugin, len(requested))

	for _, req := range requested {
		key := strings.ToLower(req.Name)
		if existing, ok := t.byName[key]; ok && existing.Loaded() {
			t.logger.With("plugin", req.Name).Warn("plugin already loaded")
			continue
		}

		attempted++
		entry := &plugin.Entry{Name: req.Name, Config: req.Config.Clone()}
		if t.opts.Debug {
			if _, set := entry.Config["debug"]; !set {
				entry.Config["debug"] = true
			}
		}
		t.record(entry)

		inst, err := t.instantiate(entry)
		if err != nil {
			t.fail(entry, err, "plugin could not be created")
			continue
		}
		entry.Dependencies = dependencies(inst, entry.Config)
		instances[key] = inst
		pending = append(pending, entry)
	}

	loaded := 0
	for _, entry := range initOrder(pending) {
		inst := instances[strings.ToLower(entry.Name)]
		err := guard(entry.Name, func() error { return inst.Init(ctx, t) })
		if err != nil {
			t.fail(entry, err, "plugin init failed")
			continue
		}
		entry.Instance = inst
		t.loaded = append(t.loaded, entry)
		loaded++
		t.logger.With("plugin", entry.Name).Debug("plugin loaded")
	}

	if attempted > 0 && loaded == 0 {
		return tferrors.NewHostError("load plugins", tferrors.ErrNoPluginsLoaded)
	}
	return nil
}

func (t *TableFlow) instantiate(entry *plugin.Entry) (inst plugin.Plugin, err error) {
	factory, err := t.factories.Lookup(entry.Name)
	if err != nil {
		return nil, err
	}
	err = guard(entry.Name, func() error {
		inst, err = factory(entry.Config)
		return err
	})
	if err == nil && inst == nil {
		err = tferrors.NewPluginError(entry.Name, errors.New("factory returned no plugin"))
	}
	return inst, err
}

// dependencies merges the plugin's declared dependencies with the ones listed
// under the "dependencies" config key.
func dependencies(inst plugin.Plugin, cfg plugin.Config) []string {
	var deps []string
	if d, ok := inst.(plugin.Dependent); ok {
		deps = append(deps, d.Dependencies()...)
	}
	for _, name := range cfg.Strings("dependencies") {
		dup := false
		for _, existing := range deps {
			if strings.EqualFold(existing, name) {
				dup = true
				break
			}
		}
		if !dup {
			deps = append(deps, name)
		}
	}
	return deps
}

func (t *TableFlow) record(entry *plugin.Entry) {
	key := strings.ToLower(entry.Name)
	if old, ok := t.byName[key]; ok {
		for i, e := range t.entries {
			if e == old {
				t.entries = append(t.entries[:i:i], t.entries[i+1:]...)
				break
			}
		}
	}
	t.entries = append(t.entries, entry)
	t.byName[key] = entry
}

func (t *TableFlow) fail(entry *plugin.Entry, err error, msg string) {
	entry.Err = err
	entry.Instance = nil
	fields := map[string]any{"plugin": entry.Name}
	if t.opts.PluginsPath != "" {
		fields["pluginsPath"] = t.opts.PluginsPath
	}
	t.logger.WithFields(fields).Error(err, msg)
}

// initOrder moves requested dependencies ahead of their dependents while
// keeping spec order otherwise. Cycles fall back to spec order.
func initOrder(entries []*plugin.Entry) []*plugin.Entry {
	byName := make(map[string]*plugin.Entry, len(entries))
	for _, e := range entries {
		byName[strings.ToLower(e.Name)] = e
	}

	ordered := make([]*plugin.Entry, 0, len(entries))
	state := make(map[string]int)
	var visit func(e *plugin.Entry)
	visit = func(e *plugin.Entry) {
		key := strings.ToLower(e.Name)
		if state[key] != 0 {
			return
		}
		state[key] = 1
		for _, dep := range e.Dependencies {
			if d, ok := byName[strings.ToLower(dep)]; ok {
				visit(d)
			}
		}
		state[key] = 2
		ordered = append(ordered, e)
	}
	for _, e := range entries {
		visit(e)
	}
	return ordered
}

// GetPlugin returns the loaded plugin registered under name, compared
// case-insensitively. Missing and failed plugins return nil.
func (t *TableFlow) GetPlugin(name string) plugin.Plugin {
	entry, ok := t.byName[strings.ToLower(name)]
	if !ok || !entry.Loaded() {
		return nil
	}
	return entry.Instance
}

// Loaded returns the loaded plugin instances in load order.
func (t *TableFlow) Loaded() []plugin.Plugin {
	var out []plugin.Plugin
	for _, e := range t.loaded {
		if e.Loaded() {
			out = append(out, e.Instance)
		}
	}
	return out
}

// Plugins returns the registration entries in request order, failed ones
// included.
func (t *TableFlow) Plugins() []plugin.Entry {
	out := make([]plugin.Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = *e
	}
	return out
}

// RefreshPlugins refreshes every loaded plugin once, dependencies first.
func (t *TableFlow) RefreshPlugins(ctx context.Context) plugin.RefreshReport {
	c := t.newRefreshCycle()
	for _, entry := range t.entries {
		if entry.Loaded() {
			c.refresh(ctx, strings.ToLower(entry.Name))
		}
	}
	return c.report()
}

// RefreshPlugin refreshes one plugin after its dependencies. Refreshing a
// plugin that is not loaded reports it as failed.
func (t *TableFlow) RefreshPlugin(ctx context.Context, name string) plugin.RefreshReport {
	c := t.newRefreshCycle()
	err := c.refresh(ctx, strings.ToLower(name))
	rep := c.report()
	if _, recorded := c.done[strings.ToLower(name)]; !recorded && err != nil {
		rep.Failed[name] = err
	}
	return rep
}

type refreshCycle struct {
	host  *TableFlow
	graph *plugin.DependencyGraph
	order []string
	done  map[string]error
}

func (t *TableFlow) newRefreshCycle() *refreshCycle {
	graph := plugin.NewDependencyGraph()
	for _, entry := range t.entries {
		if !entry.Loaded() {
			continue
		}
		name := strings.ToLower(entry.Name)
		graph.AddNode(name)
		for _, dep := range entry.Dependencies {
			graph.AddEdge(name, strings.ToLower(dep))
		}
	}
	return &refreshCycle{host: t, graph: graph, done: make(map[string]error)}
}

func (c *refreshCycle) refresh(ctx context.Context, key string) error {
	if err, ok := c.done[key]; ok {
		return err
	}

	entry, ok := c.host.byName[key]
	if !ok || !entry.Loaded() {
		return plugin.ErrPluginNotFound{Name: key}
	}

	if cycle := c.graph.CycleThrough(key); cycle != nil {
		return c.finish(entry, plugin.ErrCircularDependency{Cycle: cycle})
	}

	for _, dep := range entry.Dependencies {
		depKey := strings.ToLower(dep)
		if d, ok := c.host.byName[depKey]; !ok || !d.Loaded() {
			return c.finish(entry, plugin.ErrMissingDependency{Plugin: entry.Name, Dependency: dep})
		}
		if err := c.refresh(ctx, depKey); err != nil {
			return c.finish(entry, plugin.ErrDependencyFailed{Plugin: entry.Name, Dependency: dep, Err: err})
		}
	}

	if err := ctx.Err(); err != nil {
		return c.finish(entry, err)
	}

	var err error
	if r, ok := entry.Instance.(plugin.Refresher); ok {
		err = guard(entry.Name, func() error { return r.Refresh(ctx) })
	}
	return c.finish(entry, err)
}

func (c *refreshCycle) finish(entry *plugin.Entry, err error) error {
	key := strings.ToLower(entry.Name)
	c.done[key] = err
	c.order = append(c.order, entry.Name)
	if err != nil {
		c.host.logger.With("plugin", entry.Name).Error(err, "plugin refresh failed")
	}
	return err
}

func (c *refreshCycle) report() plugin.RefreshReport {
	rep := plugin.RefreshReport{Failed: make(map[string]error)}
	for _, name := range c.order {
		if err := c.done[strings.ToLower(name)]; err != nil {
			rep.Failed[name] = err
			continue
		}
		rep.Refreshed = append(rep.Refreshed, name)
	}
	return rep
}
