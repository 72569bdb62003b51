package tableflow

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/tableflow/internal/dom"
	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/logger"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
	tferrors "github.com/alexisbeaulieu97/tableflow/pkg/errors"
)

const fixture = `<html><body>
<div id="note">not a table</div>
<table id="grid">
  <thead><tr><th id="name" data-default="anon">Name</th><th id="qty" th-edit>Qty</th></tr></thead>
  <tbody>
    <tr id="row-1"><td>Alice</td><td>10</td></tr>
    <tr><td>Carol</td><td>3</td></tr>
    <tr id="row-5"><td>Eve</td><td>7</td></tr>
  </tbody>
</table>
</body></html>`

type fakePlugin struct {
	name       string
	deps       []string
	initErr    error
	refreshErr error
	destroyErr error
	panicInit  bool
	lookup     string
	trace      *[]string

	host   plugin.Host
	cfg    plugin.Config
	seen   plugin.Plugin
	saved  []map[string]any
	rowIDs []string
}

func (f *fakePlugin) Name() string { return f.name }

func (f *fakePlugin) Init(_ context.Context, host plugin.Host) error {
	f.log("init:" + f.name)
	if f.panicInit {
		panic("init exploded")
	}
	f.host = host
	if f.lookup != "" {
		f.seen = host.GetPlugin(f.lookup)
	}
	return f.initErr
}

func (f *fakePlugin) Refresh(context.Context) error {
	f.log("refresh:" + f.name)
	if f.host != nil {
		f.rowIDs = f.rowIDs[:0]
		for _, r := range f.host.Table().Rows() {
			f.rowIDs = append(f.rowIDs, r.ID())
		}
	}
	return f.refreshErr
}

func (f *fakePlugin) Destroy() error {
	f.log("destroy:" + f.name)
	return f.destroyErr
}

func (f *fakePlugin) Dependencies() []string { return f.deps }

func (f *fakePlugin) MarkRowAsSaved(_ *table.Row, opts map[string]any) {
	f.saved = append(f.saved, opts)
}

func (f *fakePlugin) log(s string) {
	if f.trace != nil {
		*f.trace = append(*f.trace, s)
	}
}

func registryOf(t *testing.T, plugins ...*fakePlugin) *plugin.Registry {
	t.Helper()
	r := plugin.NewRegistry()
	for _, p := range plugins {
		p := p
		require.NoError(t, r.Register(p.name, func(cfg plugin.Config) (plugin.Plugin, error) {
			p.cfg = cfg
			return p, nil
		}))
	}
	return r
}

func newHost(t *testing.T, opts Options, reg *plugin.Registry, extra ...Option) *TableFlow {
	t.Helper()
	doc, err := dom.ParseString(fixture)
	require.NoError(t, err)
	if opts.TableID == "" {
		opts.TableID = "grid"
	}
	host, err := New(opts, reg, append([]Option{WithDocument(doc)}, extra...)...)
	require.NoError(t, err)
	return host
}

func initHost(t *testing.T, opts Options, reg *plugin.Registry) *TableFlow {
	t.Helper()
	host := newHost(t, opts, reg)
	require.NoError(t, host.Init(context.Background()))
	return host
}

func TestNewRequiresTableID(t *testing.T) {
	t.Parallel()

	_, err := New(Options{TableID: "  "}, nil)
	require.ErrorIs(t, err, tferrors.ErrMissingTableID)
	var hostErr *tferrors.HostError
	require.ErrorAs(t, err, &hostErr)
	require.Equal(t, "new", hostErr.Op)
}

func TestInitStructuralFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		id   string
		want error
	}{
		{name: "missing element", id: "ghost", want: tferrors.ErrTableNotFound},
		{name: "not a table", id: "note", want: tferrors.ErrNotATable},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			host := newHost(t, Options{TableID: tt.id}, nil)
			require.ErrorIs(t, host.Init(context.Background()), tt.want)
		})
	}
}

func TestInitSnapshotsCells(t *testing.T) {
	t.Parallel()

	host := initHost(t, Options{}, nil)
	rows := host.Table().Rows()
	require.Len(t, rows, 3)
	require.Equal(t, "row-2", rows[1].ID(), "rows without id get a synthetic one")

	cell := host.Table().Cell("row-1", "qty")
	require.NotNil(t, cell)
	require.Equal(t, "10", cell.Element().AttrOr(table.AttrValue, ""))
	require.Equal(t, "10", cell.Element().AttrOr(table.AttrInitialValue, ""))
	require.False(t, host.IsModified(rows[0]))
	require.NoError(t, host.Init(context.Background()), "init is idempotent")
}

func TestLoadPluginsIsolatesFailures(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := logger.New(logger.Options{Writer: buf})
	require.NoError(t, err)

	good := &fakePlugin{name: "Sort"}
	bad := &fakePlugin{name: "broken", initErr: errors.New("no header")}
	explosive := &fakePlugin{name: "explosive", panicInit: true}
	reg := registryOf(t, good, bad, explosive)

	host := newHost(t, Options{
		Plugins:     plugin.Names("broken", "sort", "explosive", "unknown"),
		PluginsPath: "./plugins",
	}, reg, WithLogger(log))
	require.NoError(t, host.Init(context.Background()))

	require.Same(t, good, host.GetPlugin("SORT"))
	require.Nil(t, host.GetPlugin("broken"))
	require.Nil(t, host.GetPlugin("explosive"))
	require.Nil(t, host.GetPlugin("unknown"))

	entries := host.Plugins()
	require.Len(t, entries, 4)
	for _, e := range entries {
		if e.Name == "sort" {
			require.NoError(t, e.Err)
			continue
		}
		require.Error(t, e.Err, e.Name)
	}

	out := buf.String()
	require.Contains(t, out, `"plugin":"broken"`)
	require.Contains(t, out, "no header")
	require.Contains(t, out, "init exploded")
	require.Contains(t, out, `"pluginsPath":"./plugins"`)
}

func TestLoadPluginsFailsWhenNothingLoads(t *testing.T) {
	t.Parallel()

	bad := &fakePlugin{name: "broken", initErr: errors.New("nope")}
	host := newHost(t, Options{Plugins: plugin.Names("broken", "missing")}, registryOf(t, bad))
	require.ErrorIs(t, host.Init(context.Background()), tferrors.ErrNoPluginsLoaded)
}

func TestLoadPluginsOrderAndVisibility(t *testing.T) {
	t.Parallel()

	var trace []string
	edit := &fakePlugin{name: "edit", trace: &trace}
	highlight := &fakePlugin{name: "highlight", trace: &trace, lookup: "edit"}
	actions := &fakePlugin{name: "actions", trace: &trace, deps: []string{"validation"}}
	validation := &fakePlugin{name: "validation", trace: &trace}
	reg := registryOf(t, edit, highlight, actions, validation)

	host := initHost(t, Options{Plugins: plugin.Names("edit", "highlight", "actions", "validation"), Debug: true}, reg)

	require.Equal(t, []string{"init:edit", "init:highlight", "init:validation", "init:actions"}, trace)
	require.Same(t, edit, highlight.seen)
	require.Equal(t, true, edit.cfg["debug"])
	require.Same(t, host, edit.host)
}

func TestLoadPluginsSkipsAlreadyLoaded(t *testing.T) {
	t.Parallel()

	var trace []string
	edit := &fakePlugin{name: "edit", trace: &trace}
	host := initHost(t, Options{Plugins: plugin.Names("edit")}, registryOf(t, edit))

	require.NoError(t, host.LoadPlugins(context.Background(), plugin.Names("EDIT")))
	require.Equal(t, []string{"init:edit"}, trace)
}

func TestRefreshPluginsDependencyOrder(t *testing.T) {
	t.Parallel()

	var trace []string
	a := &fakePlugin{name: "a", trace: &trace}
	b := &fakePlugin{name: "b", trace: &trace, deps: []string{"a"}}
	c := &fakePlugin{name: "c", trace: &trace, deps: []string{"b"}}
	host := initHost(t, Options{Plugins: plugin.Names("c", "b", "a")}, registryOf(t, a, b, c))

	trace = nil
	rep := host.RefreshPlugins(context.Background())
	require.True(t, rep.OK())
	require.Equal(t, []string{"refresh:a", "refresh:b", "refresh:c"}, trace, "each plugin refreshes once, dependencies first")
	require.Equal(t, []string{"a", "b", "c"}, rep.Refreshed)
}

func TestRefreshSkipsDependentsOfFailedPlugin(t *testing.T) {
	t.Parallel()

	var trace []string
	a := &fakePlugin{name: "a", trace: &trace, refreshErr: errors.New("a broke")}
	b := &fakePlugin{name: "b", trace: &trace, deps: []string{"a"}}
	other := &fakePlugin{name: "other", trace: &trace}
	host := initHost(t, Options{Plugins: plugin.Names("a", "b", "other")}, registryOf(t, a, b, other))

	trace = nil
	rep := host.RefreshPlugins(context.Background())
	require.Equal(t, []string{"refresh:a", "refresh:other"}, trace)
	require.Equal(t, []string{"other"}, rep.Refreshed)

	var depErr plugin.ErrDependencyFailed
	require.ErrorAs(t, rep.Failed["b"], &depErr)
	require.Equal(t, "a", depErr.Dependency)
	require.Error(t, rep.Failed["a"])
	require.Same(t, b, host.GetPlugin("b"), "a failed refresh does not unload the plugin")
}

func TestRefreshDetectsCycles(t *testing.T) {
	t.Parallel()

	var trace []string
	a := &fakePlugin{name: "a", trace: &trace, deps: []string{"b"}}
	b := &fakePlugin{name: "b", trace: &trace, deps: []string{"a"}}
	c := &fakePlugin{name: "c", trace: &trace, deps: []string{"a"}}
	d := &fakePlugin{name: "d", trace: &trace}
	host := initHost(t, Options{Plugins: plugin.Names("a", "b", "c", "d")}, registryOf(t, a, b, c, d))

	trace = nil
	rep := host.RefreshPlugins(context.Background())
	require.Equal(t, []string{"refresh:d"}, trace)

	var cycle plugin.ErrCircularDependency
	require.ErrorAs(t, rep.Failed["a"], &cycle)
	require.ErrorAs(t, rep.Failed["b"], &cycle)
	require.Error(t, rep.Failed["c"])
	require.Equal(t, []string{"d"}, rep.Refreshed)
}

func TestRefreshMissingDependency(t *testing.T) {
	t.Parallel()

	var trace []string
	b := &fakePlugin{name: "b", trace: &trace, deps: []string{"ghost"}}
	host := initHost(t, Options{Plugins: plugin.Names("b")}, registryOf(t, b))

	rep := host.RefreshPlugin(context.Background(), "B")
	var missing plugin.ErrMissingDependency
	require.ErrorAs(t, rep.Failed["b"], &missing)

	rep = host.RefreshPlugin(context.Background(), "nobody")
	require.Error(t, rep.Failed["nobody"])
}

func TestAddRowFromKeyedData(t *testing.T) {
	t.Parallel()

	var trace []string
	sorter := &fakePlugin{name: "sort", trace: &trace}
	host := initHost(t, Options{Plugins: plugin.Names("sort")}, registryOf(t, sorter))

	var added events.Event
	host.Events().Subscribe(events.RowAdded, func(_ context.Context, ev events.Event) error {
		added = ev
		trace = append(trace, "row:added")
		return nil
	})
	trace = nil

	row, err := host.AddRow(context.Background(), map[string]string{"qty": "4"}, PositionEnd)
	require.NoError(t, err)

	require.Equal(t, []string{"row:added", "refresh:sort"}, trace)
	require.Equal(t, row.ID(), added.Detail.RowID)
	require.Equal(t, PositionEnd, added.Detail.Position)
	require.NotEmpty(t, added.Detail.EventID)

	name := row.Cell("name")
	require.Equal(t, "anon", name.Value(), "missing values fall back to data-default")
	require.Equal(t, name.Value(), name.InitialValue())
	require.Equal(t, "4", row.Cell("qty").Value())
	require.False(t, host.IsModified(row))
	require.Equal(t, row.ID(), sorter.rowIDs[len(sorter.rowIDs)-1])
}

func TestAddRowPositionalAtStart(t *testing.T) {
	t.Parallel()

	host := initHost(t, Options{}, nil)
	row, err := host.AddRow(context.Background(), []string{"Bob"}, PositionStart)
	require.NoError(t, err)

	rows := host.Table().Rows()
	require.Equal(t, row.ID(), rows[0].ID())
	require.Equal(t, map[string]string{"name": "Bob", "qty": ""}, host.RowData(row))

	_, err = host.AddRow(context.Background(), nil, "middle")
	require.Error(t, err)
	_, err = host.AddRow(context.Background(), 42, PositionEnd)
	require.Error(t, err)
}

func TestEditThenSave(t *testing.T) {
	t.Parallel()

	saver := &fakePlugin{name: "actions"}
	host := initHost(t, Options{Plugins: plugin.Names("actions")}, registryOf(t, saver))
	ctx := context.Background()

	var saved []events.Event
	host.Events().Subscribe(events.RowSaved, func(_ context.Context, ev events.Event) error {
		saved = append(saved, ev)
		return nil
	})

	row := host.Table().Row("row-1")
	cell := row.Cell("qty")
	ev := host.SetCellValue(ctx, cell, "20", events.SourceEdit)
	require.True(t, ev.Detail.IsModified)
	require.Equal(t, "20", ev.Detail.Value)
	require.Equal(t, "10", ev.Detail.InitialValue)
	require.True(t, host.IsModified(row))
	require.True(t, host.IsCellModified(cell))
	require.True(t, row.Element().HasClass(table.ClassModified))
	require.Equal(t, "20", cell.Display())

	opts := map[string]any{"actions": map[string]any{"silent": true}}
	require.NoError(t, host.MarkRowAsSaved(ctx, row, opts))

	require.False(t, host.IsModified(row))
	require.False(t, row.Element().HasClass(table.ClassModified))
	require.Equal(t, "20", cell.InitialValue())
	require.Equal(t, "20", cell.Element().AttrOr(table.AttrInitialValue, ""))
	require.Equal(t, []map[string]any{opts}, saver.saved)

	require.Len(t, saved, 1)
	require.Equal(t, "row-1", saved[0].Detail.RowID)
	require.Contains(t, saved[0].Detail.Cells, events.CellSnapshot{ColumnID: "qty", Value: "20", InitialValue: "20"})
}

func TestFlaggedRowAndCell(t *testing.T) {
	t.Parallel()

	host := initHost(t, Options{}, nil)
	row := host.Table().Row("row-1")

	host.FlagRow(row, true)
	require.True(t, host.IsModified(row))
	require.NoError(t, host.MarkRowAsSaved(context.Background(), row, nil))
	require.False(t, host.IsModified(row))

	cell := row.Cell("name")
	host.WriteCell(context.Background(), cell, plugin.Change{Value: "Alice", Display: "ALICE", Flagged: true})
	require.True(t, host.IsCellModified(cell))
	require.Equal(t, "true", cell.Element().AttrOr(table.AttrModified, ""))
	require.Equal(t, "ALICE", cell.Display())
	require.Equal(t, "Alice", cell.Value())
}

func TestRemoveRow(t *testing.T) {
	t.Parallel()

	sorter := &fakePlugin{name: "sort"}
	host := initHost(t, Options{Plugins: plugin.Names("sort")}, registryOf(t, sorter))
	ctx := context.Background()

	var order []string
	var removed events.Event
	host.Events().Subscribe(events.RowRemoving, func(_ context.Context, ev events.Event) error {
		order = append(order, ev.Name)
		require.True(t, ev.Detail.Row.Attached())
		return nil
	})
	host.Events().SubscribeDocument(events.RowRemoved, func(_ context.Context, ev events.Event) error {
		order = append(order, ev.Name)
		removed = ev
		return nil
	})

	row := host.Table().Row("row-5")
	require.NoError(t, host.RemoveRow(ctx, row))

	require.Equal(t, []string{events.RowRemoving, events.RowRemoved}, order)
	require.Equal(t, "row-5", removed.Detail.RowID)
	require.Equal(t, "Eve", removed.Detail.Data["name"])
	_, tracked := host.Store().Get(row.Cell("name").Key())
	require.False(t, tracked)

	require.Empty(t, host.RefreshPlugin(ctx, "sort").Failed)
	require.NotContains(t, sorter.rowIDs, "row-5")

	require.Error(t, host.RemoveRow(ctx, row), "row already removed")
}

func TestClaimIsExclusive(t *testing.T) {
	t.Parallel()

	host := initHost(t, Options{}, nil)
	cell := host.Table().Cell("row-1", "qty")

	require.True(t, host.Claim(cell, "edit"))
	require.True(t, host.Claim(cell, "edit"))
	require.False(t, host.Claim(cell, "choice"))
	require.Equal(t, "edit", cell.Element().AttrOr(table.AttrPlugin, ""))
}

func TestDeferredTasksRunOnDrain(t *testing.T) {
	t.Parallel()

	host := initHost(t, Options{}, nil)
	ran := false
	require.True(t, host.Defer(func() { ran = true }))
	require.False(t, ran)
	require.Equal(t, 1, host.Drain())
	require.True(t, ran)
}

func TestDestroy(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := logger.New(logger.Options{Writer: buf})
	require.NoError(t, err)

	var trace []string
	a := &fakePlugin{name: "a", trace: &trace, destroyErr: errors.New("stuck timer")}
	b := &fakePlugin{name: "b", trace: &trace}
	host := newHost(t, Options{Plugins: plugin.Names("a", "b")}, registryOf(t, a, b), WithLogger(log))
	require.NoError(t, host.Init(context.Background()))

	host.Events().Subscribe(events.CellChange, func(context.Context, events.Event) error { return nil })
	trace = nil
	host.Destroy()
	host.Destroy()

	require.Equal(t, []string{"destroy:b", "destroy:a"}, trace)
	require.True(t, strings.Contains(buf.String(), "stuck timer"))
	require.Nil(t, host.GetPlugin("a"))
	require.Zero(t, host.Events().Count(events.CellChange))
	require.False(t, host.Post(func() {}))
	require.Error(t, host.Init(context.Background()))
}

func TestDestroyReversesInitOrder(t *testing.T) {
	t.Parallel()

	var trace []string
	a := &fakePlugin{name: "a", deps: []string{"b"}, trace: &trace}
	b := &fakePlugin{name: "b", trace: &trace}
	host := initHost(t, Options{Plugins: plugin.Names("a", "b")}, registryOf(t, a, b))
	require.Equal(t, []string{"init:b", "init:a"}, trace)
	require.Equal(t, []plugin.Plugin{b, a}, host.Loaded())

	trace = nil
	host.Destroy()
	require.Equal(t, []string{"destroy:a", "destroy:b"}, trace)
}

func TestConfigDeclaredDependencies(t *testing.T) {
	t.Parallel()

	var trace []string
	a := &fakePlugin{name: "a", trace: &trace}
	b := &fakePlugin{name: "b", trace: &trace}

	var spec plugin.Spec
	spec.Add("b", plugin.Config{"dependencies": []any{"a"}})
	spec.Add("a", nil)
	host := initHost(t, Options{Plugins: spec}, registryOf(t, a, b))

	require.Equal(t, []string{"init:a", "init:b"}, trace)
	require.Len(t, host.Loaded(), 2)

	trace = nil
	host.RefreshPlugins(context.Background())
	require.Equal(t, []string{"refresh:a", "refresh:b"}, trace)
}
