package editplugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/hook"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	"github.com/alexisbeaulieu97/tableflow/internal/plugins/plugintest"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
	"github.com/alexisbeaulieu97/tableflow/internal/tableflow"
)

const markup = `<table id="grid">
<thead><tr><th id="name">Name</th><th id="qty" th-edit>Qty</th></tr></thead>
<tbody><tr id="r1"><td>Alice</td><td>10</td></tr></tbody>
</table>`

func setup(t *testing.T) (*tableflow.TableFlow, *Plugin) {
	t.Helper()
	host := plugintest.New(t, markup, plugintest.Plugin{Name: Name, Factory: New})
	p, ok := host.GetPlugin(Name).(*Plugin)
	require.True(t, ok)
	return host, p
}

func TestInitClaimsEditableColumns(t *testing.T) {
	t.Parallel()

	host, p := setup(t)
	qty := host.Table().Cell("r1", "qty")
	name := host.Table().Cell("r1", "name")

	require.Equal(t, Name, qty.Element().AttrOr(table.AttrPlugin, ""))
	require.True(t, p.Editable(qty))
	require.False(t, p.Editable(name))

	_, err := p.StartEdit(context.Background(), name)
	require.ErrorIs(t, err, ErrNotEditable)
}

func TestEditCommitFlow(t *testing.T) {
	t.Parallel()

	host, p := setup(t)
	ctx := context.Background()
	rec := plugintest.Record(host, events.CellChange, events.CellSaved)
	var documentSaved int
	host.Events().SubscribeDocument(events.CellSaved, func(context.Context, events.Event) error {
		documentSaved++
		return nil
	})

	var afterEdit, afterSave int
	host.Hooks().Register(hook.AfterEdit, hook.Observer(func(context.Context, ...any) { afterEdit++ }))
	host.Hooks().Register(hook.AfterSave, hook.Observer(func(context.Context, ...any) { afterSave++ }))

	cell := host.Table().Cell("r1", "qty")
	s, err := p.StartEdit(ctx, cell)
	require.NoError(t, err)
	require.Equal(t, 1, afterEdit)
	require.True(t, s.Input().HasClass(InputClass))
	require.Equal(t, "10", s.Input().AttrOr("value", ""))
	require.NotNil(t, cell.Element().FindByClass(InputClass))

	_, err = p.StartEdit(ctx, cell)
	require.ErrorIs(t, err, ErrAlreadyEditing)

	s.Type("20")
	require.NoError(t, s.KeyDown(ctx, KeyEnter))

	require.Zero(t, p.Sessions())
	require.Nil(t, cell.Element().FindByClass(InputClass))
	require.Equal(t, "20", cell.Value())
	require.Equal(t, "20", cell.Display())
	require.Equal(t, "10", cell.InitialValue())
	require.True(t, host.IsModified(cell.Row()))
	require.Equal(t, 1, afterSave)

	changes := rec.Named(events.CellChange)
	require.Len(t, changes, 1)
	require.Equal(t, events.SourceEdit, changes[0].Detail.Source)
	require.True(t, changes[0].Detail.IsModified)
	require.Len(t, rec.Named(events.CellSaved), 1)
	require.Zero(t, documentSaved, "cell:saved does not bubble")

	require.NoError(t, host.MarkRowAsSaved(ctx, cell.Row(), nil))
	require.False(t, host.IsModified(cell.Row()))
	require.Equal(t, "20", cell.InitialValue())

	require.ErrorIs(t, s.Commit(ctx), ErrSessionClosed)
}

func TestBeforeEditVeto(t *testing.T) {
	t.Parallel()

	host, p := setup(t)
	afterEdit := false
	host.Hooks().Register(hook.BeforeEdit, hook.Predicate(func(context.Context, ...any) bool { return false }))
	host.Hooks().Register(hook.AfterEdit, hook.Observer(func(context.Context, ...any) { afterEdit = true }))

	cell := host.Table().Cell("r1", "qty")
	_, err := p.StartEdit(context.Background(), cell)
	require.ErrorIs(t, err, ErrEditVetoed)
	require.False(t, afterEdit)
	require.Nil(t, cell.Element().FindByClass(InputClass))
	require.Equal(t, "10", cell.Display())
}

func TestEscapeCancels(t *testing.T) {
	t.Parallel()

	host, p := setup(t)
	ctx := context.Background()
	rec := plugintest.Record(host, events.CellChange)

	cell := host.Table().Cell("r1", "qty")
	s, err := p.StartEdit(ctx, cell)
	require.NoError(t, err)
	require.Empty(t, cell.Display())

	s.Type("99")
	require.NoError(t, s.KeyDown(ctx, KeyEscape))
	require.Equal(t, "10", cell.Display())
	require.Equal(t, "10", cell.Value())
	require.Empty(t, rec.Events)
	require.Nil(t, p.Session(cell))
}

func TestKeydownVetoSkipsDefault(t *testing.T) {
	t.Parallel()

	host, p := setup(t)
	ctx := context.Background()
	host.Hooks().Register(hook.OnKeydown, hook.Predicate(func(_ context.Context, args ...any) bool {
		return args[1] != KeyEnter
	}))

	cell := host.Table().Cell("r1", "qty")
	s, err := p.StartEdit(ctx, cell)
	require.NoError(t, err)
	s.Type("11")
	require.NoError(t, s.KeyDown(ctx, KeyEnter))
	require.NotNil(t, p.Session(cell), "vetoed Enter leaves the session open")

	require.NoError(t, s.Commit(ctx))
	require.Equal(t, "11", cell.Value())
}

func TestBeforeSaveVetoCancels(t *testing.T) {
	t.Parallel()

	host, p := setup(t)
	ctx := context.Background()
	host.Hooks().Register(hook.BeforeSave, hook.Predicate(func(_ context.Context, args ...any) bool {
		return args[1] != "bad"
	}))

	cell := host.Table().Cell("r1", "qty")
	s, err := p.StartEdit(ctx, cell)
	require.NoError(t, err)
	s.Type("bad")
	require.ErrorIs(t, s.Commit(ctx), ErrSaveVetoed)
	require.Equal(t, "10", cell.Value())
	require.Equal(t, "10", cell.Display())
	require.False(t, host.IsModified(cell.Row()))
	require.Zero(t, p.Sessions())
}

func TestRenderHookRewritesDisplay(t *testing.T) {
	t.Parallel()

	host, p := setup(t)
	ctx := context.Background()
	host.Hooks().Register(hook.OnRender, hook.Observer(func(_ context.Context, args ...any) {
		rc := args[0].(*plugin.RenderContext)
		rc.Display = rc.Value + " units"
	}))

	cell := host.Table().Cell("r1", "qty")
	s, err := p.StartEdit(ctx, cell)
	require.NoError(t, err)
	s.Type("12")
	require.NoError(t, s.Commit(ctx))

	require.Equal(t, "12", cell.Value())
	require.Equal(t, "12 units", cell.Display())
}

func TestOwnershipIsExclusive(t *testing.T) {
	t.Parallel()

	other := func(plugin.Config) (plugin.Plugin, error) { return &claimer{}, nil }
	host := plugintest.New(t, markup,
		plugintest.Plugin{Name: "claimer", Factory: other},
		plugintest.Plugin{Name: Name, Factory: New},
	)
	p := host.GetPlugin(Name).(*Plugin)

	cell := host.Table().Cell("r1", "qty")
	require.Equal(t, "claimer", cell.Element().AttrOr(table.AttrPlugin, ""))
	_, err := p.StartEdit(context.Background(), cell)
	require.ErrorIs(t, err, ErrNotEditable)
}

func TestAddedRowsAreEditable(t *testing.T) {
	t.Parallel()

	host, p := setup(t)
	row, err := host.AddRow(context.Background(), []string{"Bob", "1"}, tableflow.PositionEnd)
	require.NoError(t, err)
	require.True(t, p.Editable(row.Cell("qty")))
}

func TestDestroyCancelsSessions(t *testing.T) {
	t.Parallel()

	host, p := setup(t)
	cell := host.Table().Cell("r1", "qty")
	_, err := p.StartEdit(context.Background(), cell)
	require.NoError(t, err)

	require.NoError(t, p.Destroy())
	require.Zero(t, p.Sessions())
	require.Equal(t, "10", cell.Display())
}

type claimer struct{}

func (c *claimer) Name() string { return "claimer" }

func (c *claimer) Init(_ context.Context, host plugin.Host) error {
	for _, row := range host.Table().Rows() {
		for _, cell := range row.Cells() {
			host.Claim(cell, "claimer")
		}
	}
	return nil
}
