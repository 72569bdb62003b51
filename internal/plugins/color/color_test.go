package colorplugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/plugins/plugintest"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "#FF0000", want: "#ff0000"},
		{in: "0f0", want: "#00ff00"},
		{in: "#abc", want: "#aabbcc"},
		{in: " Orange ", want: "#ffa500"},
		{in: "rgb(0, 128, 255)", want: "#0080ff"},
		{in: "", err: true},
		{in: "rgb(300,0,0)", err: true},
		{in: "not-a-color", err: true},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if tt.err {
			require.ErrorIs(t, err, ErrInvalidColor, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}

const markup = `<table id="grid"><thead><tr><th id="c" th-color>Color</th><th id="n">Name</th></tr></thead>
<tbody><tr id="r1"><td>RED</td><td>a</td></tr><tr id="r2"><td>#00F</td><td>b</td></tr></tbody></table>`

func TestInitNormalizesAndAddsSwatches(t *testing.T) {
	t.Parallel()

	host := plugintest.New(t, markup, plugintest.Plugin{Name: Name, Factory: New})
	cell := host.Table().Cell("r1", "c")

	require.Equal(t, "#ff0000", cell.Value())
	require.Equal(t, "#ff0000", cell.Display())
	require.False(t, host.IsModified(cell.Row()))
	swatch := cell.Element().FindByClass(SwatchClass)
	require.NotNil(t, swatch)
	require.Equal(t, "#ff0000", swatch.Style("background-color"))
	require.Equal(t, Name, host.Store().Owner(cell.Key()))
}

func TestSetColor(t *testing.T) {
	t.Parallel()

	host := plugintest.New(t, markup, plugintest.Plugin{Name: Name, Factory: New})
	p := host.GetPlugin(Name).(*Plugin)
	ctx := context.Background()
	rec := plugintest.Record(host, events.CellChange)
	cell := host.Table().Cell("r2", "c")

	require.NoError(t, p.SetColor(ctx, cell, "yellow"))
	require.Equal(t, "#ffff00", cell.Value())
	require.True(t, host.IsModified(cell.Row()))
	require.Equal(t, "#ffff00", cell.Element().FindByClass(SwatchClass).Style("background-color"))
	require.Equal(t, events.SourceColor, rec.Events[0].Detail.Source)

	require.ErrorIs(t, p.SetColor(ctx, cell, "nope"), ErrInvalidColor)
	require.ErrorIs(t, p.SetColor(ctx, host.Table().Cell("r2", "n"), "red"), ErrNotColor)

	items := p.MenuItems(cell)
	require.Len(t, items, 1)
	require.NoError(t, items[0].Action(ctx, cell))
	require.Equal(t, "#0000ff", cell.Value())
	require.False(t, host.IsModified(cell.Row()))
	require.Empty(t, p.MenuItems(cell))
}

func TestAddedRowsAreClaimed(t *testing.T) {
	t.Parallel()

	host := plugintest.New(t, markup, plugintest.Plugin{Name: Name, Factory: New})
	row, err := host.AddRow(context.Background(), []string{"white", "c"}, "")
	require.NoError(t, err)

	cell := row.Cell("c")
	require.Equal(t, Name, host.Store().Owner(cell.Key()))
	require.Equal(t, "#ffffff", cell.Value())
	require.NotNil(t, cell.Element().FindByClass(SwatchClass))
}
