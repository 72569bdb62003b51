package dateplugin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/plugins/plugintest"
)

const markup = `<table id="grid"><thead><tr>
<th id="due" th-date data-format="DD/MM/YYYY">Due</th>
<th id="born" th-date>Born</th>
<th id="name">Name</th>
</tr></thead>
<tbody>
<tr id="r1"><td>03/04/2024</td><td>Jan 5, 1990</td><td>Ann</td></tr>
<tr id="r2"><td>2024-12-31</td><td>garbage</td><td>Bob</td></tr>
</tbody></table>`

func TestLayout(t *testing.T) {
	t.Parallel()

	require.Equal(t, "2006-01-02", Layout("YYYY-MM-DD"))
	require.Equal(t, "02/01/2006", Layout("DD/MM/YYYY"))
	require.Equal(t, "Jan 2, 06", Layout("MMM D, YY"))
	require.Equal(t, "January 2006", Layout("MMMM YYYY"))
	require.Equal(t, "1/2", Layout("M/D"))
}

func TestParse(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-09", "2024/03/09", "03/09/2024", "Mar 9, 2024", "9 March 2024", " 09.03.2024 "} {
		got, err := Parse(in, "")
		require.NoError(t, err, in)
		require.True(t, want.Equal(got), in)
	}

	got, err := Parse("09/03/2024", Layout("DD/MM/YYYY"))
	require.NoError(t, err)
	require.True(t, want.Equal(got), "column layout wins")

	_, err = Parse("someday", "")
	require.ErrorIs(t, err, ErrInvalidDate)
}

func TestInitNormalizes(t *testing.T) {
	t.Parallel()

	host := plugintest.New(t, markup, plugintest.Plugin{Name: Name, Factory: New})

	due := host.Table().Cell("r1", "due")
	require.Equal(t, "2024-04-03", due.Value())
	require.Equal(t, "03/04/2024", due.Display())

	iso := host.Table().Cell("r2", "due")
	require.Equal(t, "2024-12-31", iso.Value())
	require.Equal(t, "31/12/2024", iso.Display())

	born := host.Table().Cell("r1", "born")
	require.Equal(t, "1990-01-05", born.Value())
	require.Equal(t, "1990-01-05", born.Display())

	bad := host.Table().Cell("r2", "born")
	require.Equal(t, "garbage", bad.Value())
	require.Equal(t, Name, host.Store().Owner(bad.Key()))

	require.False(t, host.IsModified(due.Row()))
}

func TestSetDate(t *testing.T) {
	t.Parallel()

	host := plugintest.New(t, markup, plugintest.Plugin{Name: Name, Factory: New})
	p := host.GetPlugin(Name).(*Plugin)
	ctx := context.Background()
	rec := plugintest.Record(host, events.CellChange)
	cell := host.Table().Cell("r1", "due")

	require.NoError(t, p.SetDate(ctx, cell, "2025-01-20"))
	require.Equal(t, "2025-01-20", cell.Value())
	require.Equal(t, "20/01/2025", cell.Display())
	require.True(t, host.IsModified(cell.Row()))
	require.Equal(t, events.SourceDate, rec.Events[0].Detail.Source)

	d, ok := p.Date(cell)
	require.True(t, ok)
	require.Equal(t, time.January, d.Month())

	require.ErrorIs(t, p.SetDate(ctx, cell, "tomorrow-ish"), ErrInvalidDate)
	require.ErrorIs(t, p.SetDate(ctx, host.Table().Cell("r1", "name"), "2025-01-01"), ErrNotDate)

	require.NoError(t, p.SetDate(ctx, cell, ""))
	require.Empty(t, cell.Value())
	_, ok = p.Date(cell)
	require.False(t, ok)
}

func TestMenuItemsUseClock(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2030, 7, 14, 15, 0, 0, 0, time.UTC)
	host := plugintest.New(t, markup, plugintest.Plugin{Name: Name, Factory: Factory(WithClock(func() time.Time { return fixed }))})
	p := host.GetPlugin(Name).(*Plugin)
	cell := host.Table().Cell("r2", "due")

	items := p.MenuItems(cell)
	require.Len(t, items, 2)
	require.NoError(t, items[0].Action(context.Background(), cell))
	require.Equal(t, "2030-07-14", cell.Value())
	require.Equal(t, "14/07/2030", cell.Display())

	require.Empty(t, p.MenuItems(host.Table().Cell("r2", "name")))
}

func TestConfiguredDefaultFormat(t *testing.T) {
	t.Parallel()

	host := plugintest.New(t, markup, plugintest.Plugin{Name: Name, Factory: New, Config: map[string]any{"format": "MMM D, YYYY"}})
	require.Equal(t, "Jan 5, 1990", host.Table().Cell("r1", "born").Display())
	require.Equal(t, "03/04/2024", host.Table().Cell("r1", "due").Display())
}
