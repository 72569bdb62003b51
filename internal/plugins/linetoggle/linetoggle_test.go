package linetoggleplugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/plugins/plugintest"
	"github.com/alexisbeaulieu97/tableflow/internal/tableflow"
)

const markup = `<table id="grid"><thead><tr><th>Task</th><th id="status" th-linetoggle="done, Cancelled">Status</th></tr></thead>
<tbody><tr id="a"><td>x</td><td>done</td></tr><tr id="b"><td>y</td><td>open</td></tr><tr id="c"><td>z</td><td>cancelled</td></tr></tbody></table>`

func toggled(host *tableflow.TableFlow) []string {
	var out []string
	for _, r := range host.Table().Rows() {
		if r.Element().HasClass(ClassToggled) {
			out = append(out, r.ID())
		}
	}
	return out
}

func TestMarksMatchingRows(t *testing.T) {
	t.Parallel()

	host := plugintest.New(t, markup, plugintest.Plugin{Name: Name, Factory: New})
	require.Equal(t, []string{"a", "c"}, toggled(host))
}

func TestFollowsChangesAndNewRows(t *testing.T) {
	t.Parallel()

	host := plugintest.New(t, markup, plugintest.Plugin{Name: Name, Factory: New})
	ctx := context.Background()

	host.SetCellValue(ctx, host.Table().Cell("b", "status"), "DONE", events.SourceManual)
	host.SetCellValue(ctx, host.Table().Cell("a", "status"), "open", events.SourceManual)
	require.Equal(t, []string{"b", "c"}, toggled(host))

	row, err := host.AddRow(ctx, []string{"w", "done"}, tableflow.PositionEnd)
	require.NoError(t, err)
	require.True(t, row.Element().HasClass(ClassToggled))

	require.NoError(t, host.GetPlugin(Name).(*Plugin).Destroy())
	require.Empty(t, toggled(host))
}
