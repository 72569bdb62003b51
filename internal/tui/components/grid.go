package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	filterplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/filter"
	validationplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/validation"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
)

// DefaultMaxWidth caps column widths.
const DefaultMaxWidth = 24

const separator = " │ "

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	ruleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	modifiedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	invalidStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Underline(true)
	selectedStyle = lipgloss.NewStyle().Bold(true)
)

// GridCell is one rendered cell.
type GridCell struct {
	Text     string
	Modified bool
	Invalid  bool
}

// GridRow is one rendered row.
type GridRow struct {
	ID       string
	Selected bool
	Cells    []GridCell
}

// Grid renders table rows as aligned text columns.
type Grid struct {
	Headers  []string
	Rows     []GridRow
	MaxWidth int
}

// GridFromTable builds a grid from the visible rows of t. selected reports
// whether a row is selected and may be nil.
func GridFromTable(t *table.Table, selected func(*table.Row) bool) Grid {
	g := Grid{MaxWidth: DefaultMaxWidth}
	cols := t.Columns()
	for _, col := range cols {
		g.Headers = append(g.Headers, col.Label)
	}

	store := t.Store()
	for _, row := range t.Rows() {
		if row.Element().HasAttr(filterplugin.AttrHidden) {
			continue
		}
		gr := GridRow{ID: row.ID(), Cells: make([]GridCell, len(cols))}
		if selected != nil {
			gr.Selected = selected(row)
		}
		for i, col := range cols {
			cell := row.Cell(col.ID)
			if cell == nil {
				continue
			}
			gr.Cells[i] = GridCell{
				Text:     cell.Display(),
				Modified: store.CellModified(cell.Key()),
				Invalid:  cell.Element().HasClass(validationplugin.ClassInvalid),
			}
		}
		g.Rows = append(g.Rows, gr)
	}
	return g
}

// Widths returns the display width of each column.
func (g Grid) Widths() []int {
	limit := g.MaxWidth
	if limit <= 0 {
		limit = DefaultMaxWidth
	}
	widths := make([]int, len(g.Headers))
	for i, h := range g.Headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range g.Rows {
		for i, cell := range row.Cells {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell.Text))
			}
		}
	}
	for i := range widths {
		widths[i] = min(max(widths[i], 1), limit)
	}
	return widths
}

// View renders the grid. cursorRow and cursorCol highlight one cell; pass -1
// to render without a cursor.
func (g Grid) View(cursorRow, cursorCol int) string {
	if len(g.Headers) == 0 {
		return ""
	}
	widths := g.Widths()

	header := make([]string, len(g.Headers))
	rule := make([]string, len(g.Headers))
	for i, h := range g.Headers {
		header[i] = headerStyle.Render(fit(h, widths[i]))
		rule[i] = strings.Repeat("─", widths[i])
	}

	lines := []string{
		strings.Join(header, separator),
		ruleStyle.Render(strings.Join(rule, "─┼─")),
	}
	for r, row := range g.Rows {
		cells := make([]string, len(widths))
		for c := range widths {
			var cell GridCell
			if c < len(row.Cells) {
				cell = row.Cells[c]
			}
			text := fit(cell.Text, widths[c])
			switch {
			case r == cursorRow && c == cursorCol:
				text = cursorStyle.Render(text)
			case cell.Invalid:
				text = invalidStyle.Render(text)
			case cell.Modified:
				text = modifiedStyle.Render(text)
			case row.Selected:
				text = selectedStyle.Render(text)
			}
			cells[c] = text
		}
		marker := "  "
		if row.Selected {
			marker = "▌ "
		}
		lines = append(lines, marker+strings.Join(cells, separator))
	}
	lines[0] = "  " + lines[0]
	lines[1] = "  " + lines[1]
	return strings.Join(lines, "\n")
}

// fit truncates s to width cells and pads it with spaces.
func fit(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if runewidth.StringWidth(s) > width {
		s = ansi.Truncate(s, width, "…")
	}
	if pad := width - runewidth.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}
