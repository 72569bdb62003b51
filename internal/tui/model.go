package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	editplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/edit"
	selectionplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/selection"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
	"github.com/alexisbeaulieu97/tableflow/internal/tableflow"
	"github.com/alexisbeaulieu97/tableflow/internal/tui/components"
)

// DrainInterval is how often the viewer runs tasks queued on the host.
const DrainInterval = 50 * time.Millisecond

type drainMsg struct{}

// Model contains the Bubbletea state of the table viewer.
type Model struct {
	ctx   context.Context
	host  *tableflow.TableFlow
	title string

	row int
	col int

	input   textinput.Model
	session *editplugin.Session

	status    string
	statusErr bool
	quitting  bool
	width     int
}

// NewModel constructs a viewer over an initialized host.
func NewModel(ctx context.Context, host *tableflow.TableFlow, title string) Model {
	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 512

	if title == "" {
		title = host.Options().TableID
	}
	return Model{
		ctx:   ctx,
		host:  host,
		title: title,
		input: input,
	}
}

// Init starts the Bubbletea program.
func (m Model) Init() tea.Cmd {
	return drainTick()
}

func drainTick() tea.Cmd {
	return tea.Tick(DrainInterval, func(time.Time) tea.Msg { return drainMsg{} })
}

// Cursor returns the focused visible row and column.
func (m Model) Cursor() (row, col int) {
	return m.row, m.col
}

// Editing reports whether an edit session is open.
func (m Model) Editing() bool {
	return m.session != nil
}

// Status returns the last status message and whether it reports a failure.
func (m Model) Status() (string, bool) {
	return m.status, m.statusErr
}

// Quitting reports whether the user asked to leave.
func (m Model) Quitting() bool {
	return m.quitting
}

func (m Model) grid() components.Grid {
	var selected func(*table.Row) bool
	if sel, ok := m.host.GetPlugin(selectionplugin.Name).(*selectionplugin.Plugin); ok {
		selected = sel.IsSelected
	}
	return components.GridFromTable(m.host.Table(), selected)
}

// current returns the cell under the cursor, or nil when the table has no
// visible rows.
func (m Model) current() *table.Cell {
	g := m.grid()
	cols := m.host.Table().Columns()
	if m.row < 0 || m.row >= len(g.Rows) || m.col < 0 || m.col >= len(cols) {
		return nil
	}
	return m.host.Table().Cell(g.Rows[m.row].ID, cols[m.col].ID)
}

func (m *Model) clamp() {
	rows := len(m.grid().Rows)
	cols := len(m.host.Table().Columns())
	m.row = min(max(m.row, 0), max(rows-1, 0))
	m.col = min(max(m.col, 0), max(cols-1, 0))
}

func (m *Model) report(msg string, err error) {
	if err != nil {
		m.status = err.Error()
		m.statusErr = true
		return
	}
	m.status = msg
	m.statusErr = false
}
