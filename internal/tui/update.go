package tui

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/tableflow/internal/events"
	actionsplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/actions"
	editplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/edit"
	selectionplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/selection"
	sortplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/sort"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case drainMsg:
		m.host.Drain()
		if m.quitting {
			return m, nil
		}
		m.clamp()
		return m, drainTick()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width/3, 10)
		return m, nil
	case tea.KeyMsg:
		if m.session != nil {
			return m.updateEditing(msg)
		}
		return m.updateBrowsing(msg)
	case tea.QuitMsg:
		m.quitting = true
		return m, nil
	}

	return m, nil
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		m.row--
	case "down", "j":
		m.row++
	case "left", "h":
		m.col--
	case "right", "l":
		m.col++
	case "enter":
		m.startEdit()
	case "ctrl+s":
		m.saveRow()
	case " ":
		m.toggleSelection()
	case "s":
		m.toggleSort()
	}
	m.clamp()
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.finishEdit(editplugin.KeyEnter)
		return m, nil
	case tea.KeyEsc:
		m.finishEdit(editplugin.KeyEscape)
		return m, nil
	case tea.KeyCtrlC:
		m.session.Cancel()
		m.session = nil
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.session.Type(m.input.Value())
	return m, cmd
}

func (m *Model) startEdit() {
	cell := m.current()
	if cell == nil {
		return
	}
	edit, ok := m.host.GetPlugin(editplugin.Name).(*editplugin.Plugin)
	if !ok {
		m.report("", errors.New("editing is not enabled"))
		return
	}
	session, err := edit.StartEdit(m.ctx, cell)
	if err != nil {
		m.report("", err)
		return
	}
	m.session = session
	m.input.SetValue(session.Value())
	m.input.CursorEnd()
	m.input.Focus()
	m.report("", nil)
}

func (m *Model) finishEdit(key string) {
	session := m.session
	cell := session.Cell()
	session.Type(m.input.Value())
	err := session.KeyDown(m.ctx, key)

	edit, _ := m.host.GetPlugin(editplugin.Name).(*editplugin.Plugin)
	if edit != nil && edit.Session(cell) != nil {
		// onKeydown vetoed the key; the field stays open.
		return
	}
	m.session = nil
	m.input.Blur()

	switch {
	case errors.Is(err, editplugin.ErrSaveVetoed):
		m.report("", fmt.Errorf("%s: %w", cell.Column().Label, err))
	case err != nil:
		m.report("", err)
	case key == editplugin.KeyEnter:
		m.report(fmt.Sprintf("%s set to %q", cell.Column().Label, cell.Value()), nil)
	default:
		m.report("edit cancelled", nil)
	}
}

func (m *Model) saveRow() {
	cell := m.current()
	if cell == nil {
		return
	}
	row := cell.Row()

	var err error
	if actions, ok := m.host.GetPlugin(actionsplugin.Name).(*actionsplugin.Plugin); ok {
		err = actions.Execute(m.ctx, row, actionsplugin.ActionSave)
	} else {
		err = m.host.MarkRowAsSaved(m.ctx, row, map[string]any{"source": events.SourceManual})
	}
	m.report(fmt.Sprintf("row %s saved", row.ID()), err)
}

func (m *Model) toggleSelection() {
	cell := m.current()
	if cell == nil {
		return
	}
	if sel, ok := m.host.GetPlugin(selectionplugin.Name).(*selectionplugin.Plugin); ok {
		sel.Toggle(m.ctx, cell.Row())
	}
}

func (m *Model) toggleSort() {
	cell := m.current()
	if cell == nil {
		return
	}
	sorter, ok := m.host.GetPlugin(sortplugin.Name).(*sortplugin.Plugin)
	if !ok {
		return
	}
	rowID := cell.Row().ID()
	if err := sorter.Toggle(m.ctx, cell.Column().ID); err != nil {
		m.report("", err)
		return
	}
	m.follow(rowID)
}

// follow moves the cursor to the row with id after rows were rearranged.
func (m *Model) follow(rowID string) {
	for i, row := range m.grid().Rows {
		if row.ID == rowID {
			m.row = i
			return
		}
	}
}
