package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestViewRendersBasicLayout(t *testing.T) {
	t.Parallel()

	m, _ := newModel(t)
	view := m.View()
	require.Contains(t, view, "TableFlow • grid")
	require.Contains(t, view, "Name")
	require.Contains(t, view, "Bob")
	require.Contains(t, view, "Ann")
	require.Contains(t, view, "Rows: 2")
	require.Contains(t, view, "q quit")
}

func TestViewShowsEditField(t *testing.T) {
	t.Parallel()

	m, _ := newModel(t)
	m = press(m, tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyEnter}, runes("7"))
	view := m.View()
	require.Contains(t, view, "Edit Qty:")
	require.Contains(t, view, "107")
}

func TestViewShowsEditsAndStatus(t *testing.T) {
	t.Parallel()

	m, _ := newModel(t)
	m = press(m, tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyEnter}, runes("1"), tea.KeyMsg{Type: tea.KeyEnter}, tea.KeyMsg{Type: tea.KeySpace})
	view := m.View()
	require.Contains(t, view, "1 modified")
	require.Contains(t, view, "1 unsaved")
	require.Contains(t, view, "1 selected")
	require.Contains(t, view, `Qty set to "101"`)
}

func TestViewShowsSort(t *testing.T) {
	t.Parallel()

	m, _ := newModel(t)
	m = press(m, runes("s"))
	require.Contains(t, m.View(), "Sorted by name asc")
}

func TestViewEmptyWhenQuitting(t *testing.T) {
	t.Parallel()

	m, _ := newModel(t)
	m = press(m, runes("q"))
	require.Equal(t, "", m.View())
}
