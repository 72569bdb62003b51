package main

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/tableflow/internal/tui"
)

func TestViewRequiresTerminal(t *testing.T) {
	original := stdoutIsTerminal
	t.Cleanup(func() { stdoutIsTerminal = original })
	stdoutIsTerminal = func() bool { return false }

	htmlPath, configPath := writeFixtures(t)
	_, err := executeCommand(newRootCmd(newTestApp()), "view", "--html", htmlPath, "-c", configPath)
	require.ErrorIs(t, err, errNotInteractive)
}

func TestViewRunsViewerAndWritesDocument(t *testing.T) {
	originalTerminal, originalProgram := stdoutIsTerminal, runProgram
	t.Cleanup(func() {
		stdoutIsTerminal = originalTerminal
		runProgram = originalProgram
	})
	stdoutIsTerminal = func() bool { return true }

	var seen tea.Model
	runProgram = func(m tea.Model) (tea.Model, error) {
		seen = m
		model := m.(tui.Model)
		for _, key := range []tea.KeyMsg{
			{Type: tea.KeyRight},
			{Type: tea.KeyEnter},
			{Type: tea.KeyRunes, Runes: []rune("0")},
			{Type: tea.KeyEnter},
		} {
			updated, _ := model.Update(key)
			model = updated.(tui.Model)
		}
		return model, nil
	}

	htmlPath, configPath := writeFixtures(t)
	out := filepath.Join(t.TempDir(), "edited.html")
	output, err := executeCommand(newRootCmd(newTestApp()), "view", "--html", htmlPath, "-c", configPath, "-o", out)
	require.NoError(t, err)
	require.NotNil(t, seen)
	require.Contains(t, output, "wrote "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(data), `data-value="40"`)
}
