package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	actionsplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/actions"
	filterplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/filter"
	selectionplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/selection"
	sortplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/sort"
	"github.com/alexisbeaulieu97/tableflow/internal/tui/components"
)

const helpText = "↑↓←→ move • enter edit • ctrl+s save row • space select • s sort • q quit"

// View renders the current state of the model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{titleStyle.Render(fmt.Sprintf("TableFlow • %s", m.title))}

	g := m.grid()
	if m.session != nil && m.row < len(g.Rows) && m.col < len(g.Rows[m.row].Cells) {
		g.Rows[m.row].Cells[m.col].Text = m.input.Value()
	}
	if len(g.Rows) == 0 {
		sections = append(sections, sectionStyle.Render("No rows to show"))
	} else {
		sections = append(sections, sectionStyle.Render(g.View(m.row, m.col)))
	}

	if m.session != nil {
		label := m.session.Cell().Column().Label
		sections = append(sections, sectionStyle.Render(editStyle.Render("Edit "+label+": ")+m.input.View()))
	}

	summary := components.NewSummary(m.summaryData(len(g.Rows))).View()
	if strings.TrimSpace(summary) != "" {
		if m.statusErr {
			summary = failureStyle.Render(summary)
		}
		sections = append(sections, sectionStyle.Render(summary))
	}

	sections = append(sections, sectionStyle.Render(helpStyle.Render(helpText)))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) summaryData(visible int) components.SummaryData {
	data := components.SummaryData{
		Visible: visible,
		Message: m.status,
		Failed:  m.statusErr,
	}

	for _, row := range m.host.Table().Rows() {
		data.Rows++
		if m.host.IsModified(row) {
			data.Modified++
		}
	}
	if actions, ok := m.host.GetPlugin(actionsplugin.Name).(*actionsplugin.Plugin); ok {
		data.Pending = len(actions.PendingRows())
	}
	if sel, ok := m.host.GetPlugin(selectionplugin.Name).(*selectionplugin.Plugin); ok {
		data.Selected = len(sel.Selected())
	}
	if sorter, ok := m.host.GetPlugin(sortplugin.Name).(*sortplugin.Plugin); ok {
		if column, dir := sorter.State(); column != "" && dir != sortplugin.None {
			data.Sort = fmt.Sprintf("%s %s", column, dir)
		}
	}
	if filter, ok := m.host.GetPlugin(filterplugin.Name).(*filterplugin.Plugin); ok {
		data.Filter = filter.Filter()
	}
	return data
}
