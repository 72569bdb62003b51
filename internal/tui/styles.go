package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionStyle = lipgloss.NewStyle().MarginTop(1)
	editStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)
