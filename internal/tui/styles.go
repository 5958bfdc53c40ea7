package tui

import "github.com/charmbracelet/lipgloss"

const sidebarWidth = 28

var (
	sidebarStyle = lipgloss.NewStyle().
			Width(sidebarWidth).
			Border(lipgloss.RoundedBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("240")).
			PaddingRight(1)

	selectedSessionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	sessionStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))

	headerStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)
