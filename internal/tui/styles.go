package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	providerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	doneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	currentStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	responseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	promptStyle    = lipgloss.NewStyle().Bold(true).MarginTop(1)
	listeningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)
