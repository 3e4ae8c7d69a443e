package components

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#7DD3FC")
	muted  = lipgloss.Color("#6B7280")
	danger = lipgloss.Color("#FCA5A5")
	good   = lipgloss.Color("#A8E6CF")

	titleStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(muted)

	valueStyle = lipgloss.NewStyle().
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(danger)

	activeStyle = lipgloss.NewStyle().
			Foreground(good)

	helpStyle = lipgloss.NewStyle().
			Foreground(muted).
			Italic(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)
)
