package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Cyan    = lipgloss.Color("#00E5FF") // Primary highlight
	Magenta = lipgloss.Color("#FF1B6B")
	Yellow  = lipgloss.Color("#FFB500") // Warnings
	Green   = lipgloss.Color("#2AFFAA") // Success
	Red     = lipgloss.Color("#FF5555") // Errors
	Blue    = lipgloss.Color("#3B82F6")

	Muted = lipgloss.Color("#6C7280")
	Text  = lipgloss.Color("#ECEFF4")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	labelStyle   = lipgloss.NewStyle().Foreground(Muted).Width(12)
	valueStyle   = lipgloss.NewStyle().Foreground(Text)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(Green)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(Red)
	warnStyle    = lipgloss.NewStyle().Foreground(Yellow)
	logStyle     = lipgloss.NewStyle().Foreground(Muted)
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Blue).
			Padding(0, 1)
)

// phaseColor maps a sender phase name to its color.
func phaseColor(phase string) lipgloss.Color {
	switch phase {
	case "signing":
		return Magenta
	case "sending":
		return Yellow
	case "confirming":
		return Blue
	default:
		return Muted
	}
}
