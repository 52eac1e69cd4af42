package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonOrange  = lipgloss.Color("#FF6700")
	neonRed     = lipgloss.Color("#FF3131")
	darkBg      = lipgloss.Color("#0A0E27")
	dimWhite    = lipgloss.Color("#B0B0B0")
	faintGray   = lipgloss.Color("#626262")

	logoStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Background(neonMagenta).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonMagenta).
			Padding(0, 1)

	usernameStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(neonYellow).
			Bold(true)

	checkedStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)

	postStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	dimStyle = lipgloss.NewStyle().
			Foreground(faintGray)

	successStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(neonRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(neonOrange).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(faintGray).
			Padding(1, 0, 0, 1)
)

// levelStyle returns the style for a log level
func levelStyle(level string) lipgloss.Style {
	switch level {
	case "ERROR":
		return errorStyle
	case "WARN":
		return warningStyle
	case "SUCCESS":
		return successStyle
	default:
		return lipgloss.NewStyle().Foreground(neonCyan)
	}
}
