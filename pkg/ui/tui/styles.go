package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	skyBlue   = lipgloss.Color("#1185FE")
	butterfly = lipgloss.Color("#7CC4FF")
	mint      = lipgloss.Color("#3DDC97")
	amber     = lipgloss.Color("#FFB020")
	alertRed  = lipgloss.Color("#FF4D4F")
	darkBg    = lipgloss.Color("#0B1420")
	panelBg   = lipgloss.Color("#16202E")
	dimWhite  = lipgloss.Color("#A8B3C2")

	baseStyle = lipgloss.NewStyle().
			Background(darkBg).
			Foreground(dimWhite)

	headerStyle = lipgloss.NewStyle().
			Foreground(skyBlue).
			Bold(true).
			Padding(1, 0).
			Align(lipgloss.Center)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(skyBlue).
			Background(panelBg).
			Padding(0, 2)

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(butterfly).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	successStyle = lipgloss.NewStyle().
			Foreground(mint).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(alertRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true)

	logTimestampStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#5C6B7E"))

	logMessageStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5C6B7E")).
			Padding(1, 0, 0, 2)

	titleStyle = lipgloss.NewStyle().
			Background(skyBlue).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1)
)

// StateStyle returns the style for a run state badge
func StateStyle(s RunState) lipgloss.Style {
	switch s {
	case RunFinished:
		return successStyle
	case RunCancelled:
		return errorStyle
	case RunPaused:
		return warningStyle
	default:
		return statsLabelStyle
	}
}

// QuotaStyle colors a quota usage percentage
func QuotaStyle(usage float64) lipgloss.Style {
	switch {
	case usage >= 90:
		return errorStyle
	case usage >= 70:
		return warningStyle
	default:
		return successStyle
	}
}
