package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, headerStyle.Width(m.width).Render("bskyfollow · "+m.title))

	columnWidth := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderProgressPanel(columnWidth),
		m.renderStatsPanel(columnWidth),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderQuotaPanel(columnWidth),
		m.renderLogsPanel(columnWidth),
	)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help, q to quit"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderProgressPanel(width int) string {
	title := titleStyle.Render(" PROGRESS ")

	state := StateStyle(m.state).Render(m.state.String())
	if m.state == RunActive {
		state = m.spinner.View() + " " + state
	}

	status := m.status
	if m.countdown != "" {
		status = warningStyle.Render(m.countdown)
	}
	if status == "" {
		status = lipgloss.NewStyle().Foreground(dimWhite).Render("Waiting for the first account...")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		state,
		m.bar.View()+fmt.Sprintf(" %3d%%", m.percent),
		truncate(status, width-6),
	)
	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m *Model) renderStatsPanel(width int) string {
	title := titleStyle.Render(" RUN ")

	elapsed := m.now().Sub(m.startTime)
	rows := []string{
		statRow("Processed:", fmt.Sprintf("%d/%d", m.current, m.total)),
		statRow("Elapsed:", formatDuration(elapsed)),
		statRow("ETA:", formatDuration(m.ETA())),
	}
	if m.minute > 0 {
		rows = append(rows, statRow("Minute / hour:", fmt.Sprintf("%d / %d", m.minute, max(m.hour, 1))))
	}
	if m.invalid > 0 {
		rows = append(rows, errorStyle.Render(fmt.Sprintf("%d skipped (no identifier)", m.invalid)))
	}
	if m.Done() {
		rows = append(rows,
			successStyle.Render(fmt.Sprintf("✓ %d successful", m.result.Successful)),
			errorStyle.Render(fmt.Sprintf("✗ %d failed", m.result.Failed)),
		)
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n")),
	)
}

func (m *Model) renderQuotaPanel(width int) string {
	title := titleStyle.Render(" LIMITS ")

	rows := []string{
		quotaRow("Per minute:", m.quotas.PerMinute),
		quotaRow("Per hour:", m.quotas.PerHour),
		quotaRow("Per day:", m.quotas.PerDay),
		statRow("Delay:", m.quotas.Delay.String()),
	}

	// Daily usage is an upper bound: attempted items, successful or not
	if m.quotas.PerDay > 0 {
		usage := float64(m.current) / float64(m.quotas.PerDay) * 100
		rows = append(rows, QuotaStyle(usage).Render(fmt.Sprintf("%.0f%% of daily quota", usage)))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n")),
	)
}

func (m *Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" EVENTS ")

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		message := logMessageStyle.Render(truncate(log.Message, width-25))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, message))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No events yet...")
	}

	logsHeight := m.height - 20
	if logsHeight < 5 {
		logsHeight = 5
	}

	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Quit (cancels a run in progress)
    ctrl+l   - Clear events
    ?        - Toggle this help

  States:
    ` + statsLabelStyle.Render("RUNNING") + `   - Writing
    ` + warningStyle.Render("WAITING") + `   - Paused for a quota
    ` + successStyle.Render("FINISHED") + `  - Done
    ` + errorStyle.Render("CANCELLED") + ` - Stopped early
`
	return panelStyle.Width(m.width).Render(help)
}

func statRow(label, value string) string {
	return fmt.Sprintf("%s %s", statsLabelStyle.Render(label), statsValueStyle.Render(value))
}

func quotaRow(label string, limit int) string {
	if limit <= 0 {
		return statRow(label, "unlimited")
	}
	return statRow(label, fmt.Sprintf("%d", limit))
}

func truncate(s string, n int) string {
	if n <= 3 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
