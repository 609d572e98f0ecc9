package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"bskyfollow/pkg/bulk"
)

// ProgressMsg carries a progress percentage from the executor
type ProgressMsg int

// StatusMsg carries a run event from the executor
type StatusMsg bulk.Event

// DoneMsg is sent when the work function returns
type DoneMsg struct {
	Err error
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to refresh elapsed time and ETA
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = barWidth(msg.Width)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		updated, cmd := m.bar.Update(msg)
		if bar, ok := updated.(progress.Model); ok {
			m.bar = bar
		}
		return m, cmd

	case TickMsg:
		if m.Done() {
			return m, nil
		}
		return m, tickCmd()

	case ProgressMsg:
		m.SetProgress(int(msg))
		return m, m.bar.SetPercent(float64(msg) / 100)

	case StatusMsg:
		m.ApplyEvent(bulk.Event(msg))
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil

	case DoneMsg:
		m.runErr = msg.Err
		if msg.Err != nil {
			m.AddLogMessage("ERROR", msg.Err.Error())
		}
		if !m.Done() {
			m.state = RunFinished
		}
		m.AddLogMessage("INFO", "Press q to exit")
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if !m.Done() && m.cancel != nil {
			m.cancel()
			m.AddLogMessage("WARN", "Cancelled by user")
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = []LogMessage{}
		return m, nil
	}

	return m, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func barWidth(termWidth int) int {
	w := termWidth - 12
	if w > 80 {
		w = 80
	}
	if w < 10 {
		w = 10
	}
	return w
}
