package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"bskyfollow/pkg/bulk"
)

// TUI runs the full-screen display for one bulk run. It implements
// bulk.Reporter; updates are forwarded to the bubbletea program.
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a new TUI instance
func NewTUI(title string, quotas Quotas, cancel context.CancelFunc, opts ...tea.ProgramOption) *TUI {
	model := NewModel(title, quotas, cancel)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)

	return &TUI{
		program: tea.NewProgram(&model, opts...),
		model:   &model,
	}
}

// Run starts the display, runs work with the TUI as its reporter, and
// blocks until the user quits. It returns work's error.
func (t *TUI) Run(work func(rep bulk.Reporter) error) error {
	workErr := make(chan error, 1)
	go func() {
		err := work(t)
		workErr <- err
		t.program.Send(DoneMsg{Err: err})
	}()

	if _, err := t.program.Run(); err != nil {
		return err
	}
	// The user may quit before work returns; cancel has been called by then
	return <-workErr
}

// Progress implements bulk.Reporter
func (t *TUI) Progress(percent int) {
	t.program.Send(ProgressMsg(percent))
}

// Status implements bulk.Reporter
func (t *TUI) Status(ev bulk.Event) {
	t.program.Send(StatusMsg(ev))
}

// Log sends a free-form log line
func (t *TUI) Log(level, message string) {
	t.program.Send(LogMsg{Level: level, Message: message})
}

// Close stops the TUI
func (t *TUI) Close() {
	t.program.Quit()
}
