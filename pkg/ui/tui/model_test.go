package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"bskyfollow/pkg/bulk"
	"bskyfollow/pkg/models"
)

func newTestModel(cancel func()) (*Model, *time.Time) {
	now := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)
	model := NewModel("unfollow", Quotas{PerMinute: 60, PerHour: 3000, PerDay: 30000, Delay: time.Second}, cancel)
	model.now = func() time.Time { return now }
	model.startTime = now
	return &model, &now
}

func TestModel(t *testing.T) {
	model, now := newTestModel(nil)

	model.ApplyEvent(bulk.Event{Kind: bulk.EventStarted, Operation: "unfollow", Total: 4})
	if model.state != RunActive {
		t.Errorf("Expected RunActive, got %v", model.state)
	}
	if model.total != 4 {
		t.Errorf("Expected total 4, got %d", model.total)
	}

	model.ApplyEvent(bulk.Event{Kind: bulk.EventMinuteBucket, Bucket: 1})
	model.ApplyEvent(bulk.Event{Kind: bulk.EventProcessing, Operation: "unfollow", Handle: "a.test", Current: 1, Total: 4})
	model.SetProgress(25)
	*now = now.Add(30 * time.Second)

	if model.current != 1 || model.percent != 25 {
		t.Errorf("Expected 1 processed at 25%%, got %d at %d%%", model.current, model.percent)
	}
	if model.minute != 1 {
		t.Errorf("Expected minute bucket 1, got %d", model.minute)
	}
	if eta := model.ETA(); eta != 90*time.Second {
		t.Errorf("Expected ETA 90s, got %v", eta)
	}

	model.ApplyEvent(bulk.Event{Kind: bulk.EventMinuteLimit, Wait: 30 * time.Second})
	model.ApplyEvent(bulk.Event{Kind: bulk.EventCountdownSeconds, Remaining: 30})
	if model.state != RunPaused {
		t.Errorf("Expected RunPaused during countdown, got %v", model.state)
	}
	if model.countdown != "Resuming in 30 seconds" {
		t.Errorf("Unexpected countdown %q", model.countdown)
	}

	model.ApplyEvent(bulk.Event{Kind: bulk.EventContinuing})
	if model.state != RunActive || model.countdown != "" {
		t.Errorf("Expected active run with no countdown after continuing")
	}

	model.ApplyEvent(bulk.Event{Kind: bulk.EventInvalidTarget, Handle: "b.test", Current: 2, Total: 4})
	if model.invalid != 1 {
		t.Errorf("Expected 1 invalid target, got %d", model.invalid)
	}

	model.ApplyEvent(bulk.Event{Kind: bulk.EventFinished, Result: models.RunResult{Successful: 3, Failed: 1}})
	if !model.Done() {
		t.Error("Expected model to be done")
	}
	if model.Result().Successful != 3 || model.percent != 100 {
		t.Errorf("Unexpected final state %+v at %d%%", model.Result(), model.percent)
	}

	// started, minute limit, invalid target, finished
	if len(model.logMessages) != 4 {
		t.Errorf("Expected 4 log messages, got %d", len(model.logMessages))
	}
}

func TestModelLogLimit(t *testing.T) {
	model, _ := newTestModel(nil)
	for i := 0; i < 60; i++ {
		model.AddLogMessage("INFO", "message")
	}
	if len(model.logMessages) != 50 {
		t.Errorf("Expected log to be capped at 50, got %d", len(model.logMessages))
	}
}

func TestUpdateMessages(t *testing.T) {
	model, _ := newTestModel(nil)

	model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	model.Update(StatusMsg(bulk.Event{Kind: bulk.EventStarted, Operation: "follow", Total: 2}))
	model.Update(ProgressMsg(50))
	model.Update(DoneMsg{Err: errors.New("daily limit reached")})

	if model.width != 120 || model.percent != 50 {
		t.Errorf("Unexpected model state: width=%d percent=%d", model.width, model.percent)
	}
	if !model.Done() {
		t.Error("DoneMsg should end the run")
	}
	last := model.logMessages[len(model.logMessages)-1]
	if last.Message != "Press q to exit" {
		t.Errorf("Unexpected last log %q", last.Message)
	}

	view := model.View()
	for _, want := range []string{"PROGRESS", "LIMITS", "daily limit reached", "30000"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}
}

func TestQuitCancelsActiveRun(t *testing.T) {
	cancelled := 0
	model, _ := newTestModel(func() { cancelled++ })

	model.ApplyEvent(bulk.Event{Kind: bulk.EventStarted, Total: 3})
	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	if cancelled != 1 {
		t.Errorf("Expected cancel to be called once, got %d", cancelled)
	}
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}

	// Quitting after the run is done does not cancel again
	model.ApplyEvent(bulk.Event{Kind: bulk.EventFinished})
	model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cancelled != 1 {
		t.Errorf("Expected no further cancel, got %d", cancelled)
	}
}

func TestViewBeforeResize(t *testing.T) {
	model, _ := newTestModel(nil)
	if got := model.View(); got != "Initializing..." {
		t.Errorf("Expected placeholder view, got %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{-time.Second, "00:00"},
		{65 * time.Second, "01:05"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "02:03:04"},
	}

	for _, test := range tests {
		if result := formatDuration(test.d); result != test.expected {
			t.Errorf("formatDuration(%v) = %s, expected %s", test.d, result, test.expected)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefghij", 8); got != "abcde..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 8); got != "short" {
		t.Errorf("truncate = %q", got)
	}
}
