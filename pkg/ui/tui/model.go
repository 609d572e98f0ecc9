package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bskyfollow/pkg/bulk"
	"bskyfollow/pkg/models"
)

// RunState is the lifecycle of the run being displayed
type RunState int

const (
	RunPending RunState = iota
	RunActive
	RunPaused
	RunFinished
	RunCancelled
)

func (s RunState) String() string {
	switch s {
	case RunActive:
		return "RUNNING"
	case RunPaused:
		return "WAITING"
	case RunFinished:
		return "FINISHED"
	case RunCancelled:
		return "CANCELLED"
	default:
		return "PENDING"
	}
}

// Quotas is shown in the limits panel
type Quotas struct {
	PerMinute int
	PerHour   int
	PerDay    int
	Delay     time.Duration
}

// Model is the bubbletea model for one bulk run
type Model struct {
	spinner spinner.Model
	bar     progress.Model

	title  string
	quotas Quotas
	state  RunState

	// Counters
	percent   int
	current   int
	total     int
	invalid   int
	minute    int
	hour      int
	countdown string
	status    string
	result    models.RunResult
	runErr    error

	startTime time.Time
	now       func() time.Time

	// UI state
	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	// cancel stops the run when the user quits before it is done
	cancel func()
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a model for a run titled title. cancel may be nil.
func NewModel(title string, quotas Quotas, cancel func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(skyBlue)

	bar := progress.New(progress.WithGradient(string(skyBlue), string(butterfly)))
	bar.Width = 40

	return Model{
		spinner:        s,
		bar:            bar,
		title:          title,
		quotas:         quotas,
		startTime:      time.Now(),
		now:            time.Now,
		maxLogMessages: 50,
		cancel:         cancel,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// SetProgress records a progress percentage
func (m *Model) SetProgress(percent int) {
	m.percent = percent
}

// ApplyEvent folds a run event into the model
func (m *Model) ApplyEvent(ev bulk.Event) {
	switch ev.Kind {
	case bulk.EventStarted, bulk.EventListCreated:
		m.state = RunActive
		m.total = ev.Total
		m.current = 0
		m.startTime = m.now()
		m.AddLogMessage("INFO", ev.String())

	case bulk.EventCreatingList:
		m.state = RunActive
		m.AddLogMessage("INFO", ev.String())

	case bulk.EventProcessing, bulk.EventAddingMember:
		m.state = RunActive
		m.current = ev.Current
		m.total = ev.Total
		m.countdown = ""
		m.status = ev.String()

	case bulk.EventMinuteBucket:
		m.minute = ev.Bucket

	case bulk.EventHourBucket:
		m.hour = ev.Bucket

	case bulk.EventMinuteLimit, bulk.EventHourLimit:
		m.state = RunPaused
		m.AddLogMessage("WARN", ev.String())

	case bulk.EventCountdownSeconds, bulk.EventCountdownMinutes:
		m.state = RunPaused
		m.countdown = ev.String()

	case bulk.EventContinuing:
		m.state = RunActive
		m.countdown = ""

	case bulk.EventDailyLimit:
		m.AddLogMessage("WARN", ev.String())

	case bulk.EventInvalidTarget:
		m.invalid++
		m.current = ev.Current
		m.AddLogMessage("ERROR", ev.String())

	case bulk.EventCancelled:
		m.state = RunCancelled
		m.result = ev.Result
		m.AddLogMessage("WARN", ev.String())

	case bulk.EventFinished:
		m.state = RunFinished
		m.result = ev.Result
		m.percent = 100
		m.countdown = ""
		m.AddLogMessage("SUCCESS", ev.String())
	}
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR":
		color = alertRed
	case "WARN":
		color = amber
	case "SUCCESS":
		color = mint
	case "INFO":
		color = skyBlue
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    m.now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Done reports whether the run has ended
func (m *Model) Done() bool {
	return m.state == RunFinished || m.state == RunCancelled
}

// Result returns the final tallies once the run has ended
func (m *Model) Result() models.RunResult {
	return m.result
}

// ETA estimates the remaining time from the pace so far
func (m *Model) ETA() time.Duration {
	if m.current == 0 || m.total <= m.current {
		return 0
	}
	perItem := m.now().Sub(m.startTime) / time.Duration(m.current)
	return perItem * time.Duration(m.total-m.current)
}
