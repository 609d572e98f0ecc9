package bulk

import (
	"fmt"
	"time"

	"bskyfollow/pkg/models"
)

// EventKind identifies a status update emitted during a run.
type EventKind int

const (
	EventStarted EventKind = iota
	EventMinuteBucket
	EventHourBucket
	EventMinuteLimit
	EventHourLimit
	EventCountdownSeconds
	EventCountdownMinutes
	EventContinuing
	EventDailyLimit
	EventProcessing
	EventInvalidTarget
	EventCreatingList
	EventListCreated
	EventAddingMember
	EventCancelled
	EventFinished
)

var eventNames = map[EventKind]string{
	EventStarted:          "started",
	EventMinuteBucket:     "minute_bucket",
	EventHourBucket:       "hour_bucket",
	EventMinuteLimit:      "minute_limit",
	EventHourLimit:        "hour_limit",
	EventCountdownSeconds: "countdown_seconds",
	EventCountdownMinutes: "countdown_minutes",
	EventContinuing:       "continuing",
	EventDailyLimit:       "daily_limit",
	EventProcessing:       "processing",
	EventInvalidTarget:    "invalid_target",
	EventCreatingList:     "creating_list",
	EventListCreated:      "list_created",
	EventAddingMember:     "adding_member",
	EventCancelled:        "cancelled",
	EventFinished:         "finished",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is a typed status update. Which fields are meaningful depends on
// Kind; String renders the human-readable status line.
type Event struct {
	Kind      EventKind
	RunID     string
	Operation string
	Handle    string
	Current   int
	Total     int
	// Bucket is the 1-based minute or hour bucket number
	Bucket    int
	// Remaining is the countdown value in seconds or minutes
	Remaining int
	Wait      time.Duration
	Name      string
	Result    models.RunResult
}

func (e Event) String() string {
	switch e.Kind {
	case EventStarted:
		return fmt.Sprintf("Starting %s of %d accounts", e.Operation, e.Total)
	case EventMinuteBucket:
		return fmt.Sprintf("Minute %d started", e.Bucket)
	case EventHourBucket:
		return fmt.Sprintf("Hour %d started", e.Bucket)
	case EventMinuteLimit:
		return fmt.Sprintf("Per-minute limit reached, waiting %s", e.Wait.Round(time.Second))
	case EventHourLimit:
		return fmt.Sprintf("Per-hour limit reached, waiting %s", e.Wait.Round(time.Minute))
	case EventCountdownSeconds:
		return fmt.Sprintf("Resuming in %d seconds", e.Remaining)
	case EventCountdownMinutes:
		return fmt.Sprintf("Resuming in %d minutes", e.Remaining)
	case EventContinuing:
		return "Continuing"
	case EventDailyLimit:
		return fmt.Sprintf("Daily limit of %d reached, stopping", e.Current)
	case EventProcessing:
		return fmt.Sprintf("%s @%s (%d/%d)", e.Operation, e.Handle, e.Current, e.Total)
	case EventInvalidTarget:
		return fmt.Sprintf("Skipping @%s (%d/%d): missing identifier", e.Handle, e.Current, e.Total)
	case EventCreatingList:
		return fmt.Sprintf("Creating list %q", e.Name)
	case EventListCreated:
		return fmt.Sprintf("List created, adding %d members", e.Total)
	case EventAddingMember:
		return fmt.Sprintf("Adding @%s (%d/%d)", e.Handle, e.Current, e.Total)
	case EventCancelled:
		return fmt.Sprintf("Cancelled after %d of %d", e.Result.Attempted(), e.Total)
	case EventFinished:
		return fmt.Sprintf("Done: %d successful, %d failed", e.Result.Successful, e.Result.Failed)
	default:
		return e.Kind.String()
	}
}

// Reporter receives progress and status updates from a run. Calls are made
// synchronously from the goroutine running the executor.
type Reporter interface {
	Progress(percent int)
	Status(ev Event)
}

// ReporterFuncs adapts plain functions to Reporter. Nil fields are skipped.
type ReporterFuncs struct {
	OnProgress func(percent int)
	OnStatus   func(ev Event)
}

func (r ReporterFuncs) Progress(percent int) {
	if r.OnProgress != nil {
		r.OnProgress(percent)
	}
}

func (r ReporterFuncs) Status(ev Event) {
	if r.OnStatus != nil {
		r.OnStatus(ev)
	}
}

// NopReporter discards all updates.
var NopReporter Reporter = ReporterFuncs{}

// Recorder is a Reporter that keeps every update in order.
type Recorder struct {
	Updates []Update
}

// Update is one recorded call: either a progress value or a status event.
type Update struct {
	IsProgress bool
	Percent    int
	Event      Event
}

func (r *Recorder) Progress(percent int) {
	r.Updates = append(r.Updates, Update{IsProgress: true, Percent: percent})
}

func (r *Recorder) Status(ev Event) {
	r.Updates = append(r.Updates, Update{Event: ev})
}

// Percents returns the recorded progress values.
func (r *Recorder) Percents() []int {
	var out []int
	for _, u := range r.Updates {
		if u.IsProgress {
			out = append(out, u.Percent)
		}
	}
	return out
}

// Events returns recorded status events of the given kinds, or all of them
// when no kind is given.
func (r *Recorder) Events(kinds ...EventKind) []Event {
	var out []Event
	for _, u := range r.Updates {
		if u.IsProgress {
			continue
		}
		if len(kinds) == 0 {
			out = append(out, u.Event)
			continue
		}
		for _, k := range kinds {
			if u.Event.Kind == k {
				out = append(out, u.Event)
				break
			}
		}
	}
	return out
}

func percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return int(float64(done)*100/float64(total) + 0.5)
}
