package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"bskyfollow/pkg/bulk"
	"bskyfollow/pkg/models"
	"bskyfollow/pkg/relations"
)

const lineWidth = 100

// ConsoleReporter renders a bulk run as a single updating progress line.
// Notable events (quota pauses, the daily ceiling, skipped targets) are
// printed on their own lines above it.
type ConsoleReporter struct {
	mu       sync.Mutex
	out      io.Writer
	title    string
	percent  int
	status   string
	tracker  *RunTracker
	verbose  bool
	lineOpen bool
	failed   int
}

// NewConsoleReporter creates a reporter writing to out
func NewConsoleReporter(out io.Writer, title string, verbose bool) *ConsoleReporter {
	return &ConsoleReporter{
		out:     out,
		title:   title,
		tracker: NewRunTracker(),
		verbose: verbose,
	}
}

// Progress implements bulk.Reporter
func (c *ConsoleReporter) Progress(percent int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.percent = percent
	c.printLine()
}

// Status implements bulk.Reporter
func (c *ConsoleReporter) Status(ev bulk.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Kind {
	case bulk.EventProcessing, bulk.EventAddingMember:
		c.tracker.Observe(ev.Current, ev.Total)
		c.status = ev.String()
		c.printLine()

	case bulk.EventCountdownSeconds, bulk.EventCountdownMinutes, bulk.EventContinuing:
		c.status = ev.String()
		c.printLine()

	case bulk.EventMinuteBucket, bulk.EventHourBucket:
		if c.verbose {
			c.printEvent(Dim("•"), Dim(ev.String()))
		}

	case bulk.EventMinuteLimit, bulk.EventHourLimit:
		c.printEvent(Yellow("⚠"), Yellow(ev.String()))

	case bulk.EventDailyLimit:
		c.printEvent(Red("■"), Red(ev.String()))

	case bulk.EventInvalidTarget:
		c.failed++
		c.printEvent(Red("✗"), ev.String())

	case bulk.EventStarted, bulk.EventCreatingList, bulk.EventListCreated:
		c.tracker = NewRunTracker()
		c.tracker.Total = ev.Total
		c.printEvent(Magenta("→"), ev.String())

	case bulk.EventCancelled:
		c.printEvent(Yellow("✗"), Yellow(ev.String()))

	case bulk.EventFinished:
		c.percent = 100
		c.printLine()
		c.printEvent(Green("✓"), Green(ev.String()))
	}
}

// printLine redraws the progress line in place
func (c *ConsoleReporter) printLine() {
	line := fmt.Sprintf("%s [%s] %3d%%", Cyan(c.title), RenderBar(c.percent, 20), c.percent)
	if c.status != "" {
		line += " • " + c.status
	}
	if c.tracker.Done > 0 {
		line += fmt.Sprintf(" • %.1f/min", c.tracker.GetRate())
	}
	if eta, ok := c.tracker.GetETA(); ok && eta > 0 {
		line += " • eta " + FormatDuration(eta)
	}
	fmt.Fprintf(c.out, "\r%s\r%s", strings.Repeat(" ", lineWidth), line)
	c.lineOpen = true
}

// printEvent prints a standalone line, closing any open progress line first
func (c *ConsoleReporter) printEvent(icon, msg string) {
	if c.lineOpen {
		fmt.Fprintln(c.out)
		c.lineOpen = false
	}
	fmt.Fprintf(c.out, "%s %s\n", icon, msg)
}

// Close terminates an open progress line
func (c *ConsoleReporter) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lineOpen {
		fmt.Fprintln(c.out)
		c.lineOpen = false
	}
}

// PrintRunSummary prints the outcome of a follow or unfollow run
func PrintRunSummary(out io.Writer, operation string, result models.RunResult, elapsed time.Duration) {
	fmt.Fprintf(out, "\n%s %s finished in %s\n", Green("✓"), operation, FormatDuration(elapsed))
	fmt.Fprintf(out, "  %s %d successful\n", Dim("•"), result.Successful)
	if result.Failed > 0 {
		fmt.Fprintf(out, "  %s %s\n", Dim("•"), Red(fmt.Sprintf("%d failed", result.Failed)))
	}
}

// PrintListSummary prints the outcome of building a list
func PrintListSummary(out io.Writer, result *models.ListResult) {
	if result == nil {
		fmt.Fprintf(out, "%s list was not created\n", Red("✗"))
		return
	}
	fmt.Fprintf(out, "\n%s list ready: %s\n", Green("✓"), Cyan(result.ListURL))
	fmt.Fprintf(out, "  %s %d members added\n", Dim("•"), result.Successful)
	if result.Failed > 0 {
		fmt.Fprintf(out, "  %s %s\n", Dim("•"), Red(fmt.Sprintf("%d failed", result.Failed)))
	}
}

// PrintCounts prints the relationship summary of a loaded snapshot
func PrintCounts(out io.Writer, handle string, counts relations.Counts) {
	rows := []struct {
		label string
		value int
	}{
		{"Following", counts.Follows},
		{"Followers", counts.Followers},
		{"Mutuals", counts.Mutuals},
		{"Not following back", counts.NotFollowingBack},
		{"Fans (not followed back)", counts.FollowersNotFollowedBack},
	}

	fmt.Fprintf(out, "%s @%s\n", Magenta("→"), handle)
	for _, r := range rows {
		fmt.Fprintf(out, "  %-26s %s\n", Cyan(r.label), Yellow(fmt.Sprintf("%d", r.value)))
	}
}
