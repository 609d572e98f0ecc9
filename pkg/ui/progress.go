package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProgressBar   = "━"
	ProgressEmpty = "─"
)

// RenderBar draws a fixed-width bar for a 0-100 percentage
func RenderBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
}

// RunTracker derives throughput and ETA from the item counters of a run
type RunTracker struct {
	StartTime time.Time
	Done      int
	Total     int
	now       func() time.Time
}

// NewRunTracker creates a tracker starting now
func NewRunTracker() *RunTracker {
	return newRunTracker(time.Now)
}

func newRunTracker(now func() time.Time) *RunTracker {
	return &RunTracker{StartTime: now(), now: now}
}

// Observe records that current of total items have been reached
func (rt *RunTracker) Observe(current, total int) {
	rt.Done = current
	rt.Total = total
}

// GetElapsedTime returns the elapsed time since tracking started
func (rt *RunTracker) GetElapsedTime() time.Duration {
	return rt.now().Sub(rt.StartTime)
}

// GetRate returns processed items per minute
func (rt *RunTracker) GetRate() float64 {
	elapsed := rt.GetElapsedTime().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(rt.Done) / elapsed
}

// GetETA estimates the time left at the current rate. It returns false
// until at least one item is done.
func (rt *RunTracker) GetETA() (time.Duration, bool) {
	if rt.Done == 0 || rt.Total <= rt.Done {
		return 0, rt.Done > 0
	}
	perItem := rt.GetElapsedTime() / time.Duration(rt.Done)
	return perItem * time.Duration(rt.Total-rt.Done), true
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
