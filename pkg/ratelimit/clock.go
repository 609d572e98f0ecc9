package ratelimit

import (
	"sync"
	"time"
)

// Clock abstracts wall-clock time so pauses can be simulated in tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// RealClock is backed by the time package.
type RealClock struct{}

func NewRealClock() Clock { return RealClock{} }

func (RealClock) Now() time.Time                         { return time.Now() }
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type timer struct {
	deadline time.Time
	ch       chan time.Time
}

// ManualClock is a Clock whose time only moves when told to. Timers created
// by After fire once Add moves time past their deadline. In auto-advance
// mode every After call moves time forward by d and fires immediately,
// which lets a sequential caller run to completion without a driver
// goroutine.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	auto   bool
	timers []*timer
	waits  []time.Duration
}

// NewManualClock returns a clock that advances only through Add.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// NewAutoClock returns a clock that advances by d on every After(d).
func NewAutoClock(start time.Time) *ManualClock {
	return &ManualClock{now: start, auto: true}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.waits = append(c.waits, d)
	ch := make(chan time.Time, 1)
	if c.auto {
		if d > 0 {
			c.now = c.now.Add(d)
		}
		ch <- c.now
		return ch
	}

	c.timers = append(c.timers, &timer{deadline: c.now.Add(d), ch: ch})
	return ch
}

// Add advances time and fires timers whose deadlines have passed.
func (c *ManualClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
	var pending []*timer
	for _, t := range c.timers {
		if !t.deadline.After(c.now) {
			t.ch <- c.now
		} else {
			pending = append(pending, t)
		}
	}
	c.timers = pending
}

// Pending reports how many timers have not fired yet.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Waits returns every duration passed to After, in call order.
func (c *ManualClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.waits))
	copy(out, c.waits)
	return out
}
