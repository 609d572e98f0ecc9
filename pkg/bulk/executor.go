package bulk

import (
	"context"
	"time"

	"bskyfollow/pkg/logger"
	"bskyfollow/pkg/models"
	"bskyfollow/pkg/ratelimit"
	"github.com/google/uuid"
)

// Limits bounds a run. A non-positive ceiling disables that check.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
	// Delay is waited after every processed target
	Delay     time.Duration
}

// Operation is one direction of bulk write. Write reports success; it must
// not panic and should absorb its own errors.
type Operation struct {
	Name   string
	Ready  func(models.Account) bool
	Write  func(ctx context.Context, target models.Account) bool
	Limits Limits
}

func (op Operation) ready(a models.Account) bool {
	if op.Ready != nil {
		return op.Ready(a)
	}
	return a.DID != ""
}

// Option configures an Executor or ListBuilder.
type Option func(*options)

type options struct {
	clock ratelimit.Clock
	log   logger.Logger
	newID func() string
}

func defaultOptions() options {
	return options{
		clock: ratelimit.RealClock{},
		log:   logger.GetLogger(),
		newID: uuid.NewString,
	}
}

// WithClock replaces the wall clock used for buckets and waits.
func WithClock(c ratelimit.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithRunID overrides run identifier generation.
func WithRunID(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// Executor runs bulk writes one target at a time under minute, hour and
// day quotas.
type Executor struct {
	opts options
}

func NewExecutor(opts ...Option) *Executor {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Executor{opts: o}
}

// quotaWindow holds per-run counters. Bucket indices are derived from the
// elapsed time since the run started.
type quotaWindow struct {
	minuteBucket int
	hourBucket   int
	minuteCount  int
	hourCount    int
	// dayCount is the cumulative number of successful writes
	dayCount     int
}

// Run applies op.Write to every selected target in selection order.
//
// The selection is copied before the first write. A target that is out of
// range or fails op.Ready counts as failed without a write. Only successful
// writes count against the quotas. Reaching PerDay successes stops the run
// early. If ctx is cancelled the partial result is returned with ctx.Err().
func (e *Executor) Run(ctx context.Context, targets []models.Account, sel *models.Selection, op Operation, rep Reporter) (models.RunResult, error) {
	var result models.RunResult
	indices := sel.Indices()
	total := len(indices)
	if total == 0 {
		return result, nil
	}
	if rep == nil {
		rep = NopReporter
	}

	clock := e.opts.clock
	runID := e.opts.newID()
	log := e.opts.log.WithFields(map[string]interface{}{
		"run_id":    runID,
		"operation": op.Name,
	})
	emit := func(ev Event) {
		ev.RunID = runID
		ev.Operation = op.Name
		if ev.Total == 0 {
			ev.Total = total
		}
		rep.Status(ev)
	}

	start := clock.Now()
	limits := op.Limits
	var q quotaWindow

	log.InfoWithFields("Bulk run started", map[string]interface{}{
		"targets":    total,
		"per_minute": limits.PerMinute,
		"per_hour":   limits.PerHour,
		"per_day":    limits.PerDay,
		"delay":      limits.Delay,
	})
	emit(Event{Kind: EventStarted})

	cancelled := func(err error) (models.RunResult, error) {
		emit(Event{Kind: EventCancelled, Result: result})
		log.WithError(err).Warn("Bulk run cancelled")
		logger.LogRunResult(log, runID, op.Name, result.Successful, result.Failed, clock.Now().Sub(start), true)
		return result, err
	}

	truncated := false
	for i, idx := range indices {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}
		step := i + 1

		if idx < 0 || idx >= len(targets) || !op.ready(targets[idx]) {
			result.Failed++
			ev := Event{Kind: EventInvalidTarget, Current: step}
			if idx >= 0 && idx < len(targets) {
				ev.Handle = targets[idx].Handle
			}
			emit(ev)
			log.WarnWithFields("Skipping target without identifier", map[string]interface{}{"index": idx})
			rep.Progress(percent(step, total))
			continue
		}
		target := targets[idx]

		elapsed := clock.Now().Sub(start)
		if b := int(elapsed / time.Minute); b > q.minuteBucket {
			q.minuteBucket = b
			q.minuteCount = 0
			emit(Event{Kind: EventMinuteBucket, Bucket: b + 1})
		}
		if b := int(elapsed / time.Hour); b > q.hourBucket {
			q.hourBucket = b
			q.hourCount = 0
			emit(Event{Kind: EventHourBucket, Bucket: b + 1})
		}

		if limits.PerMinute > 0 && q.minuteCount >= limits.PerMinute {
			wait := ratelimit.UntilRollover(clock.Now().Sub(start), time.Minute)
			emit(Event{Kind: EventMinuteLimit, Wait: wait})
			logger.LogRateLimit(log, op.Name, "minute", wait)
			err := ratelimit.CountdownSeconds(ctx, clock, wait, func(s int) {
				emit(Event{Kind: EventCountdownSeconds, Remaining: s})
			})
			if err != nil {
				return cancelled(err)
			}
			emit(Event{Kind: EventContinuing})
			q.minuteBucket++
			q.minuteCount = 0
		}

		if limits.PerHour > 0 && q.hourCount >= limits.PerHour {
			wait := ratelimit.UntilRollover(clock.Now().Sub(start), time.Hour)
			emit(Event{Kind: EventHourLimit, Wait: wait})
			logger.LogRateLimit(log, op.Name, "hour", wait)
			err := ratelimit.CountdownMinutes(ctx, clock, wait, func(m int) {
				emit(Event{Kind: EventCountdownMinutes, Remaining: m})
			})
			if err != nil {
				return cancelled(err)
			}
			emit(Event{Kind: EventContinuing})
			q.hourBucket++
			q.hourCount = 0
		}

		if limits.PerDay > 0 && q.dayCount >= limits.PerDay {
			emit(Event{Kind: EventDailyLimit, Current: q.dayCount})
			log.WarnWithFields("Daily limit reached", map[string]interface{}{
				"successful": result.Successful,
				"skipped":    total - i,
			})
			truncated = true
			break
		}

		emit(Event{Kind: EventProcessing, Handle: target.Handle, Current: step})
		if op.Write(ctx, target) {
			result.Successful++
			q.minuteCount++
			q.hourCount++
			q.dayCount++
		} else {
			result.Failed++
		}
		rep.Progress(percent(step, total))
		logger.LogRunProgress(log, runID, step, total)

		if err := ratelimit.Sleep(ctx, clock, limits.Delay); err != nil {
			return cancelled(err)
		}
	}

	emit(Event{Kind: EventFinished, Result: result})
	logger.LogRunResult(log, runID, op.Name, result.Successful, result.Failed, clock.Now().Sub(start), truncated)
	return result, nil
}
