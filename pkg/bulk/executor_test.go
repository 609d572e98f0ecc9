package bulk

import (
	"context"
	"fmt"
	"testing"
	"time"

	"bskyfollow/pkg/logger"
	"bskyfollow/pkg/models"
	"bskyfollow/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func makeTargets(n int) []models.Account {
	out := make([]models.Account, n)
	for i := range out {
		h := fmt.Sprintf("user%d.bsky.social", i)
		out[i] = models.Account{DID: "did:plc:" + h, Handle: h}
	}
	return out
}

// writeSpy records every target it is asked to write.
type writeSpy struct {
	calls   []string
	outcome func(call int, a models.Account) bool
}

func (w *writeSpy) write(_ context.Context, a models.Account) bool {
	w.calls = append(w.calls, a.Handle)
	if w.outcome == nil {
		return true
	}
	return w.outcome(len(w.calls), a)
}

func newTestExecutor(clock ratelimit.Clock) *Executor {
	return NewExecutor(
		WithClock(clock),
		WithLogger(logger.NewNopLogger()),
		WithRunID(func() string { return "run-test" }),
	)
}

func indexOf(r *Recorder, match func(Update) bool) int {
	for i, u := range r.Updates {
		if match(u) {
			return i
		}
	}
	return -1
}

func TestRunEmptySelection(t *testing.T) {
	clock := ratelimit.NewAutoClock(epoch)
	spy := &writeSpy{}
	rec := &Recorder{}

	res, err := newTestExecutor(clock).Run(context.Background(), makeTargets(3), models.NewSelection(), Operation{Name: "follow", Write: spy.write}, rec)

	require.NoError(t, err)
	assert.Equal(t, models.RunResult{}, res)
	assert.Empty(t, spy.calls)
	assert.Empty(t, rec.Updates)

	res, err = newTestExecutor(clock).Run(context.Background(), nil, nil, Operation{Write: spy.write}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RunResult{}, res)
}

func TestRunAllSucceed(t *testing.T) {
	clock := ratelimit.NewAutoClock(epoch)
	spy := &writeSpy{}
	rec := &Recorder{}
	targets := makeTargets(5)

	op := Operation{Name: "follow", Write: spy.write, Limits: Limits{PerMinute: 60, PerHour: 1600, PerDay: 5, Delay: time.Second}}
	res, err := newTestExecutor(clock).Run(context.Background(), targets, models.SelectAll(5), op, rec)

	require.NoError(t, err)
	assert.Equal(t, models.RunResult{Successful: 5}, res)
	assert.Len(t, spy.calls, 5)
	assert.Equal(t, []int{20, 40, 60, 80, 100}, rec.Percents())

	processing := rec.Events(EventProcessing)
	require.Len(t, processing, 5)
	assert.Equal(t, "user2.bsky.social", processing[2].Handle)
	assert.Equal(t, 3, processing[2].Current)
	assert.Equal(t, 5, processing[2].Total)
	assert.Equal(t, "run-test", processing[2].RunID)

	finished := rec.Events(EventFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, res, finished[0].Result)
}

func TestRunAllFailNeverPauses(t *testing.T) {
	clock := ratelimit.NewAutoClock(epoch)
	spy := &writeSpy{outcome: func(int, models.Account) bool { return false }}
	rec := &Recorder{}

	op := Operation{Name: "unfollow", Write: spy.write, Limits: Limits{PerMinute: 1, PerHour: 1, PerDay: 1}}
	res, err := newTestExecutor(clock).Run(context.Background(), makeTargets(6), models.SelectAll(6), op, rec)

	require.NoError(t, err)
	assert.Equal(t, models.RunResult{Failed: 6}, res)
	assert.Len(t, spy.calls, 6)
	assert.Empty(t, rec.Events(EventMinuteLimit, EventHourLimit, EventCountdownSeconds, EventCountdownMinutes, EventDailyLimit))
	assert.Equal(t, epoch, clock.Now(), "no time passes without delays or pauses")
}

func TestRunPerMinuteLimitCountsDownBeforeThirdWrite(t *testing.T) {
	clock := ratelimit.NewAutoClock(epoch)
	spy := &writeSpy{}
	rec := &Recorder{}

	op := Operation{Name: "follow", Write: spy.write, Limits: Limits{PerMinute: 2}}
	res, err := newTestExecutor(clock).Run(context.Background(), makeTargets(3), models.SelectAll(3), op, rec)

	require.NoError(t, err)
	assert.Equal(t, models.RunResult{Successful: 3}, res)

	firstTick := indexOf(rec, func(u Update) bool { return !u.IsProgress && u.Event.Kind == EventCountdownSeconds })
	thirdProgress := indexOf(rec, func(u Update) bool { return u.IsProgress && u.Percent == 100 })
	require.NotEqual(t, -1, firstTick)
	assert.Less(t, firstTick, thirdProgress)

	limit := rec.Events(EventMinuteLimit)
	require.Len(t, limit, 1)
	assert.Equal(t, time.Minute, limit[0].Wait)

	ticks := rec.Events(EventCountdownSeconds)
	require.Len(t, ticks, 60)
	assert.Equal(t, 60, ticks[0].Remaining)
	assert.Equal(t, 1, ticks[59].Remaining)
	assert.Len(t, rec.Events(EventContinuing), 1)
	assert.Equal(t, epoch.Add(time.Minute), clock.Now())
}

func TestRunMinutePauseWaitsOnlyUntilRollover(t *testing.T) {
	clock := ratelimit.NewAutoClock(epoch)
	rec := &Recorder{}
	spy := &writeSpy{}

	op := Operation{Name: "follow", Write: spy.write, Limits: Limits{PerMinute: 2, Delay: 20 * time.Second}}
	_, err := newTestExecutor(clock).Run(context.Background(), makeTargets(3), models.SelectAll(3), op, rec)
	require.NoError(t, err)

	limit := rec.Events(EventMinuteLimit)
	require.Len(t, limit, 1)
	assert.Equal(t, 20*time.Second, limit[0].Wait, "two writes with 20s delays leave 20s of the minute")
	assert.Len(t, rec.Events(EventCountdownSeconds), 20)
}

func TestRunBucketRolloverResetsMinuteCounter(t *testing.T) {
	clock := ratelimit.NewAutoClock(epoch)
	rec := &Recorder{}
	spy := &writeSpy{}

	op := Operation{Name: "follow", Write: spy.write, Limits: Limits{PerMinute: 2, Delay: 30 * time.Second}}
	res, err := newTestExecutor(clock).Run(context.Background(), makeTargets(5), models.SelectAll(5), op, rec)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Successful)
	assert.Empty(t, rec.Events(EventMinuteLimit), "writes at 0s and 30s, the third lands in the next minute")

	buckets := rec.Events(EventMinuteBucket)
	require.Len(t, buckets, 2)
	assert.Equal(t, 2, buckets[0].Bucket)
	assert.Equal(t, 3, buckets[1].Bucket)
}

func TestRunPerHourLimitCountsDownInMinutes(t *testing.T) {
	clock := ratelimit.NewAutoClock(epoch)
	rec := &Recorder{}
	spy := &writeSpy{}

	op := Operation{Name: "unfollow", Write: spy.write, Limits: Limits{PerHour: 2}}
	res, err := newTestExecutor(clock).Run(context.Background(), makeTargets(3), models.SelectAll(3), op, rec)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Successful)
	ticks := rec.Events(EventCountdownMinutes)
	require.Len(t, ticks, 60)
	assert.Equal(t, 60, ticks[0].Remaining)
	assert.Equal(t, 1, ticks[59].Remaining)
	assert.Equal(t, epoch.Add(time.Hour), clock.Now())

	hours := rec.Events(EventHourLimit)
	require.Len(t, hours, 1)
	assert.Equal(t, time.Hour, hours[0].Wait)
}

func TestRunDailyCeilingStopsRun(t *testing.T) {
	clock := ratelimit.NewAutoClock(epoch)
	rec := &Recorder{}
	spy := &writeSpy{}

	op := Operation{Name: "follow", Write: spy.write, Limits: Limits{PerMinute: 60, PerHour: 1600, PerDay: 3, Delay: time.Second}}
	res, err := newTestExecutor(clock).Run(context.Background(), makeTargets(5), models.SelectAll(5), op, rec)

	require.NoError(t, err)
	assert.Equal(t, models.RunResult{Successful: 3}, res)
	assert.Equal(t, []string{"user0.bsky.social", "user1.bsky.social", "user2.bsky.social"}, spy.calls)

	daily := rec.Events(EventDailyLimit)
	require.Len(t, daily, 1)
	assert.Equal(t, 3, daily[0].Current)
	assert.Equal(t, []int{20, 40, 60}, rec.Percents())
}

func TestRunDailyCeilingIgnoresFailures(t *testing.T) {
	clock := ratelimit.NewAutoClock(epoch)
	spy := &writeSpy{outcome: func(call int, _ models.Account) bool { return call%2 == 0 }}

	op := Operation{Name: "follow", Write: spy.write, Limits: Limits{PerDay: 2}}
	res, err := newTestExecutor(clock).Run(context.Background(), makeTargets(6), models.SelectAll(6), op, nil)

	require.NoError(t, err)
	assert.Equal(t, models.RunResult{Successful: 2, Failed: 2}, res)
	assert.Len(t, spy.calls, 4)
}

func TestRunInvalidTargetsFailWithoutWrite(t *testing.T) {
	clock := ratelimit.NewAutoClock(epoch)
	rec := &Recorder{}
	spy := &writeSpy{}
	targets := makeTargets(3)
	targets[1].DID = ""

	op := Operation{Name: "follow", Write: spy.write, Limits: Limits{Delay: time.Second}}
	sel := models.NewSelection(0, 1, 7, 2)
	res, err := newTestExecutor(clock).Run(context.Background(), targets, sel, op, rec)

	require.NoError(t, err)
	assert.Equal(t, models.RunResult{Successful: 2, Failed: 2}, res)
	assert.Equal(t, []string{"user0.bsky.social", "user2.bsky.social"}, spy.calls)
	assert.Equal(t, []int{25, 50, 75, 100}, rec.Percents())

	invalid := rec.Events(EventInvalidTarget)
	require.Len(t, invalid, 2)
	assert.Equal(t, "user1.bsky.social", invalid[0].Handle)
	assert.Empty(t, invalid[1].Handle)
	assert.Equal(t, 2*time.Second, clock.Now().Sub(epoch), "invalid targets are not followed by a delay")
}

func TestRunCustomReadiness(t *testing.T) {
	clock := ratelimit.NewAutoClock(epoch)
	spy := &writeSpy{}
	targets := makeTargets(2)
	targets[0].FollowURI = "at://did:plc:me/app.bsky.graph.follow/abc"

	op := Operation{
		Name:  "unfollow",
		Write: spy.write,
		Ready: func(a models.Account) bool { return a.FollowURI != "" },
	}
	res, err := newTestExecutor(clock).Run(context.Background(), targets, models.SelectAll(2), op, nil)

	require.NoError(t, err)
	assert.Equal(t, models.RunResult{Successful: 1, Failed: 1}, res)
}

func TestRunSelectionIsFrozen(t *testing.T) {
	clock := ratelimit.NewAutoClock(epoch)
	sel := models.SelectAll(4)
	spy := &writeSpy{outcome: func(call int, _ models.Account) bool {
		if call == 1 {
			sel.Remove(2)
			sel.Remove(3)
			sel.Add(0)
		}
		return true
	}}

	res, err := newTestExecutor(clock).Run(context.Background(), makeTargets(4), sel, Operation{Name: "follow", Write: spy.write}, nil)

	require.NoError(t, err)
	assert.Equal(t, 4, res.Successful)
	assert.Len(t, spy.calls, 4)
}

func TestRunDelayAfterEveryItem(t *testing.T) {
	clock := ratelimit.NewAutoClock(epoch)

	op := Operation{Name: "follow", Write: (&writeSpy{}).write, Limits: Limits{Delay: 1500 * time.Millisecond}}
	_, err := newTestExecutor(clock).Run(context.Background(), makeTargets(3), models.SelectAll(3), op, nil)
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 1500 * time.Millisecond, 1500 * time.Millisecond}, clock.Waits())
}

func TestRunSumProperty(t *testing.T) {
	for n := 1; n <= 12; n++ {
		clock := ratelimit.NewAutoClock(epoch)
		spy := &writeSpy{outcome: func(call int, _ models.Account) bool { return call%3 != 0 }}
		op := Operation{Name: "follow", Write: spy.write, Limits: Limits{PerMinute: 2, PerHour: 5}}

		res, err := newTestExecutor(clock).Run(context.Background(), makeTargets(n), models.SelectAll(n), op, nil)
		require.NoError(t, err)
		assert.Equal(t, n, res.Attempted(), "n=%d", n)
		assert.Equal(t, len(spy.calls), res.Attempted())
	}
}

func TestRunCancelledDuringDelay(t *testing.T) {
	clock := ratelimit.NewAutoClock(epoch)
	rec := &Recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	spy := &writeSpy{outcome: func(call int, _ models.Account) bool {
		if call == 2 {
			cancel()
		}
		return true
	}}
	op := Operation{Name: "follow", Write: spy.write, Limits: Limits{Delay: time.Second}}
	res, err := newTestExecutor(clock).Run(ctx, makeTargets(5), models.SelectAll(5), op, rec)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.RunResult{Successful: 2}, res)
	assert.Len(t, spy.calls, 2)

	cancelled := rec.Events(EventCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, res, cancelled[0].Result)
	assert.Empty(t, rec.Events(EventFinished))
}

func TestRunCancelledDuringCountdown(t *testing.T) {
	clock := ratelimit.NewAutoClock(epoch)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rep := ReporterFuncs{OnStatus: func(ev Event) {
		if ev.Kind == EventCountdownSeconds && ev.Remaining == 30 {
			cancel()
		}
	}}
	spy := &writeSpy{}
	op := Operation{Name: "follow", Write: spy.write, Limits: Limits{PerMinute: 1}}
	res, err := newTestExecutor(clock).Run(ctx, makeTargets(3), models.SelectAll(3), op, rep)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.RunResult{Successful: 1}, res)
	assert.Len(t, spy.calls, 1)
}

func TestRunLogsResult(t *testing.T) {
	tl := logger.NewTestLogger()
	exec := NewExecutor(WithClock(ratelimit.NewAutoClock(epoch)), WithLogger(tl), WithRunID(func() string { return "r1" }))

	_, err := exec.Run(context.Background(), makeTargets(2), models.SelectAll(2), Operation{Name: "follow", Write: (&writeSpy{}).write}, nil)
	require.NoError(t, err)

	require.True(t, tl.HasMessage("Bulk run finished"))
	for _, m := range tl.GetMessages() {
		if m.Message == "Bulk run finished" {
			assert.Equal(t, "r1", m.Fields["run_id"])
			assert.Equal(t, 2, m.Fields["successful"])
			assert.Equal(t, false, m.Fields["truncated"])
		}
	}
}

func TestEventStrings(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{Event{Kind: EventMinuteBucket, Bucket: 2}, "Minute 2 started"},
		{Event{Kind: EventMinuteLimit, Wait: 42 * time.Second}, "Per-minute limit reached, waiting 42s"},
		{Event{Kind: EventCountdownSeconds, Remaining: 5}, "Resuming in 5 seconds"},
		{Event{Kind: EventCountdownMinutes, Remaining: 12}, "Resuming in 12 minutes"},
		{Event{Kind: EventDailyLimit, Current: 3}, "Daily limit of 3 reached, stopping"},
		{Event{Kind: EventProcessing, Operation: "unfollow", Handle: "bob.bsky.social", Current: 2, Total: 9}, "unfollow @bob.bsky.social (2/9)"},
		{Event{Kind: EventFinished, Result: models.RunResult{Successful: 4, Failed: 1}}, "Done: 4 successful, 1 failed"},
		{Event{Kind: EventKind(99)}, "event(99)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.ev.String())
	}
}
