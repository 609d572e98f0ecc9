package ratelimit

import (
	"context"
	"time"
)

// Sleep waits for d on clock, returning early with ctx.Err() if ctx is
// cancelled first. Non-positive durations return immediately.
func Sleep(ctx context.Context, clock Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}

// Countdown calls onTick(total) immediately, then once per elapsed unit
// with the remaining count, and returns when the count reaches zero.
// onTick never sees a value below one. A non-positive total returns
// without ticking.
func Countdown(ctx context.Context, clock Clock, total int, unit time.Duration, onTick func(remaining int)) error {
	if total <= 0 {
		return ctx.Err()
	}
	if onTick == nil {
		onTick = func(int) {}
	}

	onTick(total)
	for remaining := total; remaining > 0; {
		if err := Sleep(ctx, clock, unit); err != nil {
			return err
		}
		remaining--
		if remaining > 0 {
			onTick(remaining)
		}
	}
	return nil
}

// CountdownSeconds waits out d, ticking with the remaining whole seconds.
func CountdownSeconds(ctx context.Context, clock Clock, d time.Duration, onTick func(remaining int)) error {
	return Countdown(ctx, clock, ceilUnits(d, time.Second), time.Second, onTick)
}

// CountdownMinutes waits out d, ticking with the remaining whole minutes.
func CountdownMinutes(ctx context.Context, clock Clock, d time.Duration, onTick func(remaining int)) error {
	return Countdown(ctx, clock, ceilUnits(d, time.Minute), time.Minute, onTick)
}

// UntilRollover returns how long after elapsed the current bucket of the
// given size ends. The result is always in (0, bucket].
func UntilRollover(elapsed, bucket time.Duration) time.Duration {
	if bucket <= 0 {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return bucket - elapsed%bucket
}

func ceilUnits(d, unit time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + unit - 1) / unit)
}
