// Package ratelimit holds the timing primitives behind bulk writes and API
// pacing.
//
// Clock abstracts time; RealClock is used in production and ManualClock in
// tests. Sleep and Countdown are the only suspension points used by the
// bulk executor: both wait on Clock.After and stop early when the context
// is cancelled.
//
// Countdown reports the full count immediately and then once per unit:
//
//	ratelimit.CountdownSeconds(ctx, clock, 42*time.Second, func(s int) {
//	    fmt.Printf("resuming in %ds\n", s)
//	})
//
// SlidingWindow caps total API requests over a trailing window, e.g. 2500
// requests per 5 minutes:
//
//	limiter := ratelimit.NewSlidingWindow(2500, 5*time.Minute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
