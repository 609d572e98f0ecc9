package retry

import (
	"math"
	"math/rand/v2"
	"time"

	errs "bskyfollow/pkg/errors"
)

// BackoffStrategy computes the delay before a retry attempt
type BackoffStrategy interface {
	// NextDelay returns the delay after the given failed attempt (1-based)
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows the delay by Multiplier per attempt up to MaxDelay.
// JitterFactor spreads each delay uniformly by up to that fraction either way.
type ExponentialBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64
}

// DefaultExponentialBackoff doubles from one second up to a minute
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2,
		JitterFactor: 0.1,
	}
}

func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := math.Min(float64(b.BaseDelay)*math.Pow(b.Multiplier, float64(attempt-1)), float64(b.MaxDelay))
	if b.JitterFactor > 0 {
		d *= 1 + b.JitterFactor*(2*rand.Float64()-1)
	}
	return time.Duration(math.Max(d, 0))
}

// ConstantBackoff waits the same Delay before every retry
type ConstantBackoff struct {
	Delay time.Duration
}

func (b *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return b.Delay
}

// ErrorTypeBackoff picks a strategy by the API error type of the failure.
// Types without a strategy use Fallback.
type ErrorTypeBackoff struct {
	Fallback   BackoffStrategy
	strategies map[errs.ErrorType]BackoffStrategy
}

// NewErrorTypeBackoff scales every strategy from base. Rate limit backoff
// starts at 30*base and only applies when the server sent no reset time.
func NewErrorTypeBackoff(base time.Duration) *ErrorTypeBackoff {
	if base <= 0 {
		base = time.Second
	}
	etb := &ErrorTypeBackoff{
		Fallback:   &ExponentialBackoff{BaseDelay: base, MaxDelay: 60 * base, Multiplier: 2, JitterFactor: 0.1},
		strategies: make(map[errs.ErrorType]BackoffStrategy),
	}
	etb.Set(errs.ErrorTypeNetwork, &ExponentialBackoff{BaseDelay: base, MaxDelay: 30 * base, Multiplier: 2, JitterFactor: 0.2})
	etb.Set(errs.ErrorTypeServerError, &ExponentialBackoff{BaseDelay: 5 * base, MaxDelay: 60 * base, Multiplier: 2, JitterFactor: 0.1})
	etb.Set(errs.ErrorTypeRateLimit, &ExponentialBackoff{BaseDelay: 30 * base, MaxDelay: 5 * time.Minute, Multiplier: 1.5, JitterFactor: 0.3})
	return etb
}

// Set replaces the strategy for one error type
func (etb *ErrorTypeBackoff) Set(t errs.ErrorType, s BackoffStrategy) {
	if etb.strategies == nil {
		etb.strategies = make(map[errs.ErrorType]BackoffStrategy)
	}
	etb.strategies[t] = s
}

// ForError returns the strategy for the type of err
func (etb *ErrorTypeBackoff) ForError(err error) BackoffStrategy {
	if s, ok := etb.strategies[errs.TypeOf(err)]; ok {
		return s
	}
	if etb.Fallback != nil {
		return etb.Fallback
	}
	return DefaultExponentialBackoff()
}
