package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "bskyfollow/pkg/errors"
	"bskyfollow/pkg/logger"
	"bskyfollow/pkg/ratelimit"
)

// Operation is a unit of work that might need retrying
type Operation func(ctx context.Context) error

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the total number of tries, including the first
	MaxAttempts  int
	// Backoff overrides per-error-type backoff when set
	Backoff      BackoffStrategy
	PerType      *ErrorTypeBackoff
	// MaxResetWait caps how long a server-provided rate limit reset is honored
	MaxResetWait time.Duration
	RetryIf      func(error) bool
	OnRetry      func(attempt int, err error, delay time.Duration)
	Clock        ratelimit.Clock
	Logger       logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  3,
		PerType:      NewErrorTypeBackoff(time.Second),
		MaxResetWait: 5 * time.Minute,
		RetryIf:      DefaultRetryIf,
		Clock:        ratelimit.RealClock{},
		Logger:       logger.GetLogger(),
	}
}

// DefaultRetryIf retries API errors of retryable types and unknown errors,
// never context errors.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		return errs.IsRetryable(apiErr.Type)
	}
	return true
}

func (cfg *Config) delay(attempt int, err error) time.Duration {
	var apiErr *errs.Error
	if errors.As(err, &apiErr) && apiErr.Type == errs.ErrorTypeRateLimit && !apiErr.ResetAt.IsZero() {
		if wait := apiErr.ResetAt.Sub(cfg.Clock.Now()); wait > 0 && wait <= cfg.MaxResetWait {
			return wait
		}
	}
	if cfg.Backoff != nil {
		return cfg.Backoff.NextDelay(attempt)
	}
	if cfg.PerType != nil {
		return cfg.PerType.ForError(err).NextDelay(attempt)
	}
	return DefaultExponentialBackoff().NextDelay(attempt)
}

// Do runs op until it succeeds, returns a non-retryable error, runs out of
// attempts or ctx is done.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}
	if cfg.Clock == nil {
		cfg.Clock = ratelimit.RealClock{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !cfg.RetryIf(err) {
			return err
		}
		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			log.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
				"attempts":   attempt,
				"last_error": lastErr.Error(),
			})
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
		}

		delay := cfg.delay(attempt, err)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		log.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"error":        err.Error(),
			"delay_ms":     delay.Milliseconds(),
			"max_attempts": cfg.MaxAttempts,
		})

		if err := ratelimit.Sleep(ctx, cfg.Clock, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult is Do for operations that produce a value
func DoWithResult[T any](ctx context.Context, op func(ctx context.Context) (T, error), cfg *Config) (T, error) {
	var result T
	err := Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	}, cfg)
	return result, err
}
