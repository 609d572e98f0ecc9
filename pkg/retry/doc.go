// Package retry retries idempotent API reads with backoff.
//
// Backoff is chosen by error type unless Config.Backoff is set. A rate
// limit error that carries a reset time waits until that time instead,
// as long as it is within MaxResetWait.
//
//	page, err := retry.DoWithResult(ctx, func(ctx context.Context) (*FollowsPage, error) {
//	    return c.fetchFollowsPage(ctx, actor, cursor)
//	}, c.retryConfig)
//
// Auth, not-found and invalid-request errors are returned immediately.
// Writes are never passed through this package.
package retry
