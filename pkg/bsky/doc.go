// Package bsky provides a client for the Bluesky XRPC API.
//
// This package includes:
//   - Session login with an app password, with automatic refresh of
//     expired access tokens
//   - Paginated follows and followers listing
//   - Follow, unfollow, curation list and list item writes
//   - A request limiter shared by every call
//
// Reads are retried on network, rate limit and server errors. Writes are
// sent exactly once; callers decide what a failed write means.
//
// Example usage:
//
//	client := bsky.NewClient(bsky.DefaultService, 30*time.Second, log)
//	if _, err := client.CreateSession(ctx, "alice.bsky.social", appPassword); err != nil {
//	    return err
//	}
//
//	follows, err := client.GetFollows(ctx, client.Session().DID)
//	if err != nil {
//	    if errors.TypeOf(err) == errors.ErrorTypeRateLimit {
//	        // back off
//	    }
//	}
package bsky
