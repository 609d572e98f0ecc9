// Package enricher fetches detailed profiles for a set of accounts with a
// small pool of workers, filling in follower, following and post counts.
package enricher
