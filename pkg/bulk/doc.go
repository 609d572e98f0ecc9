// Package bulk drives follow, unfollow and list-membership writes against
// the API one account at a time.
//
// Executor.Run walks a frozen copy of a Selection and calls the
// Operation's Write for each ready target. It tracks writes per minute and
// per hour in buckets derived from the time elapsed since the run began;
// when a bucket is full it counts down to the next bucket before writing
// again. Only successful writes consume quota. Once PerDay successes have
// been recorded the run stops and the remaining targets are not attempted.
//
// ListBuilder creates a curation list and adds members with a flat delay
// between adds.
//
// Progress and status are delivered to a Reporter as typed Events.
package bulk
