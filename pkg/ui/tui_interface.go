package ui

import "bskyfollow/pkg/bulk"

// Display is a bulk.Reporter with a lifetime: it is closed when the run it
// renders has finished. Both ConsoleReporter and the full-screen TUI
// implement it.
type Display interface {
	bulk.Reporter
	Close()
}

var _ Display = (*ConsoleReporter)(nil)
