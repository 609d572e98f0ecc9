// Package ui renders bulk runs and snapshots in the terminal.
//
// ConsoleReporter implements bulk.Reporter with a single updating progress
// line; quota pauses and the daily ceiling are printed on their own lines.
// Notifier and NotifyingReporter raise terminal or desktop notifications
// when a run finishes. The full-screen alternative lives in package tui.
package ui
