package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs an XRPC call with its outcome
func LogRequest(l Logger, method, nsid string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"nsid":        nsid,
		"status_code": statusCode,
		"duration_ms": float64(duration.Microseconds()) / 1000,
	}

	switch {
	case statusCode >= 500 || statusCode == 0:
		l.ErrorWithFields("XRPC request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("XRPC request client error", fields)
	default:
		l.DebugWithFields("XRPC request completed", fields)
	}
}

// LogRateLimit logs a local quota pause
func LogRateLimit(l Logger, operation, window string, wait time.Duration) {
	l.WithFields(map[string]interface{}{
		"operation": operation,
		"window":    window,
		"wait":      wait,
		"action":    "paused",
	}).Warn("Write quota reached, pausing")
}

// LogRunProgress logs bulk run progress
func LogRunProgress(l Logger, runID string, done, total int) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(done) / float64(total) * 100
	}

	l.WithFields(map[string]interface{}{
		"run_id":     runID,
		"done":       done,
		"total":      total,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Debug("Bulk run progress")
}

// LogRunResult logs the outcome of a bulk run
func LogRunResult(l Logger, runID, operation string, successful, failed int, elapsed time.Duration, truncated bool) {
	l.InfoWithFields("Bulk run finished", map[string]interface{}{
		"run_id":     runID,
		"operation":  operation,
		"successful": successful,
		"failed":     failed,
		"elapsed":    elapsed,
		"truncated":  truncated,
	})
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
