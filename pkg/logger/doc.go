// Package logger provides structured logging for bskyfollow.
//
// It wraps zerolog behind the Logger interface so packages can accept a
// logger and tests can substitute NewTestLogger or NewNopLogger.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "bulk")
//	log.InfoWithFields("Run started", map[string]interface{}{
//	    "operation": "unfollow",
//	    "targets":   42,
//	})
//
// Console output is colorized; when a log file is configured, entries are
// written to both.
package logger
