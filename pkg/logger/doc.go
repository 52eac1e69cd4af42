// Package logger provides the structured logging interface used across igpicker.
//
// It wraps zerolog with:
//   - leveled logging (Debug, Info, Warn, Error, Fatal)
//   - child loggers carrying fields (WithField, WithFields, WithError)
//   - colored console output or JSON lines, plus an optional log file
//   - a process-wide logger (Initialize, GetLogger)
//   - NewNopLogger and NewTestLogger for tests
//
// Usage:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "picker")
//	log.InfoWithFields("Fetched posts", map[string]interface{}{
//	    "username": "natgeo",
//	    "posts":    5,
//	})
//
// Provider tokens must never be passed as field values.
package logger
