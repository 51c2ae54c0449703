// Package logger provides structured logging for xhsclient.
//
// It wraps zerolog behind a small Logger interface so library packages can
// accept a Logger, tests can swap in a TestLogger, and the CLI can install a
// configured global instance:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "tokens")
//	log.DebugWithFields("requested x-s", map[string]interface{}{
//	    "endpoint": "/api/sns/web/v1/homefeed",
//	})
//
// Console output goes to stderr so command output on stdout stays clean.
// When LoggingConfig.File is set, entries are written to both.
package logger
