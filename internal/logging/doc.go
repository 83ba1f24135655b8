// Package logging provides structured logging for the espmesh tools.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the mesh controller: lifecycle steps, mesh events
// and control connections.
//
// # Log Levels
//
//   - Debug: Lifecycle steps, every mesh event, control requests
//   - Info: Activation and deactivation, control connections
//   - Warn: Best-effort teardown failures, dropped event deliveries
//   - Error: Engine failures surfaced to callers
//
// # Structured Logging
//
// All log functions use structured fields:
//
//	logging.Info("Mesh activated",
//	    zap.String("ssid", cfg.SSID),
//	    zap.Int("channel", cfg.Channel),
//	)
//
// Passwords must never be logged directly; use RedactSecret.
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When neither a level nor ESPMESH_LOG_LEVEL is set, the logger is a no-op so
// CLI output stays clean. Log output goes to stderr.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The mesh engine calls
// into the event bridge from its own goroutine, which logs through the same
// logger.
package logging
