// Package logging provides structured logging for the Smooth Lights service.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service=smoothlights, version) on all log entries
//   - Per-component child loggers via Component
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 8080)
//	logger.Error("failed to connect", "error", err)
//
//	policyLog := logger.Component("transition")
//	policyLog.Debug("added transition", "entity_ids", ids)
//
// # Security
//
// Never log secrets, tokens or passwords. Login failures log the
// username only.
//
package logging
