// Package logging provides structured logging for the fbp controller.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Rotating file output for unattended devices
//   - Default fields (service, version) on all log entries
//   - Records logged before configuration is loaded are buffered and
//     replayed in order once an output exists
//   - Extra named sinks (the database log table) added and removed at runtime
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "file"     # stdout, stderr, file
//	  file:
//	    path: "/var/log/fbp/fbp.log"
//	    max_size: 10     # megabytes
//	    max_backups: 5
//
// # Usage
//
//	logger := logging.Bootstrap()
//	logger.Info("starting")                  // buffered
//	cfg, _ := config.Load(path)
//	logger.Configure(cfg.Logging, version)   // "starting" is written now
//	defer logger.Close()
package logging
