// Package logging provides structured logging for Gray Logic Lux.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the service.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	engine.SetLogger(logger.Component("engine"))
//	logger.Info("show started", "vibe", "techno-club")
//
// The render loop runs at 60 fps; per-frame warnings are throttled by the
// callers, never logged unconditionally.
package logging
