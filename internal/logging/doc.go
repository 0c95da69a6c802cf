// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides centralized zerolog-based structured logging for
// FASQ's cache, query, and persistence components.
//
// This package implements a unified logging layer using zerolog, providing
// zero-allocation structured JSON logging for production and human-readable
// console output for development.
//
// # Overview
//
// The package provides:
//   - Zero-allocation structured logging via zerolog
//   - JSON output format for production (machine-parseable)
//   - Console output format for development (human-readable)
//   - Global logger configuration through Init
//   - Context-aware logging keyed on query key and operation id
//   - slog adapter for suture v4 supervisor integration
//
// # Quick Start
//
//	import "github.com/tomtom215/fasq/internal/logging"
//
//	// Initialize at application startup
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Caller: false,
//	})
//
//	// Log messages with structured fields
//	logging.Info().Str("query_key", key).Msg("cache entry evicted")
//	logging.Error().Err(err).Str("query_key", key).Msg("fetch failed")
//
//	// Context-aware logging (query_key and operation_id attached automatically)
//	logging.Ctx(ctx).Info().Msg("fetch started")
//
// # Configuration
//
// Environment Variables:
//
// This package reads no environment variable of its own apart from
// FUZZ_MODE=1, which sets the initial level to fatal. internal/config maps
// these onto its LoggingConfig, whose values callers pass to Init:
//
//	FASQ_LOG_LEVEL   - Minimum log level: trace, debug, info, warn, error (default: info)
//	FASQ_LOG_FORMAT  - Output format: json, console (default: json)
//	FASQ_LOG_CALLER  - Include caller file:line: true, false (default: false)
//
// Programmatic Configuration:
//
//	logging.Init(logging.Config{
//	    Level:     "debug",    // trace, debug, info, warn, error, fatal
//	    Format:    "console",  // json or console
//	    Caller:    true,       // Include caller info
//	    Timestamp: true,       // Include timestamps
//	    Output:    os.Stderr,  // Output writer
//	})
//
// # Log Levels
//
// Supported log levels (from most to least verbose):
//
//	trace  - Very detailed diagnostic information
//	debug  - Detailed diagnostic information
//	info   - General operational information (default)
//	warn   - Warning conditions that should be addressed
//	error  - Error conditions requiring attention
//	fatal  - Fatal errors that terminate the program
//	panic  - Panic conditions that crash the program
//
// # Structured Logging Best Practices
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
//
// Use structured fields instead of string formatting:
//
//	// Good - structured, searchable, efficient
//	logging.Info().
//	    Str("query_key", key).
//	    Int("retry_count", n).
//	    Dur("elapsed", duration).
//	    Msg("fetch retried")
//
//	// Avoid - unstructured, harder to parse
//	logging.Info().Msgf("fetch for %s retried %d times in %v", key, n, duration)
//
// # Component Loggers
//
// Create component-specific loggers with default fields:
//
//	cacheLogger := logging.WithComponent("cache")
//	cacheLogger.Info().Msg("gc sweep completed")
//	cacheLogger.Error().Err(err).Msg("persistence flush failed")
//
// # Context-Aware Logging
//
// Propagate the query key and operation id through logging:
//
//	ctx = logging.ContextWithQueryKey(ctx, key)
//	ctx = logging.ContextWithNewOperationID(ctx)
//	logging.Ctx(ctx).Info().Msg("fetch started")
//
// # slog Adapter
//
// The package provides an slog adapter for libraries that require slog.Logger:
//
//	slogLogger := logging.NewSlogLogger()
//	// Can be passed as cache.Config.Logger, which internal/supervisor
//	// hands to suture's sutureslog.Handler
//
// # Output Formats
//
// JSON Format (Production):
//
//	{"level":"info","time":"2025-01-03T10:30:00Z","query_key":"user:1","message":"fetch started"}
//
// Console Format (Development):
//
//	10:30:00 INF fetch started query_key=user:1
//
// # Thread Safety
//
// All exported functions are safe for concurrent use. The global logger
// is protected by sync.RWMutex for configuration changes.
//
// # Testing
//
// Create test loggers that capture output:
//
//	var buf bytes.Buffer
//	logger := logging.NewTestLogger(&buf)
//	logger.Info().Msg("test message")
//	output := buf.String()
//
// # See Also
//
//   - github.com/rs/zerolog: Underlying logging library
//   - internal/supervisor: wraps the cache's background services
package logging
