// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Context keys for logging.
type contextKey string

const (
	// queryKeyCtxKey is the context key for the FASQ query key an operation
	// is acting on (the cache key, not a Go map key).
	queryKeyCtxKey contextKey = "query_key"

	// operationIDKey is the context key for a per-fetch or per-mutation
	// attempt id, used to correlate retries of the same logical operation.
	operationIDKey contextKey = "operation_id"

	// loggerKey is the context key for storing a logger instance.
	loggerKey contextKey = "logger"
)

// GenerateOperationID creates a new unique id for a fetch or mutation
// attempt.
func GenerateOperationID() string {
	return uuid.New().String()
}

// ContextWithQueryKey returns a new context tagged with the given query key.
//
//	ctx = logging.ContextWithQueryKey(ctx, "user:1")
func ContextWithQueryKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, queryKeyCtxKey, key)
}

// QueryKeyFromContext retrieves the query key from context.
// Returns empty string if not present.
func QueryKeyFromContext(ctx context.Context) string {
	if key, ok := ctx.Value(queryKeyCtxKey).(string); ok {
		return key
	}
	return ""
}

// ContextWithOperationID returns a new context with the given operation id.
func ContextWithOperationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operationIDKey, id)
}

// ContextWithNewOperationID returns a context with a newly generated
// operation id.
func ContextWithNewOperationID(ctx context.Context) context.Context {
	return ContextWithOperationID(ctx, GenerateOperationID())
}

// OperationIDFromContext retrieves the operation id from context.
// Returns empty string if not present.
func OperationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(operationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores a logger in the context.
// This is useful for passing pre-configured loggers through Query/Mutation
// hook chains.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves a logger from context.
// Returns the global logger if no logger is stored in context.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with context values (query_key, operation_id)
// automatically added. This is the recommended way to log from inside a
// fetcher, mutation function, or cache hook.
//
//	logging.Ctx(ctx).Info().Msg("fetch started")
//	// Output: {"level":"info","query_key":"user:1","operation_id":"...","message":"fetch started"}
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := LoggerFromContext(ctx)

	contextLogger := logger.With().Logger()

	if key := QueryKeyFromContext(ctx); key != "" {
		contextLogger = contextLogger.With().Str("query_key", key).Logger()
	}

	if opID := OperationIDFromContext(ctx); opID != "" {
		contextLogger = contextLogger.With().Str("operation_id", opID).Logger()
	}

	return &contextLogger
}

// CtxWith returns a logger context builder with context values pre-populated.
// Use this when additional fields are needed beyond the standard ones.
//
//	logger := logging.CtxWith(ctx).Int("retry_count", n).Logger()
//	logger.Warn().Msg("retrying fetch")
func CtxWith(ctx context.Context) zerolog.Context {
	logger := LoggerFromContext(ctx)
	logCtx := logger.With()

	if key := QueryKeyFromContext(ctx); key != "" {
		logCtx = logCtx.Str("query_key", key)
	}

	if opID := OperationIDFromContext(ctx); opID != "" {
		logCtx = logCtx.Str("operation_id", opID)
	}

	return logCtx
}

// CtxDebug starts a debug level message with context fields.
// Shorthand for Ctx(ctx).Debug().
func CtxDebug(ctx context.Context) *zerolog.Event {
	return Ctx(ctx).Debug()
}

// CtxInfo starts an info level message with context fields.
// Shorthand for Ctx(ctx).Info().
func CtxInfo(ctx context.Context) *zerolog.Event {
	return Ctx(ctx).Info()
}

// CtxWarn starts a warn level message with context fields.
// Shorthand for Ctx(ctx).Warn().
func CtxWarn(ctx context.Context) *zerolog.Event {
	return Ctx(ctx).Warn()
}

// CtxError starts an error level message with context fields.
// Shorthand for Ctx(ctx).Error().
func CtxError(ctx context.Context) *zerolog.Event {
	return Ctx(ctx).Error()
}

// CtxErr starts an error level message with context fields and the error.
// Shorthand for Ctx(ctx).Err(err).
func CtxErr(ctx context.Context, err error) *zerolog.Event {
	return Ctx(ctx).Err(err)
}

// WithComponent creates a child logger with a component field, e.g. "cache",
// "query", "persistence", "offlinequeue".
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
