// Package contextutil carries the scoped logger used by migration runs and
// HTTP requests.
package contextutil

import (
	"context"
	"log/slog"
)

type contextKey string

const loggerKey contextKey = "logger"

// LoggerFromContext returns the run- or request-scoped logger attached by
// WithLogger, falling back to slog.Default.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctxLogger := ctx.Value(loggerKey); ctxLogger != nil {
		if l, ok := ctxLogger.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}

// WithLogger returns a copy of ctx carrying logger, typically one already
// tagged with a run_id or request_id.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerKey returns the key the scoped logger is stored under.
func LoggerKey() contextKey {
	return loggerKey
}
