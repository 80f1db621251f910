package contextutil

import (
	"context"
	"log/slog"
	"testing"
)

func TestLoggerFromContext(t *testing.T) {
	if got := LoggerFromContext(context.Background()); got != slog.Default() {
		t.Error("LoggerFromContext() without logger should return slog.Default()")
	}

	logger := slog.Default().With("run_id", "r1")
	ctx := WithLogger(context.Background(), logger)
	if got := LoggerFromContext(ctx); got != logger {
		t.Error("LoggerFromContext() did not return the stored logger")
	}

	wrong := context.WithValue(context.Background(), LoggerKey(), "not a logger")
	if got := LoggerFromContext(wrong); got != slog.Default() {
		t.Error("LoggerFromContext() with a non-logger value should fall back to the default")
	}
}
