package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// GenerateTraceID creates a new unique trace ID using UUID v4
func GenerateTraceID() string {
	return uuid.New().String()
}

// NewRunID creates a validation run id
func NewRunID() string {
	return uuid.New().String()
}

// EnsureTraceID ensures the context has a trace ID, generating one if needed
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) == "" {
		return WithTraceID(ctx, GenerateTraceID())
	}
	return ctx
}

// StartRun returns a context carrying a fresh run id. The run id doubles as
// the trace id when the context has none, so every log line of one run
// correlates.
func StartRun(ctx context.Context) (context.Context, string) {
	runID := NewRunID()
	ctx = WithRunID(ctx, runID)
	if GetTraceID(ctx) == "" {
		ctx = WithTraceID(ctx, runID)
	}
	return ctx, runID
}

// WithComponent creates a logger with a component field
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

// WithError creates a logger with an error field
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	return logger.With("error", err.Error())
}
