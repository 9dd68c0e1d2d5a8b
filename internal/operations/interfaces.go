package operations

import (
	"context"

	"exportcheck/internal/validation"
)

// WebSocketHub interface for sending WebSocket messages
type WebSocketHub interface {
	BroadcastUpdate(eventType, runID, status string, metadata interface{})
}

// Executor performs one validation run. The report is returned even when
// the run fails.
type Executor interface {
	Execute(ctx context.Context, req validation.RunRequest, progress validation.ProgressReporter) (*validation.ValidationReport, error)
}

// ExecutorFunc adapts a function to Executor
type ExecutorFunc func(ctx context.Context, req validation.RunRequest, progress validation.ProgressReporter) (*validation.ValidationReport, error)

// Execute calls f
func (f ExecutorFunc) Execute(ctx context.Context, req validation.RunRequest, progress validation.ProgressReporter) (*validation.ValidationReport, error) {
	return f(ctx, req, progress)
}

// RunStore persists run states
type RunStore interface {
	Create(run *RunState) error
	Get(id string) (*RunState, error)
	Update(run *RunState) error
	List(filter RunFilter) ([]*RunState, error)
}
