package operations

import (
	"time"
)

// WebSocket event types - using frontend format
const (
	EventTypeRunStatus   = "run:status"
	EventTypeRunProgress = "run:progress"
	EventTypeRunComplete = "run:complete"
	EventTypeRunError    = "run:error"
)

// Default limits
const (
	DefaultRunTimeout = 30 * time.Minute
	DefaultRetention  = 24 * time.Hour
)

// ProgressUpdate is the payload of a run:progress event
type ProgressUpdate struct {
	RunID   string    `json:"run_id"`
	Step    int       `json:"step"`
	Message string    `json:"message"`
	Elapsed string    `json:"elapsed"`
	At      time.Time `json:"at"`
}

// RunFilter for querying runs
type RunFilter struct {
	Status   RunStatus
	Customer string
	Since    time.Time
	Limit    int
}
