package http

import (
	"io"

	"exportcheck/internal/operations"
	"exportcheck/internal/validation"
)

// RunService starts and tracks validation runs
type RunService interface {
	Submit(req validation.RunRequest) (*operations.RunState, error)
	Get(id string) (*operations.RunState, error)
	List(filter operations.RunFilter) ([]*operations.RunState, error)
	Cancel(id string) error
}

// ReportRenderer writes a report as an HTML page
type ReportRenderer interface {
	Render(w io.Writer, r *validation.ValidationReport) error
}

// StatsSource exposes run and hub counters
type StatsSource interface {
	Stats() map[operations.RunStatus]int
}

// HubMetrics exposes progress hub counters
type HubMetrics interface {
	GetHubMetrics() map[string]interface{}
}

var _ RunService = (*operations.Manager)(nil)
