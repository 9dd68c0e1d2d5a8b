package operations

import (
	"sync"
	"time"

	"exportcheck/internal/exporter"
	"exportcheck/internal/validation"
)

// RunStatus represents the lifecycle status of a run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status can no longer change
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// RunState represents the complete state of a validation run
type RunState struct {
	mu sync.RWMutex

	ID        string                `json:"id"`
	Request   validation.RunRequest `json:"request"`
	Status    RunStatus             `json:"status"`
	CreatedAt time.Time             `json:"created_at"`
	StartTime *time.Time            `json:"start_time,omitempty"`
	EndTime   *time.Time            `json:"end_time,omitempty"`

	// Step counts progress updates received from the runner
	Step    int    `json:"step"`
	Message string `json:"message,omitempty"`

	Outcome validation.Outcome           `json:"outcome,omitempty"`
	Report  *validation.ValidationReport `json:"-"`
	Files   *exporter.ReportFiles        `json:"files,omitempty"`
	Error   string                       `json:"error,omitempty"`
}

// NewRunState creates a pending run for req
func NewRunState(id string, req validation.RunRequest) *RunState {
	req.RunID = id
	return &RunState{
		ID:        id,
		Request:   req,
		Status:    RunStatusPending,
		CreatedAt: time.Now(),
	}
}

// Start marks the run as running
func (r *RunState) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.StartTime = &now
	r.Status = RunStatusRunning
}

// SetProgress records the latest progress message
func (r *RunState) SetProgress(message string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Step++
	r.Message = message
	return r.Step
}

// Finish stores the report and moves the run to its terminal status. A
// run whose context was cancelled ends as cancelled, any other error as
// failed. A report with mismatches still completes; its outcome says failed.
func (r *RunState) Finish(report *validation.ValidationReport, files *exporter.ReportFiles, err error, cancelled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Report = report
	r.Files = files
	if report != nil {
		r.Outcome = report.Outcome
	}
	switch {
	case cancelled:
		r.Status = RunStatusCancelled
	case err != nil:
		r.Status = RunStatusFailed
	default:
		r.Status = RunStatusCompleted
	}
	if err != nil {
		r.Error = err.Error()
	}
}

// GetStatus returns the current status
func (r *RunState) GetStatus() RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// GetReport returns the report of a finished run
func (r *RunState) GetReport() *validation.ValidationReport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Report
}

// Duration returns the duration of the run
func (r *RunState) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.StartTime == nil {
		return 0
	}
	if r.EndTime != nil {
		return r.EndTime.Sub(*r.StartTime)
	}
	return time.Since(*r.StartTime)
}

// Clone creates a copy that is safe to hand out. The report is shared; it
// is never modified once set.
func (r *RunState) Clone() *RunState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clone := &RunState{
		ID:        r.ID,
		Request:   r.Request,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		Step:      r.Step,
		Message:   r.Message,
		Outcome:   r.Outcome,
		Report:    r.Report,
		Error:     r.Error,
	}
	if r.StartTime != nil {
		start := *r.StartTime
		clone.StartTime = &start
	}
	if r.EndTime != nil {
		end := *r.EndTime
		clone.EndTime = &end
	}
	if r.Files != nil {
		files := *r.Files
		clone.Files = &files
	}
	return clone
}
