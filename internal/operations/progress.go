package operations

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"exportcheck/internal/validation"
)

// ProgressTracker forwards runner progress to the run state and the hub.
// It implements validation.ProgressReporter.
type ProgressTracker struct {
	run       *RunState
	hub       WebSocketHub
	logger    *slog.Logger
	startTime time.Time

	mu       sync.Mutex
	complete bool
}

var _ validation.ProgressReporter = (*ProgressTracker)(nil)

// NewProgressTracker creates a tracker for run. hub may be nil.
func NewProgressTracker(run *RunState, hub WebSocketHub, logger *slog.Logger) *ProgressTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressTracker{
		run:       run,
		hub:       hub,
		logger:    logger,
		startTime: time.Now(),
	}
}

// Update records a step description
func (p *ProgressTracker) Update(description string) {
	step := p.run.SetProgress(description)
	p.logger.Debug("run progress",
		slog.String("run_id", p.run.ID),
		slog.Int("step", step),
		slog.String("message", description))

	if p.hub != nil {
		p.hub.BroadcastUpdate(EventTypeRunProgress, p.run.ID, string(RunStatusRunning), ProgressUpdate{
			RunID:   p.run.ID,
			Step:    step,
			Message: description,
			Elapsed: p.GetElapsedTimeString(),
			At:      time.Now(),
		})
	}
}

// Complete marks the end of the runner's work
func (p *ProgressTracker) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.complete = true
}

// IsComplete returns true once Complete was called
func (p *ProgressTracker) IsComplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.complete
}

// GetElapsedTime returns the elapsed time since start
func (p *ProgressTracker) GetElapsedTime() time.Duration {
	return time.Since(p.startTime)
}

// GetElapsedTimeString returns a formatted elapsed time string
func (p *ProgressTracker) GetElapsedTimeString() string {
	return formatElapsed(p.GetElapsedTime())
}

func formatElapsed(elapsed time.Duration) string {
	if elapsed < time.Minute {
		return fmt.Sprintf("%.0f seconds", elapsed.Seconds())
	} else if elapsed < time.Hour {
		return fmt.Sprintf("%.1f minutes", elapsed.Minutes())
	}
	return fmt.Sprintf("%.1f hours", elapsed.Hours())
}
