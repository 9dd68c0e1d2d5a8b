package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	apperrors "exportcheck/internal/errors"
	"exportcheck/internal/exporter"
	"exportcheck/internal/validation"
)

// ReportWriter renders a finished report to files
type ReportWriter interface {
	WriteAll(r *validation.ValidationReport) (exporter.ReportFiles, error)
}

// Manager owns validation runs. Runs share one browser download directory,
// so at most one executes at a time.
type Manager struct {
	executor Executor
	store    RunStore
	hub      WebSocketHub
	writer   ReportWriter
	timeout  time.Duration
	logger   *slog.Logger

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewManager creates a run manager. hub and writer may be nil.
func NewManager(executor Executor, store RunStore, hub WebSocketHub, writer ReportWriter, timeout time.Duration, logger *slog.Logger) *Manager {
	if store == nil {
		store = NewMemoryRunStore()
	}
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		executor: executor,
		store:    store,
		hub:      hub,
		writer:   writer,
		timeout:  timeout,
		logger:   logger.With(slog.String("component", "run_manager")),
		sem:      semaphore.NewWeighted(1),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Busy reports whether a run is executing
func (m *Manager) Busy() bool {
	if m.sem.TryAcquire(1) {
		m.sem.Release(1)
		return false
	}
	return true
}

// Submit starts req in the background and returns the pending run. It
// fails with a conflict when another run is executing.
func (m *Manager) Submit(req validation.RunRequest) (*RunState, error) {
	if !m.sem.TryAcquire(1) {
		return nil, apperrors.NewConflictError("a validation run is already in progress")
	}

	run, err := m.create(req)
	if err != nil {
		m.sem.Release(1)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	m.track(run.ID, cancel)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.sem.Release(1)
		defer m.untrack(run.ID)
		_ = m.execute(ctx, run)
	}()

	return run.Clone(), nil
}

// Run executes req in the caller's goroutine, waiting for a running run to
// finish first. The returned state holds the report; the error is the
// run's failure.
func (m *Manager) Run(ctx context.Context, req validation.RunRequest) (*RunState, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer m.sem.Release(1)

	run, err := m.create(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	m.track(run.ID, cancel)
	defer m.untrack(run.ID)

	err = m.execute(ctx, run)
	return run.Clone(), err
}

// Get returns a snapshot of the run with the given id
func (m *Manager) Get(id string) (*RunState, error) {
	return m.store.Get(id)
}

// List returns snapshots of the runs matching filter
func (m *Manager) List(filter RunFilter) ([]*RunState, error) {
	return m.store.List(filter)
}

// Stats counts known runs per status
func (m *Manager) Stats() map[RunStatus]int {
	stats := make(map[RunStatus]int)
	runs, err := m.store.List(RunFilter{})
	if err != nil {
		return stats
	}
	for _, run := range runs {
		stats[run.Status]++
	}
	return stats
}

// StartJanitor removes finished runs older than retention every interval
// until ctx is done. It does nothing when the store cannot expire runs.
func (m *Manager) StartJanitor(ctx context.Context, interval, retention time.Duration) {
	cleaner, ok := m.store.(interface{ CleanupOld(time.Duration) int })
	if !ok || interval <= 0 {
		return
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := cleaner.CleanupOld(retention); n > 0 {
					m.logger.Info("expired finished runs", slog.Int("removed", n))
				}
			}
		}
	}()
}

// Cancel stops a pending or running run
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	cancel, ok := m.cancels[id]
	m.mu.Unlock()
	if !ok {
		if _, err := m.store.Get(id); err != nil {
			return err
		}
		return apperrors.NewConflictError(fmt.Sprintf("run %s is not running", id))
	}
	m.logger.Info("cancelling run", slog.String("run_id", id))
	cancel()
	return nil
}

// Shutdown cancels every active run and waits for them to finish or for
// ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	for _, cancel := range m.cancels {
		cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for runs to finish: %w", ctx.Err())
	}
}

func (m *Manager) create(req validation.RunRequest) (*RunState, error) {
	id := req.RunID
	if id == "" {
		id = uuid.NewString()
	}
	run := NewRunState(id, req)
	if err := m.store.Create(run); err != nil {
		return nil, err
	}
	m.broadcast(EventTypeRunStatus, run)
	return run, nil
}

func (m *Manager) track(id string, cancel context.CancelFunc) {
	m.mu.Lock()
	m.cancels[id] = cancel
	m.mu.Unlock()
}

func (m *Manager) untrack(id string) {
	m.mu.Lock()
	cancel, ok := m.cancels[id]
	delete(m.cancels, id)
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

func (m *Manager) execute(ctx context.Context, run *RunState) error {
	logger := m.logger.With(slog.String("run_id", run.ID))

	run.Start()
	m.save(run)
	m.broadcast(EventTypeRunStatus, run)
	logger.InfoContext(ctx, "run started",
		slog.String("customer", run.Request.Customer),
		slog.String("export_kind", string(run.Request.ExportKind)))

	tracker := NewProgressTracker(run, m.hub, logger)
	report, runErr := m.executor.Execute(ctx, run.Request, tracker)

	var files *exporter.ReportFiles
	if report != nil && m.writer != nil {
		written, err := m.writer.WriteAll(report)
		if err != nil {
			logger.ErrorContext(ctx, "failed to write report files", slog.String("error", err.Error()))
		}
		files = &written
	}

	cancelled := runErr != nil && errors.Is(ctx.Err(), context.Canceled)
	run.Finish(report, files, runErr, cancelled)
	m.save(run)

	status := run.GetStatus()
	if runErr != nil {
		logger.WarnContext(ctx, "run ended with error",
			slog.String("status", string(status)),
			slog.String("error", runErr.Error()))
		m.broadcast(EventTypeRunError, run)
	} else {
		logger.InfoContext(ctx, "run completed",
			slog.String("outcome", string(run.Clone().Outcome)),
			slog.Duration("duration", run.Duration()))
		m.broadcast(EventTypeRunComplete, run)
	}
	return runErr
}

func (m *Manager) save(run *RunState) {
	if err := m.store.Update(run); err != nil {
		m.logger.Error("failed to save run", slog.String("run_id", run.ID), slog.String("error", err.Error()))
	}
}

func (m *Manager) broadcast(eventType string, run *RunState) {
	if m.hub == nil {
		return
	}
	snapshot := run.Clone()
	snapshot.Report = nil
	m.hub.BroadcastUpdate(eventType, run.ID, string(snapshot.Status), snapshot)
}
