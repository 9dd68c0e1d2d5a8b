package operations

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "exportcheck/internal/errors"
	"exportcheck/internal/exporter"
	"exportcheck/internal/shared/testutil"
	"exportcheck/internal/validation"
)

type hubEvent struct {
	eventType string
	runID     string
	status    string
	metadata  interface{}
}

type fakeHub struct {
	mu     sync.Mutex
	events []hubEvent
}

func (h *fakeHub) BroadcastUpdate(eventType, runID, status string, metadata interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, hubEvent{eventType, runID, status, metadata})
}

func (h *fakeHub) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, e := range h.events {
		out = append(out, e.eventType)
	}
	return out
}

type fakeWriter struct {
	written []*validation.ValidationReport
	err     error
}

func (w *fakeWriter) WriteAll(r *validation.ValidationReport) (exporter.ReportFiles, error) {
	w.written = append(w.written, r)
	return exporter.ReportFiles{Base: "base_" + r.RunID}, w.err
}

var request = validation.RunRequest{
	Customer:    "Acme",
	ExportKind:  validation.KindSticket,
	Environment: validation.EnvironmentCert,
}

func reportFor(req validation.RunRequest, err error) *validation.ValidationReport {
	return validation.NewValidationReport(validation.RunMeta{RunID: req.RunID, Customer: req.Customer}, nil, nil, nil, err)
}

func passingExecutor() ExecutorFunc {
	return func(ctx context.Context, req validation.RunRequest, progress validation.ProgressReporter) (*validation.ValidationReport, error) {
		progress.Update("Logging in (CERT)...")
		progress.Update("Waiting for export")
		progress.Complete()
		return reportFor(req, nil), nil
	}
}

// blockingExecutor runs until release is closed or ctx is done
func blockingExecutor(started chan<- string, release <-chan struct{}) ExecutorFunc {
	return func(ctx context.Context, req validation.RunRequest, progress validation.ProgressReporter) (*validation.ValidationReport, error) {
		started <- req.RunID
		select {
		case <-release:
			return reportFor(req, nil), nil
		case <-ctx.Done():
			return reportFor(req, ctx.Err()), ctx.Err()
		}
	}
}

func newTestManager(t *testing.T, exec Executor) (*Manager, *fakeHub, *fakeWriter) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	hub := &fakeHub{}
	writer := &fakeWriter{}
	return NewManager(exec, NewMemoryRunStore(), hub, writer, time.Minute, logger), hub, writer
}

func shutdown(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))
}

func TestManager_RunCompletes(t *testing.T) {
	m, hub, writer := newTestManager(t, passingExecutor())

	run, err := m.Run(context.Background(), request)

	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, run.ID, run.Request.RunID)
	assert.Equal(t, RunStatusCompleted, run.Status)
	assert.Equal(t, validation.OutcomePassed, run.Outcome)
	assert.Equal(t, 2, run.Step)
	assert.Equal(t, "Waiting for export", run.Message)
	require.NotNil(t, run.Files)
	assert.Equal(t, "base_"+run.ID, run.Files.Base)
	require.NotNil(t, run.Report)
	require.Len(t, writer.written, 1)
	assert.NotNil(t, run.StartTime)
	assert.NotNil(t, run.EndTime)

	stored, err := m.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, stored.Status)

	assert.Equal(t, []string{
		EventTypeRunStatus, EventTypeRunStatus,
		EventTypeRunProgress, EventTypeRunProgress,
		EventTypeRunComplete,
	}, hub.types())

	hub.mu.Lock()
	progress, ok := hub.events[3].metadata.(ProgressUpdate)
	hub.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, 2, progress.Step)
	assert.Equal(t, run.ID, progress.RunID)
	assert.False(t, m.Busy())
}

func TestManager_RunKeepsRequestedID(t *testing.T) {
	m, _, _ := newTestManager(t, passingExecutor())
	req := request
	req.RunID = "fixed-id"

	run, err := m.Run(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "fixed-id", run.ID)

	_, err = m.Run(context.Background(), req)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConflict))
}

func TestManager_RunFailure(t *testing.T) {
	jobErr := apperrors.NewJobFailedError("Deleted")
	m, hub, writer := newTestManager(t, ExecutorFunc(func(ctx context.Context, req validation.RunRequest, _ validation.ProgressReporter) (*validation.ValidationReport, error) {
		return reportFor(req, jobErr), jobErr
	}))

	run, err := m.Run(context.Background(), request)

	require.ErrorIs(t, err, jobErr)
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Equal(t, validation.OutcomeError, run.Outcome)
	assert.Equal(t, jobErr.Error(), run.Error)
	assert.Len(t, writer.written, 1)
	assert.Contains(t, hub.types(), EventTypeRunError)
}

func TestManager_WriterFailureKeepsRun(t *testing.T) {
	m, _, writer := newTestManager(t, passingExecutor())
	writer.err = assert.AnError

	run, err := m.Run(context.Background(), request)

	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, run.Status)
	require.NotNil(t, run.Files)
}

func TestManager_SubmitRejectsConcurrentRun(t *testing.T) {
	started := make(chan string, 1)
	release := make(chan struct{})
	m, _, _ := newTestManager(t, blockingExecutor(started, release))

	first, err := m.Submit(request)
	require.NoError(t, err)
	assert.Equal(t, first.ID, <-started)
	assert.True(t, m.Busy())

	_, err = m.Submit(request)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConflict))

	close(release)
	shutdown(t, m)

	done, err := m.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, done.Status)
	assert.False(t, m.Busy())
}

func TestManager_RunWaitsForActiveRun(t *testing.T) {
	started := make(chan string, 1)
	release := make(chan struct{})
	m, _, _ := newTestManager(t, blockingExecutor(started, release))

	_, err := m.Submit(request)
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = m.Run(ctx, request)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	shutdown(t, m)
}

func TestManager_Cancel(t *testing.T) {
	started := make(chan string, 1)
	m, _, _ := newTestManager(t, blockingExecutor(started, make(chan struct{})))

	run, err := m.Submit(request)
	require.NoError(t, err)
	<-started

	require.NoError(t, m.Cancel(run.ID))
	shutdown(t, m)

	got, err := m.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCancelled, got.Status)

	err = m.Cancel(run.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConflict))

	err = m.Cancel("missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestManager_ShutdownCancelsRuns(t *testing.T) {
	started := make(chan string, 1)
	m, _, _ := newTestManager(t, blockingExecutor(started, make(chan struct{})))

	run, err := m.Submit(request)
	require.NoError(t, err)
	<-started

	shutdown(t, m)

	got, err := m.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCancelled, got.Status)
}

func TestManager_List(t *testing.T) {
	m, _, _ := newTestManager(t, passingExecutor())
	_, err := m.Run(context.Background(), request)
	require.NoError(t, err)

	other := request
	other.Customer = "Globex"
	_, err = m.Run(context.Background(), other)
	require.NoError(t, err)

	all, err := m.List(RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	acme, err := m.List(RunFilter{Customer: "acme"})
	require.NoError(t, err)
	require.Len(t, acme, 1)
	assert.Equal(t, "Acme", acme[0].Request.Customer)
}

func TestManager_Stats(t *testing.T) {
	m, _, _ := newTestManager(t, passingExecutor())
	_, err := m.Run(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, map[RunStatus]int{RunStatusCompleted: 1}, m.Stats())
}

func TestManager_JanitorExpiresFinishedRuns(t *testing.T) {
	m, _, _ := newTestManager(t, passingExecutor())
	run, err := m.Run(context.Background(), request)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond, time.Nanosecond)

	assert.Eventually(t, func() bool {
		_, err := m.Get(run.ID)
		return apperrors.IsType(err, apperrors.ErrTypeNotFound)
	}, 2*time.Second, 10*time.Millisecond)
}
