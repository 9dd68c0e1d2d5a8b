package validation

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"exportcheck/internal/config"
	apperrors "exportcheck/internal/errors"
	"exportcheck/internal/infrastructure"
)

// RunRequest selects what a validation run checks
type RunRequest struct {
	RunID       string      `json:"run_id,omitempty"`
	Customer    string      `json:"customer" validate:"required,max=200"`
	ExportKind  ExportKind  `json:"export_kind" validate:"required,max=64"`
	Environment Environment `json:"environment" validate:"required,oneof=CERT PROD"`
}

// RunnerConfig holds the tunables of a Runner
type RunnerConfig struct {
	Policy     BackoffPolicy
	Timeouts   FlowTimeouts
	SniffBytes int
}

// DefaultRunnerConfig returns the defaults used against the remote application
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Policy:     DefaultBackoffPolicy(),
		Timeouts:   DefaultFlowTimeouts(),
		SniffBytes: DefaultSniffBytes,
	}
}

// RunnerConfigFrom maps the poller, browser and artifact sections of cfg
func RunnerConfigFrom(cfg *config.Config) RunnerConfig {
	rc := DefaultRunnerConfig()
	if cfg == nil {
		return rc
	}
	rc.Policy = BackoffPolicy{
		RetryInterval:   cfg.Poller.RetryInterval,
		RefreshInterval: cfg.Poller.RefreshInterval,
		MaxInterval:     cfg.Poller.MaxInterval,
		Multiplier:      cfg.Poller.Multiplier,
		MaxAttempts:     cfg.Poller.MaxAttempts,
	}
	rc.Timeouts = FlowTimeouts{
		Step:      cfg.Browser.StepTimeout,
		Login:     cfg.Browser.LoginTimeout,
		Preloader: cfg.Browser.PreloaderTimeout,
		Status:    cfg.Poller.StatusTimeout,
	}
	rc.SniffBytes = cfg.Artifact.SniffBytes
	return rc
}

// Runner executes validation runs against one browser session
type Runner struct {
	session  Session
	cfg      ConfigProvider
	store    ArtifactStore
	creds    config.Credentials
	rc       RunnerConfig
	selector *ColumnSelector
	ingester *CsvIngester
	sleeper  Sleeper
	metrics  MetricsRecorder
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewRunner creates a Runner
func NewRunner(session Session, cfg ConfigProvider, store ArtifactStore, creds config.Credentials, rc RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	selector := DefaultColumnSelector()
	return &Runner{
		session:  session,
		cfg:      cfg,
		store:    store,
		creds:    creds,
		rc:       rc,
		selector: selector,
		ingester: NewCsvIngester(selector, rc.SniffBytes),
		sleeper:  TimerSleeper{},
		metrics:  nopMetrics{},
		logger:   logger.With(slog.String("component", "validation_runner")),
		tracer:   otel.Tracer("exportcheck/validation"),
		now:      time.Now,
	}
}

// WithSelector replaces the column policies
func (r *Runner) WithSelector(s *ColumnSelector) *Runner {
	r.selector = s
	r.ingester = NewCsvIngester(s, r.rc.SniffBytes)
	return r
}

// WithSleeper replaces the wait implementation
func (r *Runner) WithSleeper(s Sleeper) *Runner {
	r.sleeper = s
	return r
}

// WithMetrics records run instrumentation on m
func (r *Runner) WithMetrics(m MetricsRecorder) *Runner {
	if m != nil {
		r.metrics = m
	}
	return r
}

// WithClock replaces the time source
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Selector returns the column selector in use
func (r *Runner) Selector() *ColumnSelector {
	return r.selector
}

// Run performs one validation run. The report is always returned, holding
// whatever was collected before a failure. A failure is returned as a
// single *errors.AppError.
func (r *Runner) Run(ctx context.Context, req RunRequest, progress ProgressReporter) (*ValidationReport, error) {
	if progress == nil {
		progress = NopProgress{}
	}
	if req.RunID == "" {
		ctx, req.RunID = infrastructure.StartRun(ctx)
	} else {
		ctx = infrastructure.WithRunID(ctx, req.RunID)
		if infrastructure.GetTraceID(ctx) == "" {
			ctx = infrastructure.WithTraceID(ctx, req.RunID)
		}
	}

	kind := req.ExportKind
	policy, hasPolicy := r.selector.Policy(kind)
	if hasPolicy {
		kind = policy.Kind
	}

	ctx, span := r.tracer.Start(ctx, "validation.run", trace.WithAttributes(
		attribute.String("run.id", req.RunID),
		attribute.String("export.kind", string(kind)),
		attribute.String("environment", string(req.Environment)),
	))
	defer span.End()

	logger := r.logger.With(slog.String("run_id", req.RunID))
	log := NewLogCollector(logger).WithClock(r.now)
	meta := RunMeta{
		RunID:       req.RunID,
		Customer:    req.Customer,
		ExportKind:  kind,
		Environment: req.Environment,
		StartedAt:   r.now(),
	}

	logger.InfoContext(ctx, "validation run started",
		slog.String("export_kind", string(kind)),
		slog.String("environment", string(req.Environment)))
	r.metrics.RunStarted(ctx, string(kind))
	log.Info("Validation started for customer '%s', export '%s' (%s).", req.Customer, kind, req.Environment)

	table, matrix, err := r.execute(ctx, req, kind, policy, hasPolicy, log, progress)

	var runErr error
	if err != nil {
		appErr := summarize(err)
		runErr = appErr
		log.Failure("Validation run failed: %s", appErr.Error())
		span.RecordError(appErr)
		span.SetStatus(codes.Error, appErr.Message)
		logger.ErrorContext(ctx, "validation run failed",
			slog.String("error_type", string(appErr.Type)),
			slog.String("error", appErr.Error()))
	} else {
		log.Success("Validation completed.")
	}
	progress.Complete()

	meta.FinishedAt = r.now()
	report := NewValidationReport(meta, log, table, matrix, runErr)

	if matrix != nil {
		r.metrics.RecordCells(ctx, string(kind), report.Counts.Match, report.Counts.Mismatch, report.Counts.NotCompared)
	}
	r.metrics.RecordRun(ctx, string(kind), string(report.Outcome), meta.FinishedAt.Sub(meta.StartedAt))
	span.SetAttributes(attribute.String("run.outcome", string(report.Outcome)))
	logger.InfoContext(ctx, "validation run finished",
		slog.String("outcome", string(report.Outcome)),
		slog.Int("sample_rows", len(report.SampleRows)),
		slog.Int("mismatches", report.Counts.Mismatch))

	return report, runErr
}

func (r *Runner) execute(ctx context.Context, req RunRequest, kind ExportKind, policy ColumnPolicy, hasPolicy bool, log *LogCollector, progress ProgressReporter) (*ParsedTable, *MatchMatrix, error) {
	wf := NewWorkflow(r.session, r.cfg, r.rc.Timeouts, r.sleeper, log)
	defer wf.Logout(context.WithoutCancel(ctx), req.Environment)

	progress.Update(fmt.Sprintf("Logging in (%s)...", req.Environment))
	if err := wf.Login(ctx, req.Environment, req.Customer, r.creds.User, r.creds.Password); err != nil {
		log.Failure("Login error (%s): %v", req.Environment, err)
		return nil, nil, err
	}

	progress.Update(fmt.Sprintf("Running %s export...", kind))
	logPage, err := wf.TriggerExport(ctx, kind)
	if err != nil {
		return nil, nil, err
	}

	progress.Update("Opening Export Dashboard...")
	if err := wf.OpenDashboard(ctx); err != nil {
		return nil, nil, err
	}

	progress.Update("Validating Export dashboard data...")
	if _, err := wf.InspectDashboard(ctx, req.Customer); err != nil {
		return nil, nil, err
	}

	poller := NewJobStatusPoller(r.rc.Policy, r.sleeper, progress, log).WithMetrics(r.metrics)
	if _, err := poller.Poll(ctx, wf.StatusSource()); err != nil {
		return nil, nil, err
	}

	progress.Update("Downloading export...")
	if err := wf.ClickDownload(ctx); err != nil {
		return nil, nil, err
	}
	path, err := r.store.WaitLatest(ctx)
	if err != nil {
		log.Failure("CSV file not found or download incomplete.")
		return nil, nil, automation("wait for download", err)
	}
	log.Success("CSV downloaded: %s", filepath.Base(path))

	progress.Update("Validating Exported file and columns...")
	table, ingestErr := r.ingester.IngestFile(path, kind, log)
	if err := r.store.Remove(path); err != nil {
		log.Notice("Could not delete CSV file: %v", err)
	} else {
		log.Info("Deleted processed file: %s", filepath.Base(path))
	}
	if ingestErr != nil {
		return nil, nil, ingestErr
	}

	if !hasPolicy || !policy.SecondSource {
		log.Info("Export '%s' has no second source; skipping UI comparison for this run.", kind)
		return table, NewMatchMatrix(table.Columns, len(table.Rows)), nil
	}
	if len(table.Rows) == 0 || len(table.Columns) == 0 {
		log.Notice("Nothing to compare: %d sample rows, %d columns.", len(table.Rows), len(table.Columns))
		return table, NewMatchMatrix(table.Columns, len(table.Rows)), nil
	}

	progress.Update("Comparing sample rows with the log page...")
	snap, err := wf.CaptureSecondSource(ctx, logPage, table.Columns, len(table.Rows))
	if err != nil {
		if ctx.Err() != nil {
			return table, nil, ctx.Err()
		}
		log.Notice("UI comparison for %s export failed: %v", kind, err)
		return table, NewMatchMatrix(table.Columns, len(table.Rows)), nil
	}
	return table, Reconcile(table.Rows, snap, table.Columns, log), nil
}

// summarize reduces err to the AppError reported to the caller
func summarize(err error) *apperrors.AppError {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	return apperrors.NewAutomationError("validation run", err)
}
