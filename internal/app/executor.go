package app

import (
	"context"
	"log/slog"
	"time"

	"exportcheck/internal/browser"
	"exportcheck/internal/config"
	"exportcheck/internal/files"
	"exportcheck/internal/infrastructure"
	"exportcheck/internal/validation"
)

// BrowserExecutor runs one validation per fresh browser session. Locators
// and credentials are read on every run so edits apply without a restart.
type BrowserExecutor struct {
	cfg      *config.Config
	paths    *config.Paths
	selector *validation.ColumnSelector
	metrics  *infrastructure.ValidationMetrics
	logger   *slog.Logger
}

// NewBrowserExecutor creates an executor. metrics may be nil.
func NewBrowserExecutor(cfg *config.Config, paths *config.Paths, selector *validation.ColumnSelector, metrics *infrastructure.ValidationMetrics, logger *slog.Logger) *BrowserExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	if selector == nil {
		selector = validation.DefaultColumnSelector()
	}
	return &BrowserExecutor{
		cfg:      cfg,
		paths:    paths,
		selector: selector,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "executor")),
	}
}

// Execute implements operations.Executor
func (e *BrowserExecutor) Execute(ctx context.Context, req validation.RunRequest, progress validation.ProgressReporter) (*validation.ValidationReport, error) {
	started := time.Now()

	locators, err := config.LoadLocators(e.cfg.LocatorsPath(e.paths))
	if err != nil {
		return e.setupFailed(req, started, err), err
	}
	creds, err := config.LoadCredentials()
	if err != nil {
		return e.setupFailed(req, started, err), err
	}

	store := files.NewArtifactStore(e.paths.DownloadsDir, e.cfg.Artifact, e.logger).Since(started)
	if err := store.EnsureDirectory(); err != nil {
		return e.setupFailed(req, started, err), err
	}

	progress.Update("Starting browser...")
	session, err := browser.NewSession(browser.Options{
		Headless:    e.cfg.Browser.Headless,
		ExecPath:    e.cfg.Browser.ChromePath,
		UserDataDir: e.cfg.Browser.UserDataDir,
		DownloadDir: e.paths.DownloadsDir,
		StepTimeout: e.cfg.Browser.StepTimeout,
	}, e.logger)
	if err != nil {
		return e.setupFailed(req, started, err), err
	}
	defer session.Close()

	runner := validation.NewRunner(session, locators, store, creds, validation.RunnerConfigFrom(e.cfg), e.logger).
		WithSelector(e.selector)
	if e.metrics != nil {
		runner = runner.WithMetrics(e.metrics)
	}
	return runner.Run(ctx, req, progress)
}

// setupFailed reports a run that never reached the browser flow
func (e *BrowserExecutor) setupFailed(req validation.RunRequest, started time.Time, err error) *validation.ValidationReport {
	e.logger.Error("validation run could not start",
		slog.String("run_id", req.RunID),
		slog.String("error", err.Error()))

	log := validation.NewLogCollector(e.logger)
	log.Failure("Validation run could not start: %v", err)
	return validation.NewValidationReport(validation.RunMeta{
		RunID:       req.RunID,
		Customer:    req.Customer,
		ExportKind:  req.ExportKind,
		Environment: req.Environment,
		StartedAt:   started,
		FinishedAt:  time.Now(),
	}, log, nil, nil, err)
}
