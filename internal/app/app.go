package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"exportcheck/internal/config"
	"exportcheck/internal/customers"
	apierrors "exportcheck/internal/errors"
	"exportcheck/internal/exporter"
	"exportcheck/internal/files"
	"exportcheck/internal/infrastructure"
	customMiddleware "exportcheck/internal/middleware"
	"exportcheck/internal/operations"
	"exportcheck/internal/services"
	handlers "exportcheck/internal/transport/http"
	"exportcheck/internal/validation"
	ws "exportcheck/internal/websocket"
)

// BuildTime is set at link time with -ldflags "-X exportcheck/internal/app.BuildTime=..."
var BuildTime = ""

const janitorInterval = 10 * time.Minute

// Options selects how the application is assembled
type Options struct {
	// ConfigFile overrides config file discovery
	ConfigFile string
	// Server builds the HTTP router, server and progress hub
	Server bool
	// Executor replaces the browser executor
	Executor operations.Executor
	// Logger replaces the configured logger
	Logger *slog.Logger
	// OTel replaces the default OpenTelemetry configuration
	OTel *infrastructure.OTelConfig
}

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.ValidationMetrics

	Customers     *customers.List
	Selector      *validation.ColumnSelector
	Exporter      *exporter.Exporter
	Runs          *operations.Manager
	WebSocketHub  *ws.Hub
	HealthService *services.HealthService

	Router *chi.Mux
	Server *http.Server

	stopJanitor context.CancelFunc
}

// NewApplication loads configuration and wires every component
func NewApplication(opts Options) (*Application, error) {
	cfg, err := loadConfig(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger, err = infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelCfg := opts.OTel
	if otelCfg == nil {
		otelCfg = infrastructure.DefaultOTelConfig()
	}
	otelProviders, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Selector:      validation.DefaultColumnSelector(),
	}

	if otelProviders.Meter != nil {
		metrics, err := infrastructure.CreateValidationMetrics(otelProviders.Meter)
		if err != nil {
			return nil, fmt.Errorf("failed to create validation metrics: %w", err)
		}
		app.Metrics = metrics
	}

	app.loadCustomers()
	app.initializeServices(opts)

	if opts.Server {
		app.setupRouter()
		app.createServer()
	}

	return app, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// loadCustomers reads the optional customer list. Without one any
// customer name is accepted.
func (a *Application) loadCustomers() {
	path := a.Config.CustomersPath(a.Paths)
	if !config.FileExists(path) {
		a.Logger.Warn("Customer list not found, accepting any customer name",
			slog.String("path", path))
		return
	}
	list, err := customers.Load(path)
	if err != nil {
		a.Logger.Error("Failed to load customer list",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
	a.Customers = list
	a.Logger.Info("Customer list loaded",
		slog.String("path", path),
		slog.Int("customers", list.Len()))
}

func (a *Application) initializeServices(opts Options) {
	var hub operations.WebSocketHub
	if opts.Server {
		a.WebSocketHub = ws.NewHub(a.Logger)
		a.WebSocketHub.Start()
		hub = a.WebSocketHub
	}

	executor := opts.Executor
	if executor == nil {
		executor = NewBrowserExecutor(a.Config, a.Paths, a.Selector, a.Metrics, a.Logger)
	}

	a.Exporter = exporter.New(a.Paths, a.Logger)
	a.Runs = operations.NewManager(executor, operations.NewMemoryRunStore(), hub, a.Exporter, a.Config.Server.RunTimeout, a.Logger)

	customerCount := 0
	if a.Customers != nil {
		customerCount = a.Customers.Len()
	}
	var hubStats services.HubStats
	if a.WebSocketHub != nil {
		hubStats = a.WebSocketHub
	}
	a.HealthService = services.NewHealthService(config.AppVersion, BuildTime, a.Paths, a.Runs, hubStats,
		files.NewDirectoryChecker(a.Logger), customerCount, a.Logger)
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// These don't wrap the ResponseWriter, so the WebSocket upgrade survives them
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.HandleFunc("/ws", ws.Handler(a.WebSocketHub, a.Config.Security.AllowedOrigins, a.Logger))

	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → Telemetry → Logger → Recoverer
		r.Use(customMiddleware.Telemetry(a.OTelProviders.Tracer, a.Metrics))
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
		}))
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r, errorHandler)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	a.Router = r
}

func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	health := handlers.NewHealthHandler(a.HealthService, a.Logger)
	validations := handlers.NewValidationsHandler(a.Runs, a.Customers, a.Selector,
		exporter.NewHTMLWriter(a.Paths), errorHandler, a.Logger)
	catalog := handlers.NewCustomersHandler(a.Customers, a.Selector)
	var hubMetrics handlers.HubMetrics
	if a.WebSocketHub != nil {
		hubMetrics = a.WebSocketHub
	}
	metrics := handlers.NewMetricsHandler(a.Runs, hubMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Mount("/health", health.Routes())
		r.Get("/version", health.Version)
		r.Get("/stats", health.Stats)
		r.Mount("/metrics", metrics.Routes())
		r.Get("/customers", catalog.ListCustomers)
		r.Get("/export-kinds", catalog.ListKinds)
		r.Mount("/validations", validations.Routes())
	})
}

// createServer creates the HTTP server. WriteTimeout is left to the
// configuration; run execution happens off the request goroutine.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts the janitor and the HTTP server. Listen errors after
// startup call cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	if a.Server == nil {
		return errors.New("application was built without a server")
	}

	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	janitorCtx, stop := context.WithCancel(context.Background())
	a.stopJanitor = stop
	a.Runs.StartJanitor(janitorCtx, janitorInterval, operations.DefaultRetention)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	readiness := a.HealthService.ReadinessCheck(ctx)
	if readiness.Status != "ready" {
		a.Logger.WarnContext(ctx, "Startup readiness check reported problems",
			slog.Any("checks", readiness.Services))
	}

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if a.Server != nil {
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}
	if a.stopJanitor != nil {
		a.stopJanitor()
	}

	if err := a.Runs.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error cancelling runs", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.WebSocketHub != nil {
		a.WebSocketHub.Stop()
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run serves until SIGINT or SIGTERM, or until the server fails
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}

// Close releases what a server-less application holds
func (a *Application) Close(ctx context.Context) error {
	if err := a.Runs.Shutdown(ctx); err != nil {
		return err
	}
	if a.WebSocketHub != nil {
		a.WebSocketHub.Stop()
	}
	if a.OTelProviders != nil {
		return a.OTelProviders.Shutdown(ctx)
	}
	return nil
}
