package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"exportcheck/internal/config"
)

const (
	ServiceName = "exportcheck"
	MeterName   = "exportcheck"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration.
// Traces are off by default because the stdout exporter is noisy for a CLI.
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv(config.EnvPrefix + "_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: config.AppVersion,
		Environment:    env,
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  false,
		SampleRatio:    1.0,
	}
}

// InitializeOTel initializes tracing and metrics providers
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Logger: logger,
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics sets up OpenTelemetry metrics
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		providers.PrometheusHTTP = promhttp.Handler()

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
		otel.SetMeterProvider(mp)

	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "Metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// ValidationMetrics holds the instruments recorded by validation runs
type ValidationMetrics struct {
	RunsTotal         metric.Int64Counter
	RunDuration       metric.Float64Histogram
	ActiveRuns        metric.Int64UpDownCounter
	PollObservations  metric.Int64Counter
	CellOutcomes      metric.Int64Counter
	HTTPRequestsTotal metric.Int64Counter
}

// CreateValidationMetrics creates the run instruments on meter
func CreateValidationMetrics(meter metric.Meter) (*ValidationMetrics, error) {
	runsTotal, err := meter.Int64Counter(
		"validation_runs_total",
		metric.WithDescription("Total number of validation runs by export kind and outcome"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"validation_run_duration_seconds",
		metric.WithDescription("Validation run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	activeRuns, err := meter.Int64UpDownCounter(
		"validation_active_runs",
		metric.WithDescription("Number of validation runs in progress"),
	)
	if err != nil {
		return nil, err
	}

	pollObservations, err := meter.Int64Counter(
		"validation_poll_observations_total",
		metric.WithDescription("Export job status observations by reported status"),
	)
	if err != nil {
		return nil, err
	}

	cellOutcomes, err := meter.Int64Counter(
		"validation_cell_outcomes_total",
		metric.WithDescription("Reconciled cells by match state"),
	)
	if err != nil {
		return nil, err
	}

	httpRequests, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	return &ValidationMetrics{
		RunsTotal:         runsTotal,
		RunDuration:       runDuration,
		ActiveRuns:        activeRuns,
		PollObservations:  pollObservations,
		CellOutcomes:      cellOutcomes,
		HTTPRequestsTotal: httpRequests,
	}, nil
}

// RecordObservation counts one status observation
func (m *ValidationMetrics) RecordObservation(ctx context.Context, status string, wellformed bool) {
	if m == nil {
		return
	}
	if !wellformed {
		status = "malformed"
	}
	m.PollObservations.Add(ctx, 1, metric.WithAttributes(attribute.String("job.status", status)))
}

// RecordCells counts reconciled cells per match state
func (m *ValidationMetrics) RecordCells(ctx context.Context, exportKind string, match, mismatch, notCompared int) {
	if m == nil {
		return
	}
	kind := attribute.String("export.kind", exportKind)
	m.CellOutcomes.Add(ctx, int64(match), metric.WithAttributes(kind, attribute.String("match.state", "match")))
	m.CellOutcomes.Add(ctx, int64(mismatch), metric.WithAttributes(kind, attribute.String("match.state", "mismatch")))
	m.CellOutcomes.Add(ctx, int64(notCompared), metric.WithAttributes(kind, attribute.String("match.state", "not_compared")))
}

// RunStarted marks a run as active
func (m *ValidationMetrics) RunStarted(ctx context.Context, exportKind string) {
	if m == nil {
		return
	}
	m.ActiveRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("export.kind", exportKind)))
}

// RecordRun records a finished run
func (m *ValidationMetrics) RecordRun(ctx context.Context, exportKind, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("export.kind", exportKind),
		attribute.String("run.outcome", outcome),
	)
	m.RunsTotal.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, duration.Seconds(), attrs)
	m.ActiveRuns.Add(ctx, -1, metric.WithAttributes(attribute.String("export.kind", exportKind)))
}

// RecordHTTPRequest counts one served request
func (m *ValidationMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	))
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
