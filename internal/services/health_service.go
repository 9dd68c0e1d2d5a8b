package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"exportcheck/internal/config"
	"exportcheck/internal/operations"
)

// RunTracker is the part of the run manager the health checks read
type RunTracker interface {
	Busy() bool
	Stats() map[operations.RunStatus]int
}

// HubStats is the part of the progress hub the health checks read
type HubStats interface {
	ClientCount() int
}

// DirectoryChecker verifies working directories
type DirectoryChecker interface {
	Readable(dir string) error
	Writable(dir string) error
	CountCSV(dir string) (int, error)
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	paths     *config.Paths
	runs      RunTracker
	hub       HubStats
	dirs      DirectoryChecker
	customers int
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds    float64                      `json:"uptime_seconds"`
	PendingDownloads int                          `json:"pending_downloads"`
	WebSocketClients int                          `json:"websocket_clients"`
	RunInProgress    bool                         `json:"run_in_progress"`
	Runs             map[operations.RunStatus]int `json:"runs"`
	Customers        int                          `json:"customers"`
	GoVersion        string                       `json:"go_version"`
	OS               string                       `json:"os"`
	Arch             string                       `json:"arch"`
}

// NewHealthService creates a health service. runs and hub may be nil for
// the CLI, which has neither.
func NewHealthService(version, buildTime string, paths *config.Paths, runs RunTracker, hub HubStats, dirs DirectoryChecker, customers int, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		paths:     paths,
		runs:      runs,
		hub:       hub,
		dirs:      dirs,
		customers: customers,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether runs can be started
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"downloads": hs.checkDownloads(),
			"reports":   hs.checkReports(),
			"runs":      hs.checkRuns(),
			"websocket": hs.checkWebSocket(),
		},
	}

	for name, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "readiness check failed",
				slog.String("check", name),
				slog.String("message", sh.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"name":         config.AppName,
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

// SystemStats returns system statistics
func (hs *HealthService) SystemStats(ctx context.Context) SystemStats {
	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		Runs:          map[operations.RunStatus]int{},
		Customers:     hs.customers,
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}
	if hs.dirs != nil && hs.paths != nil {
		if n, err := hs.dirs.CountCSV(hs.paths.DownloadsDir); err == nil {
			stats.PendingDownloads = n
		}
	}
	if hs.hub != nil {
		stats.WebSocketClients = hs.hub.ClientCount()
	}
	if hs.runs != nil {
		stats.RunInProgress = hs.runs.Busy()
		stats.Runs = hs.runs.Stats()
	}
	return stats
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
		"stats":     hs.SystemStats(ctx),
	}
}

func (hs *HealthService) checkDownloads() ServiceHealth {
	if hs.paths == nil || hs.dirs == nil {
		return ServiceHealth{Status: "not_ready", Message: "paths not configured"}
	}
	if err := hs.dirs.Readable(hs.paths.DownloadsDir); err != nil {
		return ServiceHealth{Status: "not_ready", Message: err.Error()}
	}
	n, err := hs.dirs.CountCSV(hs.paths.DownloadsDir)
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: err.Error()}
	}
	if n > 0 {
		return ServiceHealth{Status: "ready", Message: fmt.Sprintf("%d leftover export file(s) will be ignored", n)}
	}
	return ServiceHealth{Status: "ready", Message: "Download directory is empty"}
}

func (hs *HealthService) checkReports() ServiceHealth {
	if hs.paths == nil || hs.dirs == nil {
		return ServiceHealth{Status: "not_ready", Message: "paths not configured"}
	}
	if err := hs.dirs.Writable(hs.paths.ReportsDir); err != nil {
		return ServiceHealth{Status: "not_ready", Message: err.Error()}
	}
	return ServiceHealth{Status: "ready", Message: "Report directory is writable"}
}

func (hs *HealthService) checkRuns() ServiceHealth {
	if hs.runs == nil {
		return ServiceHealth{Status: "not_ready", Message: "run manager not initialized"}
	}
	if hs.runs.Busy() {
		return ServiceHealth{Status: "ready", Message: "A validation run is in progress"}
	}
	return ServiceHealth{Status: "ready", Message: "Idle"}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "ready", Message: "Progress streaming disabled"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d client(s) connected", hs.hub.ClientCount()),
		Uptime:  time.Since(hs.startTime).String(),
	}
}
