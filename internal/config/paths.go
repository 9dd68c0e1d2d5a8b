package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Paths contains all the application paths
type Paths struct {
	BaseDir      string
	DataDir      string
	DownloadsDir string
	ReportsDir   string
	LogsDir      string
}

// GetPaths returns the application paths relative to the executable location
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	return NewPaths(filepath.Dir(exe)), nil
}

// NewPaths lays out the directory structure beneath baseDir:
//
//	base/
//	  ├── data/
//	  │   ├── downloads/   (browser download target, emptied after ingest)
//	  │   └── reports/     (HTML / XLSX / CSV validation reports)
//	  └── logs/
func NewPaths(baseDir string) *Paths {
	if abs, err := filepath.Abs(baseDir); err == nil {
		baseDir = abs
	}
	return &Paths{
		BaseDir:      baseDir,
		DataDir:      filepath.Join(baseDir, DefaultDataDir),
		DownloadsDir: filepath.Join(baseDir, filepath.FromSlash(DefaultDownloadsDir)),
		ReportsDir:   filepath.Join(baseDir, filepath.FromSlash(DefaultReportsDir)),
		LogsDir:      filepath.Join(baseDir, DefaultLogsDir),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.DownloadsDir, p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, DirMode); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// Resolve returns path unchanged when absolute, otherwise joined to the base directory
func (p *Paths) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.BaseDir, path)
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// ReportBaseName builds the file stem for a run's reports, e.g.
// "acme_sticket-export_20250115-093000".
func ReportBaseName(customer, exportKind string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s", slug(customer), slug(exportKind), at.Format("20060102-150405"))
}

func slug(s string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "unknown"
	}
	return out
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved layout for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("downloads", p.DownloadsDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		))
}
