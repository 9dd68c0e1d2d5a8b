package files

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"exportcheck/internal/config"
	apperrors "exportcheck/internal/errors"
)

// ArtifactStore watches the browser download directory for export files.
// One store serves one run at a time; the newest complete CSV is taken to
// be the run's artifact.
type ArtifactStore struct {
	dir       string
	discovery *Discovery
	timeout   time.Duration
	interval  time.Duration
	since     time.Time
	logger    *slog.Logger
}

// NewArtifactStore creates a store over dir using the download timeout and
// scan interval of cfg
func NewArtifactStore(dir string, cfg config.ArtifactConfig, logger *slog.Logger) *ArtifactStore {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 60 * time.Second
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = time.Second
	}
	return &ArtifactStore{
		dir:       dir,
		discovery: NewDiscovery(""),
		timeout:   cfg.DownloadTimeout,
		interval:  cfg.ScanInterval,
		logger:    logger.With(slog.String("component", "artifact_store")),
	}
}

// Dir returns the watched directory
func (s *ArtifactStore) Dir() string {
	return s.dir
}

// Since ignores files modified before t
func (s *ArtifactStore) Since(t time.Time) *ArtifactStore {
	s.since = t
	return s
}

// EnsureDirectory creates the download directory if it doesn't exist
func (s *ArtifactStore) EnsureDirectory() error {
	if err := os.MkdirAll(s.dir, config.DirMode); err != nil {
		return apperrors.NewStorageError("failed to create download directory", err).WithContext("dir", s.dir)
	}
	return nil
}

// Latest returns the newest CSV once it is complete. While the newest CSV
// is still being written nothing is returned, never an older file.
func (s *ArtifactStore) Latest() (FileInfo, bool, error) {
	found, err := s.discovery.FindCSVFiles(s.dir)
	if err != nil {
		return FileInfo{}, false, err
	}
	found = FilterModifiedSince(found, s.since)
	if len(found) == 0 {
		return FileInfo{}, false, nil
	}
	newest := found[0]
	if IsPartial(newest.Path) {
		s.logger.Debug("newest download still in progress", slog.String("file", newest.Name))
		return FileInfo{}, false, nil
	}
	return newest, true, nil
}

// WaitLatest polls the directory until a complete CSV appears or the
// download timeout elapses
func (s *ArtifactStore) WaitLatest(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		f, ok, err := s.Latest()
		if err != nil {
			return "", err
		}
		if ok {
			s.logger.Info("export artifact found",
				slog.String("file", f.Name),
				slog.Int64("size_bytes", f.Size))
			return f.Path, nil
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("no complete CSV in %s after %s: %w", s.dir, s.timeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Remove deletes an artifact. Only files inside the watched directory
// can be removed.
func (s *ArtifactStore) Remove(path string) error {
	if !s.contains(path) {
		return apperrors.NewStorageError("refusing to delete a file outside the download directory", nil).
			WithContext("path", path)
	}
	s.logger.Info("Deleting file", slog.String("path", path))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return apperrors.NewStorageError("failed to delete artifact", err).WithContext("path", path)
	}
	return nil
}

// Purge deletes every CSV and partial download left in the directory
func (s *ArtifactStore) Purge() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, apperrors.NewStorageError("failed to read download directory", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if !strings.HasSuffix(name, ".csv") && !hasPartialSuffix(name) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return removed, apperrors.NewStorageError("failed to purge download directory", err)
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("purged download directory", slog.Int("files", removed))
	}
	return removed, nil
}

func (s *ArtifactStore) contains(path string) bool {
	dir, err := filepath.Abs(s.dir)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(dir, abs)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}
