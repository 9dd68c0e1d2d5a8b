package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"exportcheck/internal/config"
)

// DirectoryChecker verifies the directories a run depends on
type DirectoryChecker struct {
	logger *slog.Logger
}

// NewDirectoryChecker creates a checker
func NewDirectoryChecker(logger *slog.Logger) *DirectoryChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryChecker{logger: logger}
}

// Readable fails unless dir exists and is a directory
func (c *DirectoryChecker) Readable(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		c.logger.Warn("Directory does not exist", slog.String("directory", dir))
		return fmt.Errorf("directory %s does not exist", dir)
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// Writable creates dir if needed and proves a file can be written in it
func (c *DirectoryChecker) Writable(dir string) error {
	if err := os.MkdirAll(dir, config.DirMode); err != nil {
		c.logger.Error("Failed to create directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		c.logger.Error("Directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	name := tmp.Name()
	tmp.Close()
	os.Remove(name)
	return nil
}

// CountCSV counts the .csv files directly inside dir
func (c *DirectoryChecker) CountCSV(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	count := 0
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			count++
		}
	}
	return count, nil
}
