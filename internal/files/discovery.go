package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// partialSuffixes mark downloads still being written by the browser
var partialSuffixes = []string{".crdownload", ".part", ".download", ".tmp"}

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

// FindCSVFiles lists the CSV files in dir, newest first
func (d *Discovery) FindCSVFiles(dir string) ([]FileInfo, error) {
	return d.FindFilesByPattern(dir, "*.csv")
}

// FindFilesByPattern lists the regular files in dir matching a glob
// pattern, newest first. Matching is case-insensitive on the extension.
func (d *Discovery) FindFilesByPattern(dir, pattern string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ok, err := filepath.Match(strings.ToLower(pattern), strings.ToLower(name))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// IsPartial reports whether path is an in-progress download or has an
// in-progress sibling such as report.csv.crdownload.
func IsPartial(path string) bool {
	if hasPartialSuffix(path) {
		return true
	}
	for _, suffix := range partialSuffixes {
		if _, err := os.Stat(path + suffix); err == nil {
			return true
		}
	}
	return false
}

func hasPartialSuffix(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// FilterModifiedSince keeps files modified at or after since
func FilterModifiedSince(files []FileInfo, since time.Time) []FileInfo {
	if since.IsZero() {
		return files
	}
	var filtered []FileInfo
	for _, file := range files {
		if !file.ModTime.Before(since) {
			filtered = append(filtered, file)
		}
	}
	return filtered
}
