package validation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// LogCollector accumulates the transcript of a single run. Every entry is
// also written to the application logger at debug level.
type LogCollector struct {
	mu      sync.Mutex
	entries []LogEntry
	logger  *slog.Logger
	now     func() time.Time
}

// NewLogCollector creates an empty collector. A nil logger discards the mirror.
func NewLogCollector(logger *slog.Logger) *LogCollector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogCollector{
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the timestamp source
func (c *LogCollector) WithClock(now func() time.Time) *LogCollector {
	c.now = now
	return c
}

func (c *LogCollector) add(level Level, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	c.mu.Lock()
	c.entries = append(c.entries, LogEntry{Time: c.now(), Level: level, Message: msg})
	c.mu.Unlock()

	c.logger.LogAttrs(context.Background(), slog.LevelDebug, msg,
		slog.String("transcript_level", string(level)))
}

// Info records a progress entry
func (c *LogCollector) Info(format string, args ...any) { c.add(LevelInfo, format, args...) }

// Success records a passed check
func (c *LogCollector) Success(format string, args ...any) { c.add(LevelSuccess, format, args...) }

// Failure records a failed check. Failures are indexed in the report.
func (c *LogCollector) Failure(format string, args ...any) { c.add(LevelFailure, format, args...) }

// Notice records a soft problem that does not stop the run
func (c *LogCollector) Notice(format string, args ...any) { c.add(LevelNotice, format, args...) }

// Entries returns a copy of the transcript
func (c *LogCollector) Entries() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Failures returns the failure entries with their transcript positions
func (c *LogCollector) Failures() []FailedCase {
	var out []FailedCase
	for i, e := range c.Entries() {
		if e.Level == LevelFailure {
			out = append(out, FailedCase{Index: i, Entry: e})
		}
	}
	return out
}

// Len returns the number of entries
func (c *LogCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
