package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// FakeSleeper records requested waits and returns immediately. It honours
// context cancellation so callers see the same error a real sleep would give.
type FakeSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

// Sleep records d
func (s *FakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return nil
}

// Waits returns every recorded wait in order
func (s *FakeSleeper) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.waits))
	copy(out, s.waits)
	return out
}

// Total returns the sum of all recorded waits
func (s *FakeSleeper) Total() time.Duration {
	var total time.Duration
	for _, d := range s.Waits() {
		total += d
	}
	return total
}

// FixedClock returns a clock function that advances by step on every call
func FixedClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := current
		current = current.Add(step)
		return now
	}
}

// WriteFile writes content under dir and returns the full path. The
// modification time is set to modTime when non-zero.
func WriteFile(t *testing.T, dir, name, content string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if !modTime.IsZero() {
		if err := os.Chtimes(path, modTime, modTime); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}
	return path
}
