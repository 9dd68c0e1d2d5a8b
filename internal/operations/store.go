package operations

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "exportcheck/internal/errors"
)

// MemoryRunStore is an in-memory implementation of RunStore
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]*RunState
}

// NewMemoryRunStore creates a new in-memory run store
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{
		runs: make(map[string]*RunState),
	}
}

// Create stores a new run
func (s *MemoryRunStore) Create(run *RunState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("run %s already exists", run.ID))
	}
	s.runs[run.ID] = run
	return nil
}

// Get returns a copy of the run with the given id
func (s *MemoryRunStore) Get(id string) (*RunState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[id]
	if !exists {
		return nil, apperrors.NewNotFoundError("run " + id)
	}
	return run.Clone(), nil
}

// Update replaces an existing run
func (s *MemoryRunStore) Update(run *RunState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; !exists {
		return apperrors.NewNotFoundError("run " + run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

// List returns copies of the runs matching filter, newest first
func (s *MemoryRunStore) List(filter RunFilter) ([]*RunState, error) {
	s.mu.RLock()
	var result []*RunState
	for _, run := range s.runs {
		c := run.Clone()
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.Customer != "" && !strings.EqualFold(c.Request.Customer, filter.Customer) {
			continue
		}
		if !filter.Since.IsZero() && c.CreatedAt.Before(filter.Since) {
			continue
		}
		result = append(result, c)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// CleanupOld removes finished runs created before now minus olderThan
func (s *MemoryRunStore) CleanupOld(olderThan time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	deleted := 0
	for id, run := range s.runs {
		if run.GetStatus().Terminal() && run.CreatedAt.Before(cutoff) {
			delete(s.runs, id)
			deleted++
		}
	}
	return deleted
}

// Stats returns the number of runs per status
func (s *MemoryRunStore) Stats() map[RunStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[RunStatus]int)
	for _, run := range s.runs {
		stats[run.GetStatus()]++
	}
	return stats
}
