// Package seen tracks which source message ids the monitor has already
// processed.
package seen

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Backing persists processed ids across restarts.
type Backing interface {
	LoadSeen(ctx context.Context) ([]string, error)
	MarkSeen(ctx context.Context, sourceID string) error
}

// Set is an add-only set of source message ids. Ids are never evicted.
type Set struct {
	mu      sync.RWMutex
	ids     map[string]struct{}
	backing Backing
	logger  *slog.Logger
}

// NewMemory returns an empty set scoped to the running process.
func NewMemory() *Set {
	return &Set{ids: make(map[string]struct{})}
}

// NewPersistent returns a set preloaded from backing that also writes
// every added id through to it.
func NewPersistent(ctx context.Context, backing Backing, logger *slog.Logger) (*Set, error) {
	ids, err := backing.LoadSeen(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading processed ids: %w", err)
	}

	s := &Set{
		ids:     make(map[string]struct{}, len(ids)),
		backing: backing,
		logger:  logger,
	}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s, nil
}

// Has reports whether id was already processed.
func (s *Set) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Add marks id as processed. A backing failure is logged; the id is
// still remembered for the rest of the process lifetime.
func (s *Set) Add(ctx context.Context, id string) {
	s.mu.Lock()
	_, existed := s.ids[id]
	s.ids[id] = struct{}{}
	s.mu.Unlock()

	if existed || s.backing == nil {
		return
	}
	if err := s.backing.MarkSeen(ctx, id); err != nil && s.logger != nil {
		s.logger.Warn("Failed to persist processed message id", "source_id", id, "error", err)
	}
}

// Len returns the number of ids in the set.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
