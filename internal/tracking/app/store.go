package app

import (
	"fmt"
	"sync"

	"vendor-tracking/internal/tracking/domain"
)

// entry owns the mutable state of one assignment. All reads and writes of
// its fields happen under mu.
type entry struct {
	// immutable, readable without mu
	id        string
	bookingID string

	mu         sync.Mutex
	assignment domain.Assignment
	last       *domain.LocationSample
	window     []domain.LocationSample
	eta        *float64
}

func (e *entry) push(s domain.LocationSample, limit int) {
	e.window = append(e.window, s)
	if len(e.window) > limit {
		// copy so the backing array does not grow without bound
		trimmed := make([]domain.LocationSample, limit)
		copy(trimmed, e.window[len(e.window)-limit:])
		e.window = trimmed
	}
	last := s
	e.last = &last
}

func (e *entry) snapshot() domain.Snapshot {
	snap := domain.Snapshot{Assignment: e.assignment}
	if e.last != nil {
		last := *e.last
		snap.LastLocation = &last
	}
	if e.eta != nil {
		eta := *e.eta
		snap.ETASeconds = &eta
	}
	return snap
}

// store indexes entries by assignment id. Its lock only guards the index;
// per-assignment work locks the entry.
type store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func newStore() *store {
	return &store{entries: make(map[string]*entry)}
}

func (s *store) get(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("assignment %s: %w", id, domain.ErrAssignmentNotFound)
	}
	return e, nil
}

// add inserts a new entry, locked, so the caller can emit before anyone else sees it.
func (s *store) add(e *entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.assignment.ID]; ok {
		return fmt.Errorf("assignment %s: %w", e.assignment.ID, domain.ErrAssignmentExists)
	}
	e.mu.Lock()
	s.entries[e.assignment.ID] = e
	return nil
}

func (s *store) byBooking(bookingID string) []*entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entry
	for _, e := range s.entries {
		if e.bookingID == bookingID {
			out = append(out, e)
		}
	}
	return out
}

func (s *store) all() []*entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}
