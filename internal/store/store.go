// Package store holds the engine's bounded, order-preserving incident
// collection. Order is cycle-arrival order (most recently touched first), and
// the retention cap evicts from the tail: the oldest-arrived incidents are
// dropped first once the cap is exceeded. Eviction is lossy and silent; an
// evicted incident that reappears upstream is treated as brand new.
package store

import (
	"sync"

	"github.com/dispatchmon/cad-engine/internal/domain"
)

// Bounded is a thread-safe incident store capped at a fixed number of
// entries. All reads return deep copies so no caller can observe or corrupt
// shared state.
type Bounded struct {
	mu    sync.RWMutex
	limit int
	list  []domain.Incident
	index map[string]int // id -> position in list
}

// New creates an empty store retaining at most limit incidents.
func New(limit int) *Bounded {
	return &Bounded{
		limit: limit,
		index: make(map[string]int),
	}
}

// Replace swaps in the next store state. The input is deduplicated by id
// (first occurrence wins) and truncated to the retention cap; entries beyond
// the cap are evicted.
func (s *Bounded) Replace(next []domain.Incident) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]domain.Incident, 0, min(len(next), s.limit))
	index := make(map[string]int, cap(list))
	for _, in := range next {
		if _, dup := index[in.ID]; dup {
			continue
		}
		if len(list) == s.limit {
			break
		}
		index[in.ID] = len(list)
		list = append(list, in)
	}
	s.list = list
	s.index = index
}

// Snapshot returns a deep copy of the stored incidents in retention order.
func (s *Bounded) Snapshot() []domain.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Incident, len(s.list))
	for i, in := range s.list {
		out[i] = in.Clone()
	}
	return out
}

// Get returns a deep copy of the incident with the given id.
func (s *Bounded) Get(id string) (domain.Incident, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return domain.Incident{}, false
	}
	return s.list[i].Clone(), true
}

// UpdateStatus overwrites an incident's status, bypassing reconciliation
// history. The stored value is replaced wholesale (copy-on-write) so
// concurrent snapshot readers never see a half-updated record. Returns false
// if the id is unknown.
func (s *Bounded) UpdateStatus(id string, status domain.Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return false
	}
	updated := s.list[i].Clone()
	updated.Status = status
	s.list[i] = updated
	return true
}

// Len reports the number of stored incidents.
func (s *Bounded) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.list)
}

// Limit reports the retention cap.
func (s *Bounded) Limit() int { return s.limit }
