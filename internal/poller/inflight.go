package poller

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// InflightSet is the set of documents this client is waiting on. It is safe
// for concurrent use.
type InflightSet struct {
	mu  sync.Mutex
	ids map[uuid.UUID]struct{}
}

func NewInflightSet() *InflightSet {
	return &InflightSet{ids: make(map[uuid.UUID]struct{})}
}

// Add inserts id and reports whether it was absent.
func (s *InflightSet) Add(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Remove deletes id and returns the remaining size.
func (s *InflightSet) Remove(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
	return len(s.ids)
}

func (s *InflightSet) Contains(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

func (s *InflightSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns a sorted snapshot of the set.
func (s *InflightSet) IDs() []uuid.UUID {
	s.mu.Lock()
	out := make([]uuid.UUID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	s.mu.Unlock()
	slices.SortFunc(out, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	return out
}
