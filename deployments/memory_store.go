package deployments

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
)

var _ Store = &MemoryStore{}

// MemoryStore keeps records in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return Record{}, notFound(id)
	}

	return r, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[r.ID]; ok {
		return exists(r.ID)
	}
	s.records[r.ID] = r

	return nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := slices.Collect(maps.Values(s.records))
	slices.SortFunc(records, func(a, b Record) int { return strings.Compare(a.ID, b.ID) })

	return records, nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)

	return nil
}
