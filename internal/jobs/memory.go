package jobs

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryStore keeps records in process memory. It is used by tests and by
// offline replays.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[Key]Record
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Key]Record)}
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Key()] = clone(rec)
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key Key) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(rec)
	return &out, nil
}

// ListByExecution implements Store. Records come back ordered by stage key,
// the way a sorted range query would return them.
func (s *MemoryStore) ListByExecution(_ context.Context, execID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for key, rec := range s.records {
		if key.ExecID == execID {
			out = append(out, clone(rec))
		}
	}
	slices.SortFunc(out, func(a, b Record) int { return strings.Compare(a.Stage, b.Stage) })
	return out, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func clone(rec Record) Record {
	if rec.Ended != nil {
		ended := *rec.Ended
		rec.Ended = &ended
	}
	return rec
}

var _ Store = (*MemoryStore)(nil)
