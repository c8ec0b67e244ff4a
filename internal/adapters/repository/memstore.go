package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/okian/rollcall/internal/domain/model"
)

// MemoryStore keeps records in memory. Used for dry runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records []model.Record
	closed  bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, r model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.records = append(s.records, r)
	return nil
}

func (s *MemoryStore) Records(_ context.Context) ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
