package analysis

import (
	"context"
	"sync"
)

// StateStore is the guardrail gate's persistence capability: a plain
// key/value store of opaque bytes. The in-memory implementation is the
// single-process default; RedisStore promotes the state to a shared backend
// for multi-instance deployments.
type StateStore interface {
	// Get returns (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore is a process-local StateStore.
type MemoryStore struct {
	m sync.Map // key → []byte
}

// NewMemoryStore returns an empty in-memory state store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	val, ok := s.m.Load(key)
	if !ok {
		return nil, nil
	}
	stored := val.([]byte)
	out := make([]byte, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	s.m.Store(key, stored)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.m.Delete(key)
	return nil
}
