package kvstore

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store. Used by tests and by throwaway runs
// that don't want a file on disk. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string

	// FailWrites simulates an unusable substrate; when set, Set and Remove
	// return the given error. Tests use this to exercise storage-failure
	// paths that are hard to trigger with a real database.
	FailWrites error
}

var _ Store = (*MemoryStore)(nil)

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	return value, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
