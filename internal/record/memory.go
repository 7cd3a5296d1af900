package record

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]User
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]User)}
}

func (m *MemoryStore) Get(ctx context.Context, storageID string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.records[storageID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user.Clone(), nil
}

func (m *MemoryStore) Create(ctx context.Context, user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[user.StorageID]; exists {
		return ErrAlreadyExists
	}
	m.records[user.StorageID] = user.Clone()
	return nil
}

func (m *MemoryStore) Put(ctx context.Context, user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[user.StorageID]; !exists {
		return ErrNotFound
	}
	m.records[user.StorageID] = user.Clone()
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
