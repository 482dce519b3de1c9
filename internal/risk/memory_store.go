package risk

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory risk store for demo/development mode.
type MemoryStore struct {
	profiles map[string]*Profile
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory risk store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*Profile)}
}

func (m *MemoryStore) Get(ctx context.Context, userID string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	cp.Flags = append([]Flag(nil), p.Flags...)
	return &cp, nil
}

func (m *MemoryStore) Upsert(ctx context.Context, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	cp.Flags = append([]Flag(nil), p.Flags...)
	m.profiles[p.UserID] = &cp
	return nil
}
