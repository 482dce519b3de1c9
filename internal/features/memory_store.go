package features

import (
	"context"
	"errors"
	"sync"
)

// ErrSnapshotNotFound is returned when a user has no computed snapshot yet.
var ErrSnapshotNotFound = errors.New("feature snapshot not found")

// MemoryStore is an in-memory snapshot store for demo/development mode.
type MemoryStore struct {
	snapshots map[string]*Snapshot
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]*Snapshot)}
}

func (m *MemoryStore) Upsert(ctx context.Context, s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	m.snapshots[s.UserID] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, userID string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.snapshots[userID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	cp := *s
	return &cp, nil
}
