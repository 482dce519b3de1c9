package score

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory score store for demo/development mode.
type MemoryStore struct {
	scores  map[string]*Score
	history map[string][]*HistoryPoint
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory score store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scores:  make(map[string]*Score),
		history: make(map[string][]*HistoryPoint),
	}
}

// Save upserts the score and appends the history point under one lock
// section, matching the single-transaction Postgres behavior.
func (m *MemoryStore) Save(ctx context.Context, s *Score, h *HistoryPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sc := *s
	m.scores[s.UserID] = &sc
	hc := *h
	m.history[h.UserID] = append(m.history[h.UserID], &hc)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, userID string) (*Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.scores[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) History(ctx context.Context, userID string, limit int) ([]*HistoryPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	points := m.history[userID]
	out := make([]*HistoryPoint, 0, len(points))
	// Stored oldest first; return newest first.
	for i := len(points) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *points[i]
		out = append(out, &cp)
	}
	return out, nil
}
