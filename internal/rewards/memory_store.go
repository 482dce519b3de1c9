package rewards

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory reward catalog for demo/development mode.
type MemoryStore struct {
	rewards map[string]*Reward
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory reward store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rewards: make(map[string]*Reward)}
}

func (m *MemoryStore) Insert(ctx context.Context, r *Reward) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *r
	m.rewards[r.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Reward, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rewards[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) ListActive(ctx context.Context, now time.Time) ([]*Reward, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Reward
	for _, r := range m.rewards {
		if r.WindowCovers(now) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CostPoints != out[j].CostPoints {
			return out[i].CostPoints < out[j].CostPoints
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
