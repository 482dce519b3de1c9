package wallet

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory wallet store for demo/development mode.
type MemoryStore struct {
	transactions map[string][]*Transaction // userID -> oldest first
	mu           sync.RWMutex
}

// NewMemoryStore creates a new in-memory wallet store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{transactions: make(map[string][]*Transaction)}
}

func (m *MemoryStore) Append(ctx context.Context, tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *tx
	m.transactions[tx.UserID] = append(m.transactions[tx.UserID], &cp)
	return nil
}

func (m *MemoryStore) Sum(ctx context.Context, userID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sum int64
	for _, tx := range m.transactions[userID] {
		sum += tx.Amount
	}
	return sum, nil
}

func (m *MemoryStore) List(ctx context.Context, userID string, limit int) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txs := m.transactions[userID]
	out := make([]*Transaction, 0, min(limit, len(txs)))
	for i := len(txs) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *txs[i]
		out = append(out, &cp)
	}
	return out, nil
}
