package wallet

import (
	"context"
	"time"

	"github.com/steadyhq/steady/internal/idgen"
	"github.com/steadyhq/steady/internal/metrics"
	"github.com/steadyhq/steady/internal/syncutil"
)

// Service manages the points ledger.
type Service struct {
	store Store
	locks *syncutil.ShardedMutex
}

// NewService creates a wallet service
func NewService(store Store) *Service {
	return &Service{store: store, locks: syncutil.NewShardedMutex()}
}

// NewServiceWithLocks creates a wallet service sharing a lock pool with
// other per-user serialized paths.
func NewServiceWithLocks(store Store, locks *syncutil.ShardedMutex) *Service {
	return &Service{store: store, locks: locks}
}

// Balance returns the derived balance: the sum over the log, computed
// fresh on every call.
func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	return s.store.Sum(ctx, userID)
}

// Transactions returns up to limit entries, newest first.
func (s *Service) Transactions(ctx context.Context, userID string, limit int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.List(ctx, userID, limit)
}

// Credit appends one positive entry.
func (s *Service) Credit(ctx context.Context, userID string, amount int64, typ Type, source, relatedID string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	tx := &Transaction{
		ID:        idgen.WithPrefix("wtx"),
		UserID:    userID,
		Amount:    amount,
		Currency:  Currency,
		Type:      typ,
		Source:    source,
		RelatedID: relatedID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Append(ctx, tx); err != nil {
		return nil, err
	}
	metrics.WalletTransactionsTotal.WithLabelValues(string(typ)).Inc()
	return tx, nil
}

// Debit appends one negative entry after checking the balance. The check
// and the append are serialized per user so concurrent debits can never
// jointly overdraw the log.
func (s *Service) Debit(ctx context.Context, userID string, amount int64, typ Type, source, relatedID string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	balance, err := s.store.Sum(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < amount {
		return nil, ErrInsufficientBalance
	}

	tx := &Transaction{
		ID:        idgen.WithPrefix("wtx"),
		UserID:    userID,
		Amount:    -amount,
		Currency:  Currency,
		Type:      typ,
		Source:    source,
		RelatedID: relatedID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Append(ctx, tx); err != nil {
		return nil, err
	}
	metrics.WalletTransactionsTotal.WithLabelValues(string(typ)).Inc()
	return tx, nil
}
