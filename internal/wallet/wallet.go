// Package wallet is the append-only points ledger.
//
// A user's balance is never stored; it is always the sum of their
// transaction amounts. That is the load-bearing invariant preventing
// drift between a cached balance and the log.
package wallet

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Currency is the closed-loop points currency.
const Currency = "points"

// Type classifies a transaction.
type Type string

const (
	TypeEarn       Type = "earn"
	TypeRedeem     Type = "redeem"
	TypeAdjustment Type = "adjustment"
)

// Transaction is one signed ledger entry.
type Transaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Amount    int64     `json:"amount"` // signed: +earn, -redeem
	Currency  string    `json:"currency"`
	Type      Type      `json:"type"`
	Source    string    `json:"source"`
	RelatedID string    `json:"relatedId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists wallet transactions
type Store interface {
	Append(ctx context.Context, tx *Transaction) error
	// Sum returns the signed amount total for a user.
	Sum(ctx context.Context, userID string) (int64, error)
	// List returns up to limit transactions, newest first.
	List(ctx context.Context, userID string, limit int) ([]*Transaction, error)
}
