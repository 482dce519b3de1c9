// Package rewards runs the catalog and the risk-gated redemption
// transaction: risk check, active window check, balance check, debit,
// voucher issuance, audit event. Ordered, and evaluated against a single
// consistent balance read.
package rewards

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("reward not found")
	ErrNotActive      = errors.New("reward is not currently active")
	ErrRiskGated      = errors.New("redemption blocked by risk status")
	ErrNotEnoughPoint = errors.New("insufficient points for reward")
)

// VoucherPrefix is the fixed prefix on issued voucher codes.
const VoucherPrefix = "STDY-"

// voucherValidity caps how long a voucher lives past issuance.
const voucherValidity = 30 * 24 * time.Hour

// Reward is a catalog entry.
type Reward struct {
	ID           string    `json:"id"`
	PartnerID    string    `json:"partnerId,omitempty"`
	Type         string    `json:"type"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	CostPoints   int64     `json:"costPoints"`
	ValueDisplay string    `json:"valueDisplay"`
	TermsURL     string    `json:"termsUrl,omitempty"`
	ActiveFrom   time.Time `json:"activeFrom"`
	ActiveTo     time.Time `json:"activeTo"`
}

// WindowCovers reports whether the reward is redeemable at t.
func (r *Reward) WindowCovers(t time.Time) bool {
	return !t.Before(r.ActiveFrom) && !t.After(r.ActiveTo)
}

// Voucher is the redeemable code issued on redemption.
type Voucher struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Redemption is the result of a successful redeemReward.
type Redemption struct {
	ID                  string   `json:"redemption_id"`
	Reward              *Reward  `json:"-"`
	Voucher             Voucher  `json:"voucher"`
	WalletTransactionID string   `json:"wallet_transaction_id"`
	PointsDeducted      int64    `json:"points_deducted"`
}

// Store persists the reward catalog
type Store interface {
	Insert(ctx context.Context, r *Reward) error
	Get(ctx context.Context, id string) (*Reward, error)
	// ListActive returns rewards whose window covers now, cheapest first.
	ListActive(ctx context.Context, now time.Time) ([]*Reward, error)
}
