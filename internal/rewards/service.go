package rewards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/steadyhq/steady/internal/events"
	"github.com/steadyhq/steady/internal/idgen"
	"github.com/steadyhq/steady/internal/metrics"
	"github.com/steadyhq/steady/internal/risk"
	"github.com/steadyhq/steady/internal/traces"
	"github.com/steadyhq/steady/internal/wallet"
)

// WalletLedger is the slice of the wallet the redemption transaction uses.
// Debit serializes its balance check and append per user, which is what
// makes the redemption's ordered checks safe under concurrency.
type WalletLedger interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Debit(ctx context.Context, userID string, amount int64, typ wallet.Type, source, relatedID string) (*wallet.Transaction, error)
}

// RiskReader resolves a user's derived risk status.
type RiskReader interface {
	Status(ctx context.Context, userID string) (risk.Status, error)
}

// EventAppender appends the redemption audit event.
type EventAppender interface {
	Create(ctx context.Context, userID string, in events.CreateInput) (*events.Event, error)
}

// Broadcaster pushes redemptions to connected realtime clients.
type Broadcaster interface {
	BroadcastRewardRedeemed(userID, rewardID string, points int64)
}

// Service runs the catalog and the redemption transaction.
type Service struct {
	store     Store
	ledger    WalletLedger
	risk      RiskReader
	appender  EventAppender
	broadcast Broadcaster // nil disables realtime notifications
	logger    *slog.Logger
}

// NewService creates a rewards service
func NewService(store Store, ledger WalletLedger, riskReader RiskReader, appender EventAppender, logger *slog.Logger) *Service {
	return &Service{store: store, ledger: ledger, risk: riskReader, appender: appender, logger: logger}
}

// WithBroadcaster attaches a realtime broadcaster.
func (s *Service) WithBroadcaster(b Broadcaster) *Service {
	s.broadcast = b
	return s
}

// AvailableReward is a catalog entry annotated with affordability.
type AvailableReward struct {
	*Reward
	Eligible bool `json:"eligible"`
}

// Available lists active rewards annotated with whether the user's
// current balance covers each cost.
func (s *Service) Available(ctx context.Context, userID string, now time.Time) ([]*AvailableReward, error) {
	rewards, err := s.store.ListActive(ctx, now)
	if err != nil {
		return nil, err
	}
	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]*AvailableReward, 0, len(rewards))
	for _, r := range rewards {
		out = append(out, &AvailableReward{Reward: r, Eligible: balance >= r.CostPoints})
	}
	return out, nil
}

// Redeem runs the ordered redemption checks and, on success, debits the
// wallet, issues a voucher and appends the audit event.
//
// Check order is fixed: risk status first (shadow blocks regardless of
// balance), then catalog existence and active window, then balance. The
// balance check lives inside the wallet debit so it is evaluated against
// the same read the debit commits under.
func (s *Service) Redeem(ctx context.Context, userID, rewardID string, now time.Time) (*Redemption, error) {
	ctx, span := traces.StartSpan(ctx, "rewards.Redeem",
		traces.UserID(userID), traces.RewardID(rewardID))
	defer span.End()

	status, err := s.risk.Status(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve risk status: %w", err)
	}
	if status == risk.StatusShadow {
		metrics.RedemptionsTotal.WithLabelValues("risk_blocked").Inc()
		return nil, ErrRiskGated
	}

	reward, err := s.store.Get(ctx, rewardID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.RedemptionsTotal.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}
	if !reward.WindowCovers(now) {
		metrics.RedemptionsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrNotActive
	}

	tx, err := s.ledger.Debit(ctx, userID, reward.CostPoints, wallet.TypeRedeem, "reward_redemption", reward.ID)
	if err != nil {
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			metrics.RedemptionsTotal.WithLabelValues("rejected").Inc()
			return nil, ErrNotEnoughPoint
		}
		return nil, fmt.Errorf("debit wallet: %w", err)
	}

	expiresAt := now.Add(voucherValidity)
	if reward.ActiveTo.Before(expiresAt) {
		expiresAt = reward.ActiveTo
	}

	redemption := &Redemption{
		ID:     idgen.WithPrefix("rdm"),
		Reward: reward,
		Voucher: Voucher{
			Code:      VoucherPrefix + idgen.Code(6),
			ExpiresAt: expiresAt.UTC(),
		},
		WalletTransactionID: tx.ID,
		PointsDeducted:      reward.CostPoints,
	}

	if _, err := s.appender.Create(ctx, userID, events.CreateInput{
		EventType: events.TypeRewardRedeemed,
		Category:  events.CategoryEngagement,
		Timestamp: now,
		Properties: map[string]any{
			"rewardId":   reward.ID,
			"costPoints": reward.CostPoints,
			"voucher":    redemption.Voucher.Code,
		},
	}); err != nil {
		s.logger.Warn("failed to append redemption event",
			"user_id", userID, "reward_id", reward.ID, "error", err)
	}

	metrics.RedemptionsTotal.WithLabelValues("ok").Inc()
	span.SetAttributes(traces.Points(reward.CostPoints))
	s.logger.Info("reward redeemed",
		"user_id", userID,
		"reward_id", reward.ID,
		"points", reward.CostPoints,
	)

	if s.broadcast != nil {
		s.broadcast.BroadcastRewardRedeemed(userID, reward.ID, reward.CostPoints)
	}

	return redemption, nil
}

// SeedCatalog inserts catalog entries, skipping ids already present.
func (s *Service) SeedCatalog(ctx context.Context, entries []*Reward) error {
	for _, r := range entries {
		if r.ID == "" {
			r.ID = idgen.WithPrefix("rwd")
		}
		if err := s.store.Insert(ctx, r); err != nil {
			return fmt.Errorf("seed reward %s: %w", r.Title, err)
		}
	}
	return nil
}
