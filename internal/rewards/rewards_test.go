package rewards

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/steadyhq/steady/internal/events"
	"github.com/steadyhq/steady/internal/risk"
	"github.com/steadyhq/steady/internal/syncutil"
	"github.com/steadyhq/steady/internal/wallet"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeRisk struct {
	status risk.Status
}

func (f *fakeRisk) Status(ctx context.Context, userID string) (risk.Status, error) {
	return f.status, nil
}

type capturingAppender struct {
	created []events.CreateInput
}

func (c *capturingAppender) Create(ctx context.Context, userID string, in events.CreateInput) (*events.Event, error) {
	c.created = append(c.created, in)
	return &events.Event{ID: "evt_test", UserID: userID, EventType: in.EventType}, nil
}

func newTestService(t *testing.T) (*Service, *wallet.Service, *fakeRisk, *capturingAppender) {
	t.Helper()
	walletSvc := wallet.NewServiceWithLocks(wallet.NewMemoryStore(), syncutil.NewShardedMutex())
	riskReader := &fakeRisk{status: risk.StatusOK}
	appender := &capturingAppender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(NewMemoryStore(), walletSvc, riskReader, appender, logger)
	return svc, walletSvc, riskReader, appender
}

func seedReward(t *testing.T, svc *Service, cost int64) *Reward {
	t.Helper()
	r := &Reward{
		Type:         "gift_card",
		Title:        "Gift Card",
		CostPoints:   cost,
		ValueDisplay: "$5",
		ActiveFrom:   testNow.Add(-24 * time.Hour),
		ActiveTo:     testNow.Add(365 * 24 * time.Hour),
	}
	if err := svc.SeedCatalog(context.Background(), []*Reward{r}); err != nil {
		t.Fatalf("SeedCatalog failed: %v", err)
	}
	return r
}

func TestRedeem_Succeeds(t *testing.T) {
	svc, walletSvc, _, appender := newTestService(t)
	ctx := context.Background()
	r := seedReward(t, svc, 100)

	if _, err := walletSvc.Credit(ctx, "u1", 150, wallet.TypeEarn, "mission", ""); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	red, err := svc.Redeem(ctx, "u1", r.ID, testNow)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if red.PointsDeducted != 100 {
		t.Errorf("PointsDeducted = %d, want 100", red.PointsDeducted)
	}
	if !strings.HasPrefix(red.Voucher.Code, VoucherPrefix) {
		t.Errorf("voucher code %q missing prefix %q", red.Voucher.Code, VoucherPrefix)
	}
	if red.WalletTransactionID == "" {
		t.Error("redemption missing wallet transaction id")
	}

	balance, err := walletSvc.Balance(ctx, "u1")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 50 {
		t.Errorf("balance after redeem = %d, want 50", balance)
	}

	if len(appender.created) != 1 {
		t.Fatalf("appended %d events, want 1", len(appender.created))
	}
	if appender.created[0].EventType != events.TypeRewardRedeemed {
		t.Errorf("event type = %q, want %q", appender.created[0].EventType, events.TypeRewardRedeemed)
	}
}

func TestRedeem_ShadowBlockedRegardlessOfBalance(t *testing.T) {
	svc, walletSvc, riskReader, _ := newTestService(t)
	ctx := context.Background()
	r := seedReward(t, svc, 100)

	if _, err := walletSvc.Credit(ctx, "u1", 1000, wallet.TypeEarn, "mission", ""); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	riskReader.status = risk.StatusShadow

	if _, err := svc.Redeem(ctx, "u1", r.ID, testNow); !errors.Is(err, ErrRiskGated) {
		t.Fatalf("Redeem error = %v, want ErrRiskGated", err)
	}

	balance, _ := walletSvc.Balance(ctx, "u1")
	if balance != 1000 {
		t.Errorf("balance changed on blocked redemption: %d", balance)
	}
}

func TestRedeem_UnknownReward(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	if _, err := svc.Redeem(context.Background(), "u1", "rwd_missing", testNow); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Redeem error = %v, want ErrNotFound", err)
	}
}

func TestRedeem_OutsideActiveWindow(t *testing.T) {
	svc, walletSvc, _, _ := newTestService(t)
	ctx := context.Background()

	r := &Reward{
		Type:       "badge",
		Title:      "Expired Badge",
		CostPoints: 10,
		ActiveFrom: testNow.Add(-48 * time.Hour),
		ActiveTo:   testNow.Add(-24 * time.Hour),
	}
	if err := svc.SeedCatalog(ctx, []*Reward{r}); err != nil {
		t.Fatalf("SeedCatalog failed: %v", err)
	}
	if _, err := walletSvc.Credit(ctx, "u1", 100, wallet.TypeEarn, "mission", ""); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	if _, err := svc.Redeem(ctx, "u1", r.ID, testNow); !errors.Is(err, ErrNotActive) {
		t.Fatalf("Redeem error = %v, want ErrNotActive", err)
	}
}

func TestRedeem_InsufficientBalance(t *testing.T) {
	svc, walletSvc, _, appender := newTestService(t)
	ctx := context.Background()
	r := seedReward(t, svc, 100)

	if _, err := walletSvc.Credit(ctx, "u1", 99, wallet.TypeEarn, "mission", ""); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	if _, err := svc.Redeem(ctx, "u1", r.ID, testNow); !errors.Is(err, ErrNotEnoughPoint) {
		t.Fatalf("Redeem error = %v, want ErrNotEnoughPoint", err)
	}

	balance, _ := walletSvc.Balance(ctx, "u1")
	if balance != 99 {
		t.Errorf("balance changed on denied redemption: %d", balance)
	}
	if len(appender.created) != 0 {
		t.Errorf("appended %d events on denied redemption, want 0", len(appender.created))
	}
}

func TestRedeem_VoucherExpiryCappedByRewardWindow(t *testing.T) {
	svc, walletSvc, _, _ := newTestService(t)
	ctx := context.Background()

	// Window ends well inside the 30 day voucher validity.
	shortTo := testNow.Add(5 * 24 * time.Hour)
	r := &Reward{
		Type:       "badge",
		Title:      "Closing Soon",
		CostPoints: 10,
		ActiveFrom: testNow.Add(-time.Hour),
		ActiveTo:   shortTo,
	}
	if err := svc.SeedCatalog(ctx, []*Reward{r}); err != nil {
		t.Fatalf("SeedCatalog failed: %v", err)
	}
	if _, err := walletSvc.Credit(ctx, "u1", 100, wallet.TypeEarn, "mission", ""); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	red, err := svc.Redeem(ctx, "u1", r.ID, testNow)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if !red.Voucher.ExpiresAt.Equal(shortTo) {
		t.Errorf("voucher expiry = %v, want capped at %v", red.Voucher.ExpiresAt, shortTo)
	}
}

func TestRedeem_VoucherExpiryDefaultsToThirtyDays(t *testing.T) {
	svc, walletSvc, _, _ := newTestService(t)
	ctx := context.Background()
	r := seedReward(t, svc, 10)

	if _, err := walletSvc.Credit(ctx, "u1", 100, wallet.TypeEarn, "mission", ""); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	red, err := svc.Redeem(ctx, "u1", r.ID, testNow)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	want := testNow.Add(30 * 24 * time.Hour)
	if !red.Voucher.ExpiresAt.Equal(want) {
		t.Errorf("voucher expiry = %v, want %v", red.Voucher.ExpiresAt, want)
	}
}

func TestAvailable_AnnotatesEligibility(t *testing.T) {
	svc, walletSvc, _, _ := newTestService(t)
	ctx := context.Background()

	cheap := seedReward(t, svc, 50)
	pricey := seedReward(t, svc, 500)
	if _, err := walletSvc.Credit(ctx, "u1", 100, wallet.TypeEarn, "mission", ""); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	out, err := svc.Available(ctx, "u1", testNow)
	if err != nil {
		t.Fatalf("Available failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Available returned %d rewards, want 2", len(out))
	}
	byID := map[string]bool{}
	for _, ar := range out {
		byID[ar.ID] = ar.Eligible
	}
	if !byID[cheap.ID] {
		t.Error("affordable reward marked ineligible")
	}
	if byID[pricey.ID] {
		t.Error("unaffordable reward marked eligible")
	}
}

func TestAvailable_FiltersInactive(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	expired := &Reward{
		Type:       "badge",
		Title:      "Old",
		CostPoints: 10,
		ActiveFrom: testNow.Add(-48 * time.Hour),
		ActiveTo:   testNow.Add(-24 * time.Hour),
	}
	if err := svc.SeedCatalog(ctx, []*Reward{expired}); err != nil {
		t.Fatalf("SeedCatalog failed: %v", err)
	}
	active := seedReward(t, svc, 10)

	out, err := svc.Available(ctx, "u1", testNow)
	if err != nil {
		t.Fatalf("Available failed: %v", err)
	}
	if len(out) != 1 || out[0].ID != active.ID {
		t.Fatalf("Available returned %d rewards, want only the active one", len(out))
	}
}
