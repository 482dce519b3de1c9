package features

import (
	"context"
	"testing"
	"time"

	"github.com/steadyhq/steady/internal/events"
	"github.com/steadyhq/steady/internal/users"
)

// fakeEvents serves a fixed event slice regardless of cutoff.
type fakeEvents struct {
	evs []*events.Event
}

func (f *fakeEvents) ListSince(ctx context.Context, userID string, since time.Time) ([]*events.Event, error) {
	var out []*events.Event
	for _, e := range f.evs {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeUsers struct {
	user *users.User
}

func (f *fakeUsers) Get(ctx context.Context, id string) (*users.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, users.ErrNotFound
	}
	return f.user, nil
}

func ev(ts time.Time, typ string, cat events.Category) *events.Event {
	return &events.Event{ID: "evt_" + ts.Format("20060102150405"), UserID: "u1", EventType: typ, Category: cat, Timestamp: ts}
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestStreakDays_Consecutive(t *testing.T) {
	evs := []*events.Event{
		ev(testNow, "APP.LOGIN", events.CategoryBehavior),
		ev(testNow.AddDate(0, 0, -1), "APP.LOGIN", events.CategoryBehavior),
		ev(testNow.AddDate(0, 0, -2), "APP.LOGIN", events.CategoryBehavior),
	}
	if got := streakDays(evs, testNow); got != 3 {
		t.Errorf("streakDays = %d, want 3", got)
	}
}

func TestStreakDays_GapYesterday(t *testing.T) {
	// Events on D and D-2 but not D-1: the streak is just today.
	evs := []*events.Event{
		ev(testNow, "APP.LOGIN", events.CategoryBehavior),
		ev(testNow.AddDate(0, 0, -2), "APP.LOGIN", events.CategoryBehavior),
	}
	if got := streakDays(evs, testNow); got != 1 {
		t.Errorf("streakDays = %d, want 1", got)
	}
}

func TestStreakDays_TodayMissing(t *testing.T) {
	// No event today yet: the streak starts from yesterday instead of
	// resetting to zero mid-day.
	evs := []*events.Event{
		ev(testNow.AddDate(0, 0, -1), "APP.LOGIN", events.CategoryBehavior),
		ev(testNow.AddDate(0, 0, -2), "APP.LOGIN", events.CategoryBehavior),
	}
	if got := streakDays(evs, testNow); got != 2 {
		t.Errorf("streakDays = %d, want 2", got)
	}
}

func TestStreakDays_Empty(t *testing.T) {
	if got := streakDays(nil, testNow); got != 0 {
		t.Errorf("streakDays = %d, want 0", got)
	}
}

func TestInactivityWeeks(t *testing.T) {
	tests := []struct {
		name    string
		lastAgo time.Duration
		want    int
	}{
		{"active today", 0, 0},
		{"7 days ago", 7 * 24 * time.Hour, 0},
		{"8 days ago", 8 * 24 * time.Hour, 1},
		{"14 days ago", 14 * 24 * time.Hour, 1},
		{"15 days ago", 15 * 24 * time.Hour, 2},
		{"30 days ago", 30 * 24 * time.Hour, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evs := []*events.Event{ev(testNow.Add(-tt.lastAgo), "APP.LOGIN", events.CategoryBehavior)}
			if got := inactivityWeeks(evs, testNow); got != tt.want {
				t.Errorf("inactivityWeeks = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInactivityWeeks_NoEvents(t *testing.T) {
	// No events in the whole lookback window maps to the fixed maximum.
	if got := inactivityWeeks(nil, testNow); got != 12 {
		t.Errorf("inactivityWeeks = %d, want 12", got)
	}
}

func TestCompletionRate(t *testing.T) {
	// No mission events: neutral default.
	if got := completionRate(nil); got != 0.5 {
		t.Errorf("completionRate = %v, want 0.5", got)
	}

	evs := []*events.Event{
		ev(testNow, "ENG.MISSION_COMPLETED", events.CategoryEngagement),
		ev(testNow.Add(-time.Hour), "ENG.MISSION_COMPLETED", events.CategoryEngagement),
		ev(testNow.Add(-2*time.Hour), "ENG.MISSION_ASSIGNED", events.CategoryEngagement),
		ev(testNow.Add(-3*time.Hour), "ENG.MISSION_ASSIGNED", events.CategoryEngagement),
	}
	if got := completionRate(evs); got != 0.5 {
		t.Errorf("completionRate = %v, want 0.5", got)
	}

	all := []*events.Event{
		ev(testNow, "ENG.MISSION_COMPLETED", events.CategoryEngagement),
	}
	if got := completionRate(all); got != 1.0 {
		t.Errorf("completionRate = %v, want 1.0", got)
	}
}

func TestCountMeaningful(t *testing.T) {
	evs := []*events.Event{
		ev(testNow, "APP.LOGIN", events.CategoryBehavior),
		ev(testNow, "TXN.PAYMENT", events.CategoryTransaction),
		ev(testNow, "SYS.SCORE_COMPUTED", events.CategorySystem),
		ev(testNow, "RISK.FLAG_RAISED", events.CategoryRisk),
	}
	if got := countMeaningful(evs); got != 2 {
		t.Errorf("countMeaningful = %d, want 2", got)
	}
}

func TestDiversityIndex_ExcludesSystem(t *testing.T) {
	evs := []*events.Event{
		ev(testNow, "APP.LOGIN", events.CategoryBehavior),
		ev(testNow, "APP.LOGIN", events.CategoryBehavior),
		ev(testNow, "TXN.PAYMENT", events.CategoryTransaction),
		ev(testNow, "SYS.SCORE_COMPUTED", events.CategorySystem),
	}
	if got := diversityIndex(evs); got != 2 {
		t.Errorf("diversityIndex = %d, want 2", got)
	}
}

func TestCountByTypeSubstring(t *testing.T) {
	evs := []*events.Event{
		ev(testNow, "TXN.DISPUTE_OPENED", events.CategoryTransaction),
		ev(testNow, "TXN.REFUND_ISSUED", events.CategoryTransaction),
		ev(testNow, "TXN.PAYMENT", events.CategoryTransaction),
	}
	if got := countByTypeSubstring(evs, "DISPUTE", "REFUND"); got != 2 {
		t.Errorf("countByTypeSubstring = %d, want 2", got)
	}
}

func TestCompute_FullSnapshot(t *testing.T) {
	created := testNow.AddDate(0, 0, -100)
	src := &fakeEvents{evs: []*events.Event{
		ev(testNow, "APP.LOGIN", events.CategoryBehavior),
		ev(testNow.AddDate(0, 0, -1), "APP.LOGIN", events.CategoryBehavior),
		ev(testNow.AddDate(0, 0, -1), "TXN.PAYMENT", events.CategoryTransaction),
		ev(testNow.AddDate(0, 0, -50), "TXN.DISPUTE_OPENED", events.CategoryTransaction),
	}}
	store := NewMemoryStore()
	c := NewComputer(src, &fakeUsers{user: &users.User{ID: "u1", CreatedAt: created}}, store)

	snap, err := c.Compute(context.Background(), "u1", testNow)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if snap.StreakDays != 2 {
		t.Errorf("StreakDays = %d, want 2", snap.StreakDays)
	}
	if snap.ActiveDays30d != 2 {
		t.Errorf("ActiveDays30d = %d, want 2", snap.ActiveDays30d)
	}
	if snap.ActiveDays90d != 3 {
		t.Errorf("ActiveDays90d = %d, want 3", snap.ActiveDays90d)
	}
	if snap.DisputeCount90d != 1 {
		t.Errorf("DisputeCount90d = %d, want 1", snap.DisputeCount90d)
	}
	if snap.TenureDays != 100 {
		t.Errorf("TenureDays = %d, want 100", snap.TenureDays)
	}
	if snap.CompletionRate90d != 0.5 {
		t.Errorf("CompletionRate90d = %v, want neutral 0.5", snap.CompletionRate90d)
	}

	// Snapshot is persisted and retrievable.
	stored, err := c.Latest(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if stored.StreakDays != snap.StreakDays {
		t.Errorf("stored snapshot differs from computed")
	}
}

func TestCompute_UnknownUser(t *testing.T) {
	c := NewComputer(&fakeEvents{}, &fakeUsers{}, NewMemoryStore())
	if _, err := c.Compute(context.Background(), "missing", testNow); err != ErrUserNotFound {
		t.Errorf("Compute error = %v, want ErrUserNotFound", err)
	}
}
