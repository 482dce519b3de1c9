package missions

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/steadyhq/steady/internal/events"
	"github.com/steadyhq/steady/internal/syncutil"
)

type fakeEventLog struct {
	byID    map[string]*events.Event
	created []*events.Event
	failAll bool
}

func newFakeEventLog() *fakeEventLog {
	return &fakeEventLog{byID: make(map[string]*events.Event)}
}

func (f *fakeEventLog) Get(ctx context.Context, id string) (*events.Event, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, events.ErrNotFound
	}
	return e, nil
}

func (f *fakeEventLog) Create(ctx context.Context, userID string, in events.CreateInput) (*events.Event, error) {
	if f.failAll {
		return nil, errors.New("event log unavailable")
	}
	e := &events.Event{ID: "evt_x", UserID: userID, EventType: in.EventType, Category: in.Category, Properties: in.Properties}
	f.created = append(f.created, e)
	return e, nil
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *fakeEventLog, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	log := newFakeEventLog()
	logger := slog.New(slog.NewTextHandler(discardWriter{}, nil))
	svc := NewService(store, log, syncutil.NewShardedMutex(), logger)
	if err := svc.SeedCatalog(context.Background(), DefaultCatalog(testNow)); err != nil {
		t.Fatalf("SeedCatalog failed: %v", err)
	}
	return svc, log, store
}

func TestAssign_FirstOfCatalog(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Assign(ctx, "u1", TypeDaily, testNow)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if a.Mission.Code != "DAILY_LOGIN" {
		t.Errorf("assigned %s, want first catalog entry DAILY_LOGIN", a.Mission.Code)
	}
	if a.UserMission.Status != StatusAssigned {
		t.Errorf("Status = %s, want assigned", a.UserMission.Status)
	}
	if a.UserMission.ProgressCount != 0 {
		t.Errorf("ProgressCount = %d, want 0", a.UserMission.ProgressCount)
	}
}

func TestAssign_OnlyOneActivePerType(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Assign(ctx, "u1", TypeDaily, testNow); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if _, err := svc.Assign(ctx, "u1", TypeDaily, testNow); !errors.Is(err, ErrAlreadyAssigned) {
		t.Errorf("second daily assign: got %v, want ErrAlreadyAssigned", err)
	}

	// A weekly assignment is independent of the daily one.
	if _, err := svc.Assign(ctx, "u1", TypeWeekly, testNow); err != nil {
		t.Errorf("weekly assign alongside daily failed: %v", err)
	}
}

func TestProgress_NeverAutoCompletes(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Assign(ctx, "u1", TypeDaily, testNow)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	// Push progress well past the target; the status must stay active.
	for i := 0; i < a.Mission.TargetCount+3; i++ {
		a, err = svc.Progress(ctx, "u1", a.Mission.ID, 1)
		if err != nil {
			t.Fatalf("Progress failed: %v", err)
		}
	}
	if a.UserMission.Status != StatusInProgress {
		t.Errorf("Status = %s, want in_progress even past target", a.UserMission.Status)
	}
	if a.UserMission.CompletedAt != nil {
		t.Error("CompletedAt set without an explicit completion")
	}
}

func TestComplete_ForcesProgressToTarget(t *testing.T) {
	svc, log, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Assign(ctx, "u1", TypeDaily, testNow)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	result, err := svc.Complete(ctx, "u1", a.Mission.ID, "", testNow)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if result.UserMission.Status != StatusCompleted {
		t.Errorf("Status = %s, want completed", result.UserMission.Status)
	}
	if result.UserMission.ProgressCount != result.Mission.TargetCount {
		t.Errorf("ProgressCount = %d, want target %d", result.UserMission.ProgressCount, result.Mission.TargetCount)
	}
	if result.UserMission.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}

	// One completion event with the mission code.
	if len(log.created) != 1 || log.created[0].EventType != events.TypeMissionCompleted {
		t.Fatalf("expected one %s event, got %v", events.TypeMissionCompleted, log.created)
	}
	if log.created[0].Properties["missionCode"] != result.Mission.Code {
		t.Errorf("event missionCode = %v, want %s", log.created[0].Properties["missionCode"], result.Mission.Code)
	}
}

func TestComplete_TerminalStates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Assign(ctx, "u1", TypeDaily, testNow)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if _, err := svc.Complete(ctx, "u1", a.Mission.ID, "", testNow); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	// Completing again fails; completed is terminal.
	if _, err := svc.Complete(ctx, "u1", a.Mission.ID, "", testNow); !errors.Is(err, ErrAlreadyTerminal) {
		t.Errorf("second Complete: got %v, want ErrAlreadyTerminal", err)
	}

	// The expiry sweep never touches a completed assignment.
	farFuture := testNow.AddDate(2, 0, 0)
	if _, err := svc.ExpireDue(ctx, farFuture); err != nil {
		t.Fatalf("ExpireDue failed: %v", err)
	}
	latest, err := svc.store.LatestAssignment(ctx, "u1", a.Mission.ID)
	if err != nil {
		t.Fatalf("LatestAssignment failed: %v", err)
	}
	if latest.UserMission.Status != StatusCompleted {
		t.Errorf("Status after sweep = %s, completed must be unreachable from expired", latest.UserMission.Status)
	}
}

func TestComplete_NoAssignment(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Complete(context.Background(), "u1", "mis_unknown", "", testNow)
	if !errors.Is(err, ErrNoActiveAssignment) {
		t.Errorf("got %v, want ErrNoActiveAssignment", err)
	}
}

func TestComplete_ProofOwnership(t *testing.T) {
	svc, log, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Assign(ctx, "u1", TypeDaily, testNow)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	// Proof owned by another user is rejected.
	log.byID["evt_other"] = &events.Event{ID: "evt_other", UserID: "u2"}
	if _, err := svc.Complete(ctx, "u1", a.Mission.ID, "evt_other", testNow); !errors.Is(err, ErrInvalidProof) {
		t.Errorf("foreign proof: got %v, want ErrInvalidProof", err)
	}

	// Missing proof id is rejected the same way.
	if _, err := svc.Complete(ctx, "u1", a.Mission.ID, "evt_missing", testNow); !errors.Is(err, ErrInvalidProof) {
		t.Errorf("missing proof: got %v, want ErrInvalidProof", err)
	}

	// Owned proof passes.
	log.byID["evt_mine"] = &events.Event{ID: "evt_mine", UserID: "u1"}
	if _, err := svc.Complete(ctx, "u1", a.Mission.ID, "evt_mine", testNow); err != nil {
		t.Errorf("owned proof rejected: %v", err)
	}
}

func TestComplete_EventAppendFailureRollsBack(t *testing.T) {
	svc, log, store := newTestService(t)
	ctx := context.Background()

	a, err := svc.Assign(ctx, "u1", TypeDaily, testNow)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if _, err := svc.Progress(ctx, "u1", a.Mission.ID, 1); err != nil {
		t.Fatalf("Progress failed: %v", err)
	}

	log.failAll = true
	if _, err := svc.Complete(ctx, "u1", a.Mission.ID, "", testNow); err == nil {
		t.Fatal("Complete succeeded despite event append failure")
	}

	// The transition must be rolled back, not left half-done: no event was
	// recorded, so the row cannot sit in a terminal state.
	latest, err := store.LatestAssignment(ctx, "u1", a.Mission.ID)
	if err != nil {
		t.Fatalf("LatestAssignment failed: %v", err)
	}
	if latest.UserMission.Status != StatusInProgress {
		t.Errorf("Status after failed completion = %s, want in_progress", latest.UserMission.Status)
	}
	if latest.UserMission.ProgressCount != 1 {
		t.Errorf("ProgressCount after failed completion = %d, want 1", latest.UserMission.ProgressCount)
	}
	if latest.UserMission.CompletedAt != nil {
		t.Error("CompletedAt set on a rolled-back completion")
	}
	if len(log.created) != 0 {
		t.Fatalf("recorded %d events for a failed completion, want 0", len(log.created))
	}

	// Once the event log recovers, a retry completes normally.
	log.failAll = false
	result, err := svc.Complete(ctx, "u1", a.Mission.ID, "", testNow)
	if err != nil {
		t.Fatalf("retry Complete failed: %v", err)
	}
	if result.UserMission.Status != StatusCompleted {
		t.Errorf("retry Status = %s, want completed", result.UserMission.Status)
	}
	if len(log.created) != 1 || log.created[0].EventType != events.TypeMissionCompleted {
		t.Fatalf("expected exactly one %s event after retry, got %v", events.TypeMissionCompleted, log.created)
	}
}

func TestExpireDue_Idempotent(t *testing.T) {
	svc, _, store := newTestService(t)
	ctx := context.Background()

	// Seed a short-lived mission and assign it.
	short := &Mission{
		ID:           "mis_short",
		Code:         "SHORT_WINDOW",
		Type:         TypeDaily,
		Title:        "Short",
		TargetCount:  1,
		RewardPoints: 1,
		ActiveFrom:   testNow.Add(-2 * time.Hour),
		ActiveTo:     testNow.Add(time.Hour),
		CreatedAt:    testNow.Add(-2 * time.Hour),
	}
	if err := store.InsertMission(ctx, short); err != nil {
		t.Fatalf("InsertMission failed: %v", err)
	}
	if err := store.InsertAssignment(ctx, &UserMission{
		ID: "umis_1", UserID: "u1", MissionID: "mis_short",
		Status: StatusAssigned, CreatedAt: testNow,
	}); err != nil {
		t.Fatalf("InsertAssignment failed: %v", err)
	}

	after := testNow.Add(2 * time.Hour)
	n, err := svc.ExpireDue(ctx, after)
	if err != nil {
		t.Fatalf("ExpireDue failed: %v", err)
	}
	if n != 1 {
		t.Errorf("first sweep expired %d, want 1", n)
	}

	n, err = svc.ExpireDue(ctx, after)
	if err != nil {
		t.Fatalf("second ExpireDue failed: %v", err)
	}
	if n != 0 {
		t.Errorf("second sweep expired %d, want 0", n)
	}

	latest, err := store.LatestAssignment(ctx, "u1", "mis_short")
	if err != nil {
		t.Fatalf("LatestAssignment failed: %v", err)
	}
	if latest.UserMission.Status != StatusExpired {
		t.Errorf("Status = %s, want expired", latest.UserMission.Status)
	}
}
