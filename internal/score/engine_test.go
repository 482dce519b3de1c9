package score

import (
	"strings"
	"testing"

	"github.com/steadyhq/steady/internal/features"
)

// healthyUser is a strong feature vector with a fully known expected
// breakdown: consistency 20+75+27=122, capacity 135+100=235,
// integrity 200+30=230, engagement 100+100=200, total 787.
func healthyUser() *features.Snapshot {
	return &features.Snapshot{
		UserID:              "u1",
		StreakDays:          10,
		ActiveDays30d:       25,
		ActiveDays90d:       50,
		MeaningfulEvents30d: 20,
		DiversityIndex90d:   6,
		DisputeCount90d:     0,
		ReversalCount90d:    0,
		VelocityFlags30d:    0,
		RiskFlags90d:        0,
		InactivityWeeks:     0,
		CompletionRate90d:   0.9,
		TenureDays:          100,
	}
}

func TestCompute_KnownBreakdown(t *testing.T) {
	r := Compute(healthyUser())

	if r.SubScores.Consistency != 122 {
		t.Errorf("Consistency = %d, want 122", r.SubScores.Consistency)
	}
	if r.SubScores.Capacity != 235 {
		t.Errorf("Capacity = %d, want 235", r.SubScores.Capacity)
	}
	if r.SubScores.Integrity != 230 {
		t.Errorf("Integrity = %d, want 230", r.SubScores.Integrity)
	}
	if r.SubScores.EngagementQuality != 200 {
		t.Errorf("EngagementQuality = %d, want 200", r.SubScores.EngagementQuality)
	}
	if r.TotalScore != 787 {
		t.Errorf("TotalScore = %d, want 787", r.TotalScore)
	}
}

func TestCompute_SubScoreCaps(t *testing.T) {
	// Maxed-out inputs must still respect every cap.
	f := &features.Snapshot{
		StreakDays:          400,
		ActiveDays30d:       30,
		ActiveDays90d:       90,
		MeaningfulEvents30d: 1000,
		DiversityIndex90d:   50,
		CompletionRate90d:   5.0, // out-of-range input is clipped, not rejected
		TenureDays:          10000,
	}
	r := Compute(f)

	if r.SubScores.Consistency > MaxConsistency {
		t.Errorf("Consistency %d exceeds cap %d", r.SubScores.Consistency, MaxConsistency)
	}
	if r.SubScores.Capacity > MaxCapacity {
		t.Errorf("Capacity %d exceeds cap %d", r.SubScores.Capacity, MaxCapacity)
	}
	if r.SubScores.Integrity > MaxIntegrity {
		t.Errorf("Integrity %d exceeds cap %d", r.SubScores.Integrity, MaxIntegrity)
	}
	if r.SubScores.EngagementQuality > MaxEngagement {
		t.Errorf("EngagementQuality %d exceeds cap %d", r.SubScores.EngagementQuality, MaxEngagement)
	}
	if r.TotalScore > MaxTotal {
		t.Errorf("TotalScore %d exceeds cap %d", r.TotalScore, MaxTotal)
	}
}

func TestCompute_FloorsAtZero(t *testing.T) {
	// Heavy penalties on a new user cannot push anything negative.
	f := &features.Snapshot{
		DisputeCount90d:  10,
		ReversalCount90d: 10,
		VelocityFlags30d: 5,
		RiskFlags90d:     5,
		InactivityWeeks:  12,
	}
	r := Compute(f)

	if r.SubScores.Integrity != 0 {
		t.Errorf("Integrity = %d, want 0", r.SubScores.Integrity)
	}
	if r.TotalScore < 0 {
		t.Errorf("TotalScore = %d, want >= 0", r.TotalScore)
	}
}

func TestCompute_InactivityPenalty(t *testing.T) {
	f := healthyUser()
	base := Compute(f).TotalScore

	f.InactivityWeeks = 3
	penalized := Compute(f).TotalScore

	if want := base - 30; penalized != want {
		t.Errorf("TotalScore with 3 inactive weeks = %d, want %d", penalized, want)
	}
}

func TestCompute_VarianceStabilityScalesBelow45(t *testing.T) {
	f := healthyUser()
	f.StreakDays = 0
	f.ActiveDays30d = 0
	f.ActiveDays90d = 9 // round(9/45*90)=18, round(18*0.3)=5

	r := Compute(f)
	if r.SubScores.Consistency != 5 {
		t.Errorf("Consistency = %d, want 5", r.SubScores.Consistency)
	}
}

func TestGenerateDrivers_Order(t *testing.T) {
	r := Compute(healthyUser())

	wantPositive := []string{
		"Strong streak of 10 days",
		"High action diversity with 6 unique event types",
		"No disputes or reversals in the last 90 days",
		"Clean risk profile",
		"Highly active with 25 active days in last 30 days",
		"Excellent mission completion rate",
	}
	if len(r.Drivers.Positive) != len(wantPositive) {
		t.Fatalf("got %d positive drivers, want %d: %v", len(r.Drivers.Positive), len(wantPositive), r.Drivers.Positive)
	}
	for i, want := range wantPositive {
		if r.Drivers.Positive[i] != want {
			t.Errorf("positive[%d] = %q, want %q", i, r.Drivers.Positive[i], want)
		}
	}
	if len(r.Drivers.Negative) != 0 {
		t.Errorf("expected no negative drivers, got %v", r.Drivers.Negative)
	}
}

func TestGenerateDrivers_Negative(t *testing.T) {
	f := &features.Snapshot{
		DisputeCount90d: 2,
		InactivityWeeks: 1,
		ActiveDays30d:   1,
	}
	r := Compute(f)

	found := false
	for _, d := range r.Drivers.Negative {
		if strings.Contains(d, "2 dispute(s)") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected dispute driver, got %v", r.Drivers.Negative)
	}
}

func TestNextActions_Fallback(t *testing.T) {
	// Nothing to improve: exactly the two fixed encouragements.
	f := healthyUser()
	f.MeaningfulEvents30d = 25
	actions := NextActions(f)

	if len(actions) != 2 {
		t.Fatalf("got %d actions, want 2 fallback actions: %v", len(actions), actions)
	}
	if actions[0] != "Keep up the great work! Maintain your current activity levels" {
		t.Errorf("unexpected fallback action: %q", actions[0])
	}
}

func TestNextActions_TruncatesToThree(t *testing.T) {
	// A fully inactive user matches every rule; only three surface.
	f := &features.Snapshot{InactivityWeeks: 4}
	actions := NextActions(f)

	if len(actions) != 3 {
		t.Fatalf("got %d actions, want 3: %v", len(actions), actions)
	}
	if actions[0] != "Build a daily activity streak by logging in and completing actions for 3+ consecutive days" {
		t.Errorf("unexpected first action: %q", actions[0])
	}
}
