package features

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/steadyhq/steady/internal/events"
	"github.com/steadyhq/steady/internal/users"
)

// EventSource is the slice of the event log the computer reads.
type EventSource interface {
	ListSince(ctx context.Context, userID string, since time.Time) ([]*events.Event, error)
}

// UserSource resolves a user's creation time (tenure input).
type UserSource interface {
	Get(ctx context.Context, id string) (*users.User, error)
}

// Computer derives feature snapshots from the event log.
type Computer struct {
	events EventSource
	users  UserSource
	store  Store
}

// NewComputer creates a feature computer
func NewComputer(ev EventSource, us UserSource, store Store) *Computer {
	return &Computer{events: ev, users: us, store: store}
}

// Compute builds and upserts the feature snapshot for one user at time now.
func (c *Computer) Compute(ctx context.Context, userID string, now time.Time) (*Snapshot, error) {
	user, err := c.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	events90d, err := c.events.ListSince(ctx, userID, now.Add(-LookbackDays*24*time.Hour))
	if err != nil {
		return nil, err
	}
	var events30d []*events.Event
	for _, e := range events90d {
		if now.Sub(e.Timestamp) <= ShortWindow {
			events30d = append(events30d, e)
		}
	}

	snap := &Snapshot{
		UserID:              userID,
		StreakDays:          streakDays(events90d, now),
		ActiveDays30d:       countActiveDays(events30d),
		ActiveDays90d:       countActiveDays(events90d),
		MeaningfulEvents30d: countMeaningful(events30d),
		DiversityIndex90d:   diversityIndex(events90d),
		DisputeCount90d:     countByTypeSubstring(events90d, "DISPUTE", "REFUND"),
		ReversalCount90d:    countByTypeSubstring(events90d, "REVERSAL", "CHARGEBACK"),
		VelocityFlags30d:    countVelocityFlags(events30d),
		RiskFlags90d:        countRiskFlags(events90d),
		InactivityWeeks:     inactivityWeeks(events90d, now),
		CompletionRate90d:   completionRate(events90d),
		TenureDays:          tenureDays(user.CreatedAt, now),
		UpdatedAt:           now.UTC(),
	}

	if err := c.store.Upsert(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Latest returns the stored snapshot for a user.
func (c *Computer) Latest(ctx context.Context, userID string) (*Snapshot, error) {
	return c.store.Get(ctx, userID)
}

// dayKey buckets a timestamp into its UTC calendar day.
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func activeDaySet(evs []*events.Event) map[string]bool {
	days := make(map[string]bool, len(evs))
	for _, e := range evs {
		days[dayKey(e.Timestamp)] = true
	}
	return days
}

func countActiveDays(evs []*events.Event) int {
	return len(activeDaySet(evs))
}

// streakDays walks consecutive UTC days backward from now (or from
// yesterday when today has no event) while each day has at least one
// event. Stops at the first gap; hard caps at 365 as a safety bound.
func streakDays(evs []*events.Event, now time.Time) int {
	if len(evs) == 0 {
		return 0
	}
	days := activeDaySet(evs)

	day := now.UTC()
	if !days[dayKey(day)] {
		day = day.AddDate(0, 0, -1)
		if !days[dayKey(day)] {
			return 0
		}
	}

	streak := 0
	for days[dayKey(day)] {
		streak++
		if streak > streakHardCap {
			break
		}
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// countMeaningful counts events outside the system and risk categories.
func countMeaningful(evs []*events.Event) int {
	n := 0
	for _, e := range evs {
		if e.Category != events.CategorySystem && e.Category != events.CategoryRisk {
			n++
		}
	}
	return n
}

// diversityIndex counts distinct event types among non-system events.
// Not normalized.
func diversityIndex(evs []*events.Event) int {
	types := make(map[string]bool)
	for _, e := range evs {
		if e.Category != events.CategorySystem {
			types[e.EventType] = true
		}
	}
	return len(types)
}

func countByTypeSubstring(evs []*events.Event, substrings ...string) int {
	n := 0
	for _, e := range evs {
		upper := strings.ToUpper(e.EventType)
		for _, sub := range substrings {
			if strings.Contains(upper, sub) {
				n++
				break
			}
		}
	}
	return n
}

func countVelocityFlags(evs []*events.Event) int {
	n := 0
	for _, e := range evs {
		if e.Category == events.CategoryRisk && e.EventType == events.TypeVelocitySpike {
			n++
		}
	}
	return n
}

func countRiskFlags(evs []*events.Event) int {
	n := 0
	for _, e := range evs {
		if e.Category == events.CategoryRisk {
			n++
		}
	}
	return n
}

// inactivityWeeks is 0 while the most recent event is at most 7 days old,
// then one week per started week beyond that. A user with no events in
// the window gets the fixed maximum for the 90-day lookback.
func inactivityWeeks(evs []*events.Event, now time.Time) int {
	if len(evs) == 0 {
		return int(math.Ceil((LookbackDays - 7) / 7.0))
	}

	last := evs[0].Timestamp
	for _, e := range evs[1:] {
		if e.Timestamp.After(last) {
			last = e.Timestamp
		}
	}

	days := int(math.Floor(now.Sub(last).Hours() / 24))
	if days <= 7 {
		return 0
	}
	return int(math.Ceil(float64(days-7) / 7.0))
}

// completionRate is completed mission events over all mission-related
// events, with 0.5 as the neutral default when no mission events exist.
func completionRate(evs []*events.Event) float64 {
	completed := 0
	related := 0
	for _, e := range evs {
		if strings.HasPrefix(e.EventType, "ENG.MISSION") {
			related++
			if e.EventType == events.TypeMissionCompleted {
				completed++
			}
		}
	}
	if related == 0 {
		return 0.5
	}
	return float64(completed) / float64(max(1, related))
}

func tenureDays(createdAt, now time.Time) int {
	diff := now.Sub(createdAt)
	if diff < 0 {
		diff = -diff
	}
	return int(math.Ceil(diff.Hours() / 24))
}
