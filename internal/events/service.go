package events

import (
	"context"
	"fmt"
	"time"

	"github.com/steadyhq/steady/internal/idgen"
	"github.com/steadyhq/steady/internal/metrics"
)

// CreateInput is the validated shape for event creation.
type CreateInput struct {
	EventType  string
	Category   Category
	Timestamp  time.Time // zero means now
	Properties map[string]any
	DeviceID   string
	RiskScore  *float64
}

// Service validates and appends events.
type Service struct {
	store Store
}

// NewService creates a new event service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create validates and appends one event for a user.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*Event, error) {
	if in.EventType == "" {
		return nil, ErrEmptyEventType
	}
	if !ValidCategory(in.Category) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, in.Category)
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	e := &Event{
		ID:         idgen.WithPrefix("evt"),
		UserID:     userID,
		EventType:  in.EventType,
		Category:   in.Category,
		Timestamp:  ts,
		Properties: in.Properties,
		DeviceID:   in.DeviceID,
		RiskScore:  in.RiskScore,
	}

	if err := s.store.Insert(ctx, e); err != nil {
		return nil, err
	}

	metrics.EventsIngestedTotal.WithLabelValues(string(in.Category)).Inc()
	return e, nil
}

// Get returns one event by id.
func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	return s.store.Get(ctx, id)
}

// ListSince returns a user's events since the cutoff, newest first.
func (s *Service) ListSince(ctx context.Context, userID string, since time.Time) ([]*Event, error) {
	return s.store.ListSince(ctx, userID, since)
}

// ActiveUserIDs returns distinct user ids with events since the cutoff.
func (s *Service) ActiveUserIDs(ctx context.Context, since time.Time) ([]string, error) {
	return s.store.ActiveUserIDs(ctx, since)
}
