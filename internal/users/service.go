package users

import (
	"context"
	"time"

	"github.com/steadyhq/steady/internal/idgen"
	"github.com/steadyhq/steady/internal/validation"
)

// Service manages user registration and lookup.
type Service struct {
	store Store
}

// NewService creates a new user service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Register creates a user. An empty id gets a generated one.
func (s *Service) Register(ctx context.Context, id, displayName string) (*User, error) {
	if id == "" {
		id = idgen.WithPrefix("usr")
	}
	u := &User{
		ID:          id,
		DisplayName: validation.SanitizeString(displayName, 255),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Get returns a user by id, ErrNotFound if missing.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.store.Get(ctx, id)
}
