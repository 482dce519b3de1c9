// Package users is the identity boundary for the scoring platform.
//
// Authentication and session issuance live outside this service; users here
// carry only what the engine needs: a stable id and a creation timestamp
// (tenure input for scoring).
package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrAlreadyExists = errors.New("user already exists")
)

// User is a registered platform user.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store persists users
type Store interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
}
