package users

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRegister_GeneratesIDWhenEmpty(t *testing.T) {
	svc := NewService(NewMemoryStore())
	u, err := svc.Register(context.Background(), "", "Ada")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !strings.HasPrefix(u.ID, "usr") {
		t.Errorf("generated id %q missing usr prefix", u.ID)
	}
	if u.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestRegister_KeepsProvidedID(t *testing.T) {
	svc := NewService(NewMemoryStore())
	u, err := svc.Register(context.Background(), "u1", "Ada")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if u.ID != "u1" {
		t.Errorf("ID = %q, want u1", u.ID)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()
	if _, err := svc.Register(ctx, "u1", "Ada"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := svc.Register(ctx, "u1", "Ada Again"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate register error = %v, want ErrAlreadyExists", err)
	}
}

func TestGet_Missing(t *testing.T) {
	svc := NewService(NewMemoryStore())
	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get error = %v, want ErrNotFound", err)
	}
}
