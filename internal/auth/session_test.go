package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewSession(t *testing.T) {
	s, err := NewSession("user-1", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if s.ID == "" || len(s.ID) != sessionIDLength*2 {
		t.Errorf("unexpected session id %q", s.ID)
	}
	if !s.IsValid() {
		t.Error("fresh session should be valid")
	}
	if got := s.ExpiresAt.Sub(s.CreatedAt); got != time.Hour {
		t.Errorf("lifetime = %v", got)
	}

	// Non-positive duration falls back to the default.
	s, err = NewSession("user-1", RoleUser, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.ExpiresAt.Sub(s.CreatedAt); got != DefaultSessionDuration {
		t.Errorf("default lifetime = %v", got)
	}
}

func TestMemorySessionStoreCRUD(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	s, _ := NewSession("user-1", RoleUser, time.Hour)
	if err := store.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.UserID != "user-1" {
		t.Fatalf("Get() = %+v", got)
	}

	if err := store.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, err = store.Get(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("expected session gone after delete")
	}
	if err := store.Delete(ctx, s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemorySessionStoreRejectsInvalid(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	if err := store.Create(ctx, nil); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("nil session: %v", err)
	}
	if err := store.Create(ctx, &Session{ID: "x"}); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("missing user id: %v", err)
	}

	s, _ := NewSession("user-1", RoleUser, time.Hour)
	if err := store.Create(ctx, s); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(ctx, s); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("duplicate id: %v", err)
	}
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	expired := &Session{
		ID:        "expired",
		UserID:    "user-1",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := store.Create(ctx, expired); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get(ctx, "expired"); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}

	n, err := store.Cleanup(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Cleanup() removed %d, want 1", n)
	}
	if store.Count() != 0 {
		t.Errorf("Count() = %d after cleanup", store.Count())
	}
}

func TestMemorySessionStoreDeleteByUserID(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	for range 3 {
		s, _ := NewSession("user-1", RoleUser, time.Hour)
		if err := store.Create(ctx, s); err != nil {
			t.Fatal(err)
		}
	}
	other, _ := NewSession("user-2", RoleUser, time.Hour)
	if err := store.Create(ctx, other); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteByUserID(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}
	if store.Count() != 1 {
		t.Errorf("Count() = %d, want 1 surviving session", store.Count())
	}
	got, err := store.Get(ctx, other.ID)
	if err != nil || got == nil {
		t.Errorf("unrelated user's session should survive: %v, %v", got, err)
	}
}
