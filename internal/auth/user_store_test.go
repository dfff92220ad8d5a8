package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newStoredUser(id, username string, role Role) *User {
	now := time.Now().UTC()
	return &User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		Role:         role,
		PasswordHash: []byte("$2a$12$fakehash"),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
		AuthProvider: "local",
	}
}

func TestMemoryUserStoreCreateAndGet(t *testing.T) {
	store := NewMemoryUserStore()
	ctx := context.Background()

	u := newStoredUser("u1", "alice", RoleAdmin)
	if err := store.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	byID, err := store.GetByID(ctx, "u1")
	if err != nil || byID == nil {
		t.Fatalf("GetByID() = %v, %v", byID, err)
	}
	byName, err := store.GetByUsername(ctx, "alice")
	if err != nil || byName == nil {
		t.Fatalf("GetByUsername() = %v, %v", byName, err)
	}
	if byName.ID != "u1" {
		t.Errorf("username index points at %q", byName.ID)
	}

	missing, err := store.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetByID(missing) = %v, %v", missing, err)
	}
}

func TestMemoryUserStoreDuplicates(t *testing.T) {
	store := NewMemoryUserStore()
	ctx := context.Background()

	if err := store.Create(ctx, newStoredUser("u1", "alice", RoleUser)); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(ctx, newStoredUser("u1", "other", RoleUser)); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate id: %v", err)
	}
	if err := store.Create(ctx, newStoredUser("u2", "alice", RoleUser)); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate username: %v", err)
	}
}

func TestMemoryUserStoreReturnsCopies(t *testing.T) {
	store := NewMemoryUserStore()
	ctx := context.Background()

	if err := store.Create(ctx, newStoredUser("u1", "alice", RoleUser)); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetByID(ctx, "u1")
	got.Username = "mallory"

	again, _ := store.GetByID(ctx, "u1")
	if again.Username != "alice" {
		t.Error("store handed out a shared User pointer")
	}
}

func TestMemoryUserStoreUpdate(t *testing.T) {
	store := NewMemoryUserStore()
	ctx := context.Background()

	if err := store.Create(ctx, newStoredUser("u1", "alice", RoleUser)); err != nil {
		t.Fatal(err)
	}

	u, _ := store.GetByID(ctx, "u1")
	u.Username = "alice2"
	u.IsActive = false
	if err := store.Update(ctx, u); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if old, _ := store.GetByUsername(ctx, "alice"); old != nil {
		t.Error("old username should be unindexed after rename")
	}
	renamed, _ := store.GetByUsername(ctx, "alice2")
	if renamed == nil || renamed.IsActive {
		t.Errorf("renamed user = %+v", renamed)
	}

	if err := store.Update(ctx, newStoredUser("ghost", "ghost", RoleUser)); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("update of missing user: %v", err)
	}
}

func TestMemoryUserStoreListStripsHashes(t *testing.T) {
	store := NewMemoryUserStore()
	ctx := context.Background()

	if err := store.Create(ctx, newStoredUser("u1", "alice", RoleAdmin)); err != nil {
		t.Fatal(err)
	}
	users, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 {
		t.Fatalf("List() returned %d users", len(users))
	}
	if users[0].PasswordHash != nil {
		t.Error("List() must not expose password hashes")
	}
}

func TestMemoryUserStoreUpdateLastLogin(t *testing.T) {
	store := NewMemoryUserStore()
	ctx := context.Background()

	if err := store.Create(ctx, newStoredUser("u1", "alice", RoleUser)); err != nil {
		t.Fatal(err)
	}
	when := time.Now().UTC()
	if err := store.UpdateLastLogin(ctx, "u1", when); err != nil {
		t.Fatalf("UpdateLastLogin() error = %v", err)
	}
	u, _ := store.GetByID(ctx, "u1")
	if u.LastLoginAt == nil || !u.LastLoginAt.Equal(when) {
		t.Errorf("LastLoginAt = %v", u.LastLoginAt)
	}
	if err := store.UpdateLastLogin(ctx, "ghost", when); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("missing user: %v", err)
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if err := VerifyPassword("correct horse battery staple", hash); err != nil {
		t.Errorf("VerifyPassword(correct) = %v", err)
	}
	if err := VerifyPassword("wrong", hash); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("VerifyPassword(wrong) = %v", err)
	}
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"admin": RoleAdmin,
		"Admin": RoleAdmin,
		" user": RoleUser,
		"":      RoleUser,
		"root":  RoleUser,
	}
	for in, want := range cases {
		if got := ParseRole(in); got != want {
			t.Errorf("ParseRole(%q) = %q, want %q", in, got, want)
		}
	}
}
