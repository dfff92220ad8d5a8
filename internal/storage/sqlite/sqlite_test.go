//go:build sqlite

package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"ssomgr/internal/domain"
	"ssomgr/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	st, err := New(dsn)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSQLiteSeedOnFirstList(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	providers, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(providers) != 3 {
		t.Fatalf("expected 3 seeded providers, got %d", len(providers))
	}
	if providers[0].ID != "1" || providers[0].Type != domain.ProtocolOIDC {
		t.Errorf("unexpected first seeded record %+v", providers[0])
	}

	// Seeding happens at most once: deleting everything leaves it empty.
	for _, p := range providers {
		if _, err := st.Delete(ctx, p.ID); err != nil {
			t.Fatal(err)
		}
	}
	providers, err = st.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(providers) != 0 {
		t.Errorf("expected no reseed after deletes, got %d", len(providers))
	}
}

func TestSQLiteCreateWriteSkipsSeed(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// A write before any read marks the collection as initialized.
	_, err := st.Create(ctx, domain.CreateProvider{
		Name: "Okta",
		Type: domain.ProtocolOIDC,
		Config: map[string]string{
			"clientId":         "x",
			"authorizationUrl": "https://x/auth",
		},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	providers, err := st.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(providers) != 1 {
		t.Errorf("expected only the created record, got %d", len(providers))
	}
}

func TestSQLiteCRUD(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created, err := st.Create(ctx, domain.CreateProvider{
		Name:      "GitLab",
		Type:      domain.ProtocolOAuth2,
		IsEnabled: true,
		Config: map[string]string{
			"clientId":         "gitlab",
			"authorizationUrl": "https://gitlab.example.com/oauth/authorize",
		},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, ok, err := st.Get(ctx, created.ID)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if got.Config["clientId"] != "gitlab" {
		t.Errorf("expected config round-trip, got %v", got.Config)
	}

	got.Name = "GitLab SaaS"
	if err := st.Save(ctx, got); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	saved, _, _ := st.Get(ctx, created.ID)
	if saved.Name != "GitLab SaaS" {
		t.Errorf("expected saved name, got %q", saved.Name)
	}
	if saved.CreatedAt != created.CreatedAt {
		t.Error("CreatedAt must not change on save")
	}

	removed, err := st.Delete(ctx, created.ID)
	if err != nil || !removed {
		t.Fatalf("Delete() = %v, %v", removed, err)
	}
	_, ok, err = st.Get(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected record gone after delete")
	}
}

func TestSQLiteDuplicateIDConflicts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	p := domain.ProviderConfig{ID: "dup", Name: "A", Type: domain.ProtocolCAS, CreatedAt: 1}
	if err := st.insert(ctx, p); err != nil {
		t.Fatal(err)
	}
	err := storage.WrapIfConflict(st.insert(ctx, p))
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate id, got %v", err)
	}
}

func TestSQLiteListEnabled(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	enabled, err := st.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("ListEnabled() error = %v", err)
	}
	if len(enabled) != 2 {
		t.Fatalf("expected 2 enabled seeded providers, got %d", len(enabled))
	}
	for _, p := range enabled {
		if !p.IsEnabled {
			t.Errorf("disabled provider %q in enabled listing", p.Name)
		}
	}
}
