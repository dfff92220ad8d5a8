package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ssomgr/internal/domain"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "providers.json")
	return New(path, nil), path
}

func TestFilestoreSeedsOnFirstList(t *testing.T) {
	st, path := newTestStore(t)
	ctx := context.Background()

	providers, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(providers) != 3 {
		t.Fatalf("expected 3 seeded providers, got %d", len(providers))
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected seed to be persisted: %v", err)
	}
}

func TestFilestoreNoReseedAfterDelete(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	providers, _ := st.List(ctx)
	for _, p := range providers {
		if _, err := st.Delete(ctx, p.ID); err != nil {
			t.Fatal(err)
		}
	}

	// The emptied collection is persisted, so it stays empty.
	providers, err := st.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(providers) != 0 {
		t.Errorf("expected empty collection to stay empty, got %d", len(providers))
	}
}

func TestFilestoreCorruptFileReseeds(t *testing.T) {
	st, path := newTestStore(t)
	ctx := context.Background()

	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	providers, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List() on corrupt file error = %v", err)
	}
	if len(providers) != 3 {
		t.Errorf("expected corrupt data to be replaced by seed, got %d records", len(providers))
	}
}

func TestFilestoreCRUDRoundTrip(t *testing.T) {
	st, path := newTestStore(t)
	ctx := context.Background()

	created, err := st.Create(ctx, domain.CreateProvider{
		Name:      "Okta",
		Type:      domain.ProtocolOIDC,
		IsEnabled: true,
		Config:    map[string]string{"clientId": "okta", "authorizationUrl": "https://okta.example.com/authorize"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// A second Store over the same file observes the write.
	st2 := New(path, nil)
	got, ok, err := st2.Get(ctx, created.ID)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if got.Name != "Okta" || got.Config["clientId"] != "okta" {
		t.Errorf("round-trip mismatch: %+v", got)
	}

	got.Description = "staging tenant"
	if err := st2.Save(ctx, got); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	saved, _, _ := st.Get(ctx, created.ID)
	if saved.Description != "staging tenant" {
		t.Errorf("expected saved description, got %q", saved.Description)
	}

	removed, err := st.Delete(ctx, created.ID)
	if err != nil || !removed {
		t.Fatalf("Delete() = %v, %v", removed, err)
	}
	removed, err = st.Delete(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Error("expected repeat delete to report nothing removed")
	}
}

func TestFilestoreCreateValidates(t *testing.T) {
	st, _ := newTestStore(t)

	_, err := st.Create(context.Background(), domain.CreateProvider{Name: "", Type: domain.ProtocolOIDC})
	if err == nil {
		t.Error("expected error for missing name")
	}
	_, err = st.Create(context.Background(), domain.CreateProvider{Name: "X", Type: "LDAP"})
	if err == nil {
		t.Error("expected error for unknown protocol type")
	}
}

func TestFilestoreStats(t *testing.T) {
	st, _ := newTestStore(t)

	stats, err := st.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalProviders != 3 || stats.ActiveProviders != 2 {
		t.Errorf("stats = %+v", stats)
	}
}
