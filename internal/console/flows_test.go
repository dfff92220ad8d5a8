package console

import (
	"context"
	"errors"
	"io"
	"testing"

	"ssomgr/internal/domain"
)

// failingDeleteBackend wraps a Backend and fails deletes, for rollback tests.
type failingDeleteBackend struct {
	Backend
}

func (b *failingDeleteBackend) DeleteProvider(ctx context.Context, id string) error {
	return errors.New("backend unavailable")
}

func newTestFlows(backend Backend) *ProviderFlows {
	return NewProviderFlows(backend, NewNotifier(io.Discard, testLogger()), testLogger())
}

func TestFlows_ListAndGet(t *testing.T) {
	f := newTestFlows(newTestLocalBackend())
	ctx := context.Background()

	list := f.List(ctx)
	if len(list) != 3 {
		t.Fatalf("expected 3 seeded providers, got %d", len(list))
	}

	p := f.Get(ctx, list[0].ID)
	if p == nil || p.Name != list[0].Name {
		t.Errorf("expected get to round-trip, got %+v", p)
	}
	if f.Get(ctx, "nope") != nil {
		t.Error("expected nil for unknown provider")
	}
}

func TestFlows_CreateValidatesAtSubmit(t *testing.T) {
	f := newTestFlows(newTestLocalBackend())

	_, err := f.Create(context.Background(), domain.CreateProvider{Name: "", Type: "BOGUS"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	created, err := f.Create(context.Background(), domain.CreateProvider{
		Name: "Okta",
		Type: domain.ProtocolSAML2,
		Config: map[string]string{
			"entryPoint": "https://idp.example.com/sso",
		},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == "" {
		t.Error("expected assigned ID")
	}
}

func TestFlows_EditMergesAndValidates(t *testing.T) {
	f := newTestFlows(newTestLocalBackend())
	ctx := context.Background()

	list := f.List(ctx)
	orig := list[0]

	disabled := false
	updated, err := f.Edit(ctx, orig.ID, domain.UpdateProvider{IsEnabled: &disabled})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if updated.IsEnabled {
		t.Error("expected provider disabled")
	}
	if updated.Name != orig.Name {
		t.Error("expected unset fields preserved")
	}

	// An edit that breaks validation is rejected before save.
	empty := ""
	if _, err := f.Edit(ctx, orig.ID, domain.UpdateProvider{Name: &empty}); err == nil {
		t.Error("expected validation error for empty name")
	}
	if f.Get(ctx, orig.ID).Name != orig.Name {
		t.Error("rejected edit must not be persisted")
	}
}

func TestFlows_DeleteRequiresConfirmation(t *testing.T) {
	f := newTestFlows(newTestLocalBackend())
	ctx := context.Background()

	list := f.List(ctx)
	after, err := f.Delete(ctx, list, list[0].ID, false)
	if !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if len(after) != len(list) {
		t.Error("unconfirmed delete must not change the list")
	}
	if f.Get(ctx, list[0].ID) == nil {
		t.Error("unconfirmed delete must not touch the backend")
	}
}

func TestFlows_DeleteConfirmed(t *testing.T) {
	f := newTestFlows(newTestLocalBackend())
	ctx := context.Background()

	list := f.List(ctx)
	after, err := f.Delete(ctx, list, list[2].ID, true)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(after) != len(list)-1 {
		t.Errorf("expected list shrunk to %d, got %d", len(list)-1, len(after))
	}
	if f.Get(ctx, list[2].ID) != nil {
		t.Error("expected provider removed from backend")
	}
}

func TestFlows_DeleteRollsBackOnFailure(t *testing.T) {
	f := newTestFlows(&failingDeleteBackend{Backend: newTestLocalBackend()})
	ctx := context.Background()

	list := f.List(ctx)
	after, err := f.Delete(ctx, list, list[0].ID, true)
	if err == nil {
		t.Fatal("expected delete failure")
	}
	if len(after) != len(list) {
		t.Errorf("expected rollback to original list length %d, got %d", len(list), len(after))
	}
	if after[0].ID != list[0].ID {
		t.Error("expected original record restored in place")
	}
}

func TestFlows_Stats(t *testing.T) {
	f := newTestFlows(newTestLocalBackend())
	ctx := context.Background()

	f.List(ctx) // seed
	stats := f.Stats(ctx)
	if stats.TotalProviders != 3 {
		t.Errorf("expected 3 providers, got %d", stats.TotalProviders)
	}
}
