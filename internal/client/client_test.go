package client_test

import (
	"context"
	"io"
	"testing"
	"time"

	"ssomgr/internal/auth"
	"ssomgr/internal/client"
	"ssomgr/internal/domain"
	"ssomgr/internal/observability"
	"ssomgr/internal/testutil"
)

func discardLogger() observability.Logger {
	return observability.NewLogger(observability.Config{Level: "error", Output: io.Discard})
}

func newClient(c *testutil.TestServerComponents, token string) *client.Client {
	return client.New(c.Server.URL, func() string { return token }, 5*time.Second, discardLogger())
}

func TestClientLoginAndProviders(t *testing.T) {
	c := testutil.NewTestServer(t, testutil.TestServerConfig{})
	testutil.CreateTestUser(t, c, "admin", "secret", auth.RoleAdmin)
	ctx := context.Background()

	var token string
	cl := client.New(c.Server.URL, func() string { return token }, 5*time.Second, discardLogger())

	result := cl.Login(ctx, "admin", "secret")
	if result == nil {
		t.Fatal("expected successful login")
	}
	token = result.Token

	providers := cl.ListProviders(ctx)
	if len(providers) != 3 {
		t.Fatalf("expected 3 seeded providers, got %d", len(providers))
	}

	p := cl.GetProvider(ctx, providers[0].ID)
	if p == nil || p.Name != providers[0].Name {
		t.Errorf("expected provider lookup to round-trip, got %+v", p)
	}

	me := cl.Me(ctx)
	if me == nil || me.Username != "admin" {
		t.Errorf("expected me to be admin, got %+v", me)
	}
}

func TestClientLogin_BadCredentials(t *testing.T) {
	c := testutil.NewTestServer(t, testutil.TestServerConfig{})
	cl := newClient(c, "")

	if result := cl.Login(context.Background(), "ghost", "nope"); result != nil {
		t.Errorf("expected nil for failed login, got %+v", result)
	}
}

func TestClientList_EmptyOnFailure(t *testing.T) {
	cl := client.New("http://127.0.0.1:1", nil, 200*time.Millisecond, discardLogger())

	providers := cl.ListProviders(context.Background())
	if providers == nil {
		t.Fatal("expected non-nil slice")
	}
	if len(providers) != 0 {
		t.Errorf("expected empty slice on transport failure, got %d", len(providers))
	}
}

func TestClientGet_NilOnFailure(t *testing.T) {
	cl := client.New("http://127.0.0.1:1", nil, 200*time.Millisecond, discardLogger())

	if p := cl.GetProvider(context.Background(), "1"); p != nil {
		t.Errorf("expected nil on transport failure, got %+v", p)
	}
}

func TestClientMutations(t *testing.T) {
	c := testutil.NewTestServer(t, testutil.TestServerConfig{})
	_, token := testutil.CreateTestUser(t, c, "admin", "secret", auth.RoleAdmin)
	cl := newClient(c, token)
	ctx := context.Background()

	created, err := cl.CreateProvider(ctx, domain.CreateProvider{
		Name:      "Okta",
		Type:      domain.ProtocolOIDC,
		IsEnabled: true,
		Config: map[string]string{
			"clientId":         "okta",
			"authorizationUrl": "https://okta.example.com/authorize",
		},
	})
	if err != nil {
		t.Fatalf("CreateProvider() error = %v", err)
	}

	name := "Okta Prod"
	updated, err := cl.UpdateProvider(ctx, created.ID, domain.UpdateProvider{Name: &name})
	if err != nil {
		t.Fatalf("UpdateProvider() error = %v", err)
	}
	if updated.Name != "Okta Prod" {
		t.Errorf("expected updated name, got %q", updated.Name)
	}

	if err := cl.DeleteProvider(ctx, created.ID); err != nil {
		t.Fatalf("DeleteProvider() error = %v", err)
	}
	if p := cl.GetProvider(ctx, created.ID); p != nil {
		t.Errorf("expected provider gone after delete, got %+v", p)
	}
}

func TestClientMutations_SurfaceErrors(t *testing.T) {
	c := testutil.NewTestServer(t, testutil.TestServerConfig{})
	_, token := testutil.CreateTestUser(t, c, "viewer", "secret", auth.RoleUser)
	cl := newClient(c, token)

	_, err := cl.CreateProvider(context.Background(), domain.CreateProvider{
		Name: "Okta",
		Type: domain.ProtocolOIDC,
		Config: map[string]string{
			"clientId":         "x",
			"authorizationUrl": "https://x/auth",
		},
	})
	if err == nil {
		t.Error("expected error for forbidden create")
	}

	if err := cl.DeleteProvider(context.Background(), "1"); err == nil {
		t.Error("expected error for forbidden delete")
	}
}

func TestClientStats(t *testing.T) {
	c := testutil.NewTestServer(t, testutil.TestServerConfig{})
	_, token := testutil.CreateTestUser(t, c, "admin", "secret", auth.RoleAdmin)
	cl := newClient(c, token)
	ctx := context.Background()

	cl.ListProviders(ctx) // seed

	stats := cl.Stats(ctx)
	if stats.TotalProviders != 3 {
		t.Errorf("expected 3 total providers, got %d", stats.TotalProviders)
	}

	// Transport failure yields zeroed stats, not a panic.
	broken := client.New("http://127.0.0.1:1", nil, 200*time.Millisecond, discardLogger())
	stats = broken.Stats(ctx)
	if stats.TotalProviders != 0 || stats.ProtocolStats == nil {
		t.Errorf("expected zeroed stats on failure, got %+v", stats)
	}
}
