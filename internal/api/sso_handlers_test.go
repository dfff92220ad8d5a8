package api_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"ssomgr/internal/auth"
	"ssomgr/internal/testutil"
)

func seedProviders(t *testing.T, c *testutil.TestServerComponents, token string) {
	t.Helper()
	req := testutil.AuthenticatedRequest(t, http.MethodGet, c.URL("/api/v1/providers"), token, nil)
	testutil.DoRequest(t, http.DefaultClient, req).Body.Close()
}

func TestSSOLogin_RedirectsToProvider(t *testing.T) {
	c := testutil.NewTestServer(t, testutil.TestServerConfig{})
	_, token := testutil.CreateTestUser(t, c, "admin", "secret", auth.RoleAdmin)
	seedProviders(t, c, token)

	// Provider 1 is the seeded OIDC Google Workspace record.
	resp, err := c.HTTPClient().Get(c.URL("/api/v1/auth/sso/login/1"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "https://accounts.google.com/") {
		t.Fatalf("expected redirect to Google authorization endpoint, got %q", loc)
	}

	u, err := url.Parse(loc)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("client_id") == "" {
		t.Error("expected client_id in redirect")
	}
	if q.Get("state") == "" {
		t.Error("expected state in redirect")
	}
	if !strings.HasSuffix(q.Get("redirect_uri"), "/api/v1/auth/sso/callback") {
		t.Errorf("expected callback redirect_uri, got %q", q.Get("redirect_uri"))
	}
}

func TestSSOLogin_DisabledProvider(t *testing.T) {
	c := testutil.NewTestServer(t, testutil.TestServerConfig{})
	_, token := testutil.CreateTestUser(t, c, "admin", "secret", auth.RoleAdmin)
	seedProviders(t, c, token)

	// Provider 3 is the seeded disabled CAS record; disabled providers are
	// not login options, so this is indistinguishable from an unknown ID.
	resp, err := c.HTTPClient().Get(c.URL("/api/v1/auth/sso/login/3"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for disabled provider, got %d", resp.StatusCode)
	}
}

func TestSSOLogin_UnknownProvider(t *testing.T) {
	c := testutil.NewTestServer(t, testutil.TestServerConfig{})

	resp, err := c.HTTPClient().Get(c.URL("/api/v1/auth/sso/login/nope"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSSOCallback_MintsToken(t *testing.T) {
	c := testutil.NewTestServer(t, testutil.TestServerConfig{})

	resp, err := http.Get(c.URL("/api/v1/auth/sso/callback?code=abc&state=xyz"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	testutil.ReadJSONResponse(t, resp, &body)
	token := body["token"]
	if token == "" {
		t.Fatal("expected a minted token")
	}

	// The minted token authenticates as a user-role principal.
	req := testutil.AuthenticatedRequest(t, http.MethodGet, c.URL("/api/v1/auth/me"), token, nil)
	resp = testutil.DoRequest(t, http.DefaultClient, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected minted token to authenticate, got %d", resp.StatusCode)
	}
	var me auth.User
	testutil.ReadJSONResponse(t, resp, &me)
	if me.Role != auth.RoleUser {
		t.Errorf("expected user role for SSO principal, got %q", me.Role)
	}
}

func TestSSOCallback_RepeatedLoginsShareUser(t *testing.T) {
	c := testutil.NewTestServer(t, testutil.TestServerConfig{})

	for i := 0; i < 2; i++ {
		resp, err := http.Get(c.URL("/api/v1/auth/sso/callback?code=abc"))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("callback %d: expected 200, got %d", i, resp.StatusCode)
		}
	}
}

func TestSSOCallback_ProviderError(t *testing.T) {
	c := testutil.NewTestServer(t, testutil.TestServerConfig{})

	resp, err := http.Get(c.URL("/api/v1/auth/sso/callback?error=access_denied"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502 for provider error, got %d", resp.StatusCode)
	}
}
