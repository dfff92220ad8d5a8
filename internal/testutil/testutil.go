// Package testutil provides testing utilities for SSO manager integration tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"ssomgr/internal/api"
	"ssomgr/internal/audit"
	"ssomgr/internal/auth"
	"ssomgr/internal/observability"
	"ssomgr/internal/storage"
)

// TestSigningSecret is the HS256 secret used by test servers.
var TestSigningSecret = []byte("test-signing-secret-0123456789abcdef")

// TestServerConfig holds configuration for creating a test server.
type TestServerConfig struct {
	// EnableRateLimit enables the general rate limiting middleware.
	EnableRateLimit bool
	// RateLimitConfig configures rate limiting if enabled.
	RateLimitConfig api.RateLimitConfig
	// EnableMetrics enables metrics collection.
	EnableMetrics bool
	// LoginAttemptsPerMinute enables login rate limiting when positive.
	LoginAttemptsPerMinute int
}

// TestServerComponents holds all the components created for a test server.
type TestServerComponents struct {
	Server      *httptest.Server
	Store       *storage.MemoryProviderStore
	Users       *auth.MemoryUserStore
	Sessions    *auth.MemorySessionStore
	Tokens      *auth.TokenIssuer
	AuditLogger *audit.MemoryLogger
	Metrics     *observability.Metrics
	Logger      observability.Logger
	Cleanup     func()
}

// NewTestServer creates a fully configured test server with all dependencies.
func NewTestServer(t *testing.T, cfg TestServerConfig) *TestServerComponents {
	t.Helper()

	store := storage.NewMemoryProviderStore()
	users := auth.NewMemoryUserStore()
	sessions := auth.NewMemorySessionStore()
	tokens := auth.NewTokenIssuer(TestSigningSecret, "ssomgr-test")
	auditLogger := audit.NewMemoryLogger()

	logger := observability.NewLogger(observability.Config{
		Level:  "debug",
		Format: "json",
		Output: io.Discard,
	})

	var metrics *observability.Metrics
	if cfg.EnableMetrics {
		metrics = observability.NewMetrics(observability.DefaultMetricsConfig())
	}

	mux := http.NewServeMux()
	srv := api.NewServer(mux, store, users, sessions, tokens, logger, metrics, auditLogger)

	var loginRL api.Middleware
	if cfg.LoginAttemptsPerMinute > 0 {
		loginRL = api.LoginRateLimitMiddleware(api.LoginRateLimitConfig{AttemptsPerMinute: cfg.LoginAttemptsPerMinute})
	}
	srv.RegisterRoutes(loginRL)

	var handler http.Handler = mux
	middlewares := []api.Middleware{api.RequestIDMiddleware()}
	if cfg.EnableRateLimit {
		middlewares = append(middlewares, api.RateLimitMiddleware(cfg.RateLimitConfig, logger, metrics))
	}
	handler = api.ApplyMiddlewares(handler, middlewares...)

	ts := httptest.NewServer(handler)
	srv.SetBaseURL(ts.URL)

	components := &TestServerComponents{
		Server:      ts,
		Store:       store,
		Users:       users,
		Sessions:    sessions,
		Tokens:      tokens,
		AuditLogger: auditLogger,
		Metrics:     metrics,
		Logger:      logger,
		Cleanup:     ts.Close,
	}
	t.Cleanup(components.Cleanup)
	return components
}

// CreateTestUser creates an active user with the given role and returns it
// alongside a valid bearer token.
func CreateTestUser(t *testing.T, c *TestServerComponents, username, password string, role auth.Role) (*auth.User, string) {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &auth.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		Role:         role,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := c.Users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	session, err := auth.NewSession(user.ID, user.Role, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := c.Sessions.Create(context.Background(), session); err != nil {
		t.Fatalf("store session: %v", err)
	}

	token, err := c.Tokens.Mint(user, session)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return user, token
}

// AuthenticatedRequest creates an HTTP request with a bearer token.
func AuthenticatedRequest(t *testing.T, method, url, token string, body io.Reader) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// DoRequest executes a request and fails the test on transport errors.
func DoRequest(t *testing.T, client *http.Client, req *http.Request) *http.Response {
	t.Helper()
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// JSONBody marshals v into a reader suitable for a request body.
func JSONBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(data)
}

// ReadJSONResponse decodes a JSON response body into v and closes the body.
func ReadJSONResponse(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// URL joins the server base URL with a path.
func (c *TestServerComponents) URL(path string) string {
	return c.Server.URL + path
}

// HTTPClient returns a client that does not follow redirects, so SSO
// redirect responses can be inspected directly.
func (c *TestServerComponents) HTTPClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
