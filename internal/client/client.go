// Package client is the HTTP client for the provider management API.
//
// It presents the same operations as the local data layer so the console can
// switch between the two without touching call sites. Read operations degrade
// gracefully: a failed list yields an empty collection and a failed lookup
// yields a miss, while mutations surface their errors to the caller.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ssomgr/internal/auth"
	"ssomgr/internal/domain"
	"ssomgr/internal/observability"
)

// TokenSource supplies the current bearer token, or "" when logged out.
type TokenSource func() string

// Client handles HTTP communication with the management API.
type Client struct {
	baseURL string
	token   TokenSource
	client  *http.Client
	logger  observability.Logger
}

// New creates a Client for the API at baseURL.
func New(baseURL string, token TokenSource, timeout time.Duration, logger observability.Logger) *Client {
	if logger == nil {
		logger = observability.NewLogger(observability.DefaultConfig())
	}
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type apiErrorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t := c.token(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil && resp.StatusCode != http.StatusNoContent {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return resp.StatusCode, fmt.Errorf("decode response: %w", err)
			}
		}
		return resp.StatusCode, nil
	}

	var errBody apiErrorBody
	_ = json.NewDecoder(resp.Body).Decode(&errBody)
	return resp.StatusCode, fmt.Errorf("%s %s failed (status %d): %s %s", method, path, resp.StatusCode, errBody.Error, errBody.Detail)
}

// LoginResult is the response to a successful login.
type LoginResult struct {
	User  *auth.User `json:"user"`
	Token string     `json:"token"`
}

// Login exchanges credentials for a bearer token. It returns nil on any
// failure; bad credentials and transport errors are both a failed login.
func (c *Client) Login(ctx context.Context, username, password string) *LoginResult {
	var result LoginResult
	req := map[string]string{"username": username, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", req, &result); err != nil {
		c.logger.WarnContext(ctx, "login request failed", "error", err)
		return nil
	}
	if result.Token == "" {
		return nil
	}
	return &result
}

// Logout revokes the current session server-side.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil)
	return err
}

// Me returns the authenticated user, or nil when the token is not accepted.
func (c *Client) Me(ctx context.Context) *auth.User {
	var user auth.User
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, &user); err != nil {
		return nil
	}
	return &user
}

// ListProviders returns all provider records. On failure it returns an empty
// slice so views render an empty collection rather than erroring.
func (c *Client) ListProviders(ctx context.Context) []domain.ProviderConfig {
	var providers []domain.ProviderConfig
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/providers", nil, &providers); err != nil {
		c.logger.WarnContext(ctx, "list providers failed", "error", err)
		return []domain.ProviderConfig{}
	}
	if providers == nil {
		providers = []domain.ProviderConfig{}
	}
	return providers
}

// GetProvider looks up a single provider. A failed or missing lookup is a
// miss, not an error.
func (c *Client) GetProvider(ctx context.Context, id string) *domain.ProviderConfig {
	var p domain.ProviderConfig
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/providers/"+id, nil, &p); err != nil {
		return nil
	}
	return &p
}

// CreateProvider creates a provider record.
func (c *Client) CreateProvider(ctx context.Context, in domain.CreateProvider) (*domain.ProviderConfig, error) {
	var created domain.ProviderConfig
	if _, err := c.do(ctx, http.MethodPost, "/api/v1/providers", in, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateProvider applies a partial update to a provider record.
func (c *Client) UpdateProvider(ctx context.Context, id string, in domain.UpdateProvider) (*domain.ProviderConfig, error) {
	var updated domain.ProviderConfig
	if _, err := c.do(ctx, http.MethodPut, "/api/v1/providers/"+id, in, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteProvider removes a provider record.
func (c *Client) DeleteProvider(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/providers/"+id, nil, nil)
	return err
}

// Stats fetches dashboard statistics. On failure it returns zeroed stats.
func (c *Client) Stats(ctx context.Context) domain.DashboardStats {
	var stats domain.DashboardStats
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/dashboard/stats", nil, &stats); err != nil {
		c.logger.WarnContext(ctx, "stats request failed", "error", err)
		return domain.DashboardStats{ProtocolStats: map[string]int{}}
	}
	if stats.ProtocolStats == nil {
		stats.ProtocolStats = map[string]int{}
	}
	return stats
}

// SSOLoginURL returns the server endpoint that starts an SSO login for the
// given provider. The browser is sent here; the server answers with a
// redirect to the external identity provider.
func (c *Client) SSOLoginURL(providerID string) string {
	return c.baseURL + "/api/v1/auth/sso/login/" + providerID
}
