package storage

import (
	"time"

	"ssomgr/internal/domain"
)

// DefaultProviders returns the demo provider records seeded on first access
// to an empty collection. IDs are fixed so repeated seeding is idempotent.
func DefaultProviders() []domain.ProviderConfig {
	now := time.Now().UnixMilli()
	return []domain.ProviderConfig{
		{
			ID:          "1",
			Name:        "Google Workspace",
			Type:        domain.ProtocolOIDC,
			Logo:        "https://cdn.jsdelivr.net/gh/devicons/devicon/icons/google/google-original.svg",
			IsEnabled:   true,
			Description: "Corporate employee login",
			CreatedAt:   now,
			Config: map[string]string{
				"clientId":         "mock-google-client-id",
				"clientSecret":     "mock-google-secret",
				"issuer":           "https://accounts.google.com",
				"authorizationUrl": "https://accounts.google.com/o/oauth2/v2/auth",
				"tokenUrl":         "https://oauth2.googleapis.com/token",
				"scopes":           "openid profile email",
			},
		},
		{
			ID:          "2",
			Name:        "GitHub",
			Type:        domain.ProtocolOAuth2,
			Logo:        "https://cdn.jsdelivr.net/gh/devicons/devicon/icons/github/github-original.svg",
			IsEnabled:   true,
			Description: "Developer access",
			CreatedAt:   now,
			Config: map[string]string{
				"clientId":         "mock-github-id",
				"clientSecret":     "mock-github-secret",
				"authorizationUrl": "https://github.com/login/oauth/authorize",
				"tokenUrl":         "https://github.com/login/oauth/access_token",
				"userInfoUrl":      "https://api.github.com/user",
				"scopes":           "user:email",
			},
		},
		{
			ID:          "3",
			Name:        "Legacy CAS",
			Type:        domain.ProtocolCAS,
			Logo:        "https://cdn.jsdelivr.net/gh/devicons/devicon/icons/java/java-original.svg",
			IsEnabled:   false,
			Description: "Old intranet system",
			CreatedAt:   now,
			Config: map[string]string{
				"serverUrl":  "https://cas.example.com",
				"serviceUrl": "https://app.example.com/login/cas",
				"version":    "3.0",
			},
		},
	}
}
