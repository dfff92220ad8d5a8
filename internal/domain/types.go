// Package domain defines the core data model for the SSO manager.
package domain

// ProtocolType identifies the authentication protocol family a provider
// speaks. It is a closed enumeration; Valid reports membership.
type ProtocolType string

const (
	ProtocolOIDC   ProtocolType = "OIDC"
	ProtocolOAuth2 ProtocolType = "OAUTH2"
	ProtocolSAML2  ProtocolType = "SAML2"
	ProtocolCAS    ProtocolType = "CAS"
)

// ProtocolTypes lists all valid protocol types in display order.
var ProtocolTypes = []ProtocolType{ProtocolOIDC, ProtocolOAuth2, ProtocolSAML2, ProtocolCAS}

// Valid reports whether t is one of the enumerated protocol types.
func (t ProtocolType) Valid() bool {
	switch t {
	case ProtocolOIDC, ProtocolOAuth2, ProtocolSAML2, ProtocolCAS:
		return true
	}
	return false
}

// ConfigKeys returns the advisory configuration keys expected for the
// protocol. Keys are advisory only: stores accept any mapping and tolerate
// extra or missing keys silently.
func (t ProtocolType) ConfigKeys() []string {
	switch t {
	case ProtocolOIDC:
		return []string{"clientId", "clientSecret", "issuer", "authorizationUrl", "tokenUrl", "userInfoUrl", "scopes"}
	case ProtocolOAuth2:
		return []string{"clientId", "clientSecret", "authorizationUrl", "tokenUrl", "userInfoUrl", "scopes"}
	case ProtocolSAML2:
		return []string{"issuer", "entryPoint", "cert"}
	case ProtocolCAS:
		return []string{"serverUrl", "serviceUrl", "version"}
	}
	return nil
}

// RequiredConfigKeys returns the subset of ConfigKeys that must be present
// for a provider of this type to be usable for login redirects.
func (t ProtocolType) RequiredConfigKeys() []string {
	switch t {
	case ProtocolOIDC, ProtocolOAuth2:
		return []string{"clientId", "authorizationUrl"}
	case ProtocolSAML2:
		return []string{"entryPoint"}
	case ProtocolCAS:
		return []string{"serverUrl", "serviceUrl"}
	}
	return nil
}

// ProviderConfig is an identity-provider connection record.
//
// JSON tags follow the wire format of the management API (camelCase).
// Config is an open string-to-string mapping whose meaningful keys depend on
// Type; no schema is enforced on it.
type ProviderConfig struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        ProtocolType      `json:"type"`
	Logo        string            `json:"logo"`
	IsEnabled   bool              `json:"isEnabled"`
	Description string            `json:"description,omitempty"`
	Config      map[string]string `json:"config"`
	// CreatedAt is epoch milliseconds, set once at creation and never mutated.
	CreatedAt int64 `json:"createdAt"`
}

// Clone returns a deep copy of the provider record.
func (p ProviderConfig) Clone() ProviderConfig {
	cpy := p
	if p.Config != nil {
		cpy.Config = make(map[string]string, len(p.Config))
		for k, v := range p.Config {
			cpy.Config[k] = v
		}
	}
	return cpy
}

// CreateProvider is the input for creating a provider. ID and CreatedAt are
// assigned by the store.
type CreateProvider struct {
	Name        string            `json:"name"`
	Type        ProtocolType      `json:"type"`
	Logo        string            `json:"logo"`
	IsEnabled   bool              `json:"isEnabled"`
	Description string            `json:"description,omitempty"`
	Config      map[string]string `json:"config"`
}

// UpdateProvider is the input for updating a provider. Nil fields are left
// unchanged; ID and CreatedAt are immutable.
type UpdateProvider struct {
	Name        *string            `json:"name,omitempty"`
	Type        *ProtocolType      `json:"type,omitempty"`
	Logo        *string            `json:"logo,omitempty"`
	IsEnabled   *bool              `json:"isEnabled,omitempty"`
	Description *string            `json:"description,omitempty"`
	Config      *map[string]string `json:"config,omitempty"`
}

// DashboardStats summarizes the provider collection for the dashboard view.
type DashboardStats struct {
	TotalProviders  int            `json:"totalProviders"`
	ActiveProviders int            `json:"activeProviders"`
	ProtocolStats   map[string]int `json:"protocolStats"`
}

// ComputeStats derives dashboard statistics from a provider list.
func ComputeStats(providers []ProviderConfig) DashboardStats {
	stats := DashboardStats{ProtocolStats: make(map[string]int)}
	for _, p := range providers {
		stats.TotalProviders++
		if p.IsEnabled {
			stats.ActiveProviders++
		}
		stats.ProtocolStats[string(p.Type)]++
	}
	return stats
}
