package domain

import "testing"

func TestProtocolTypeValid(t *testing.T) {
	for _, pt := range ProtocolTypes {
		if !pt.Valid() {
			t.Errorf("%s should be valid", pt)
		}
	}
	for _, s := range []ProtocolType{"", "LDAP", "oidc", "Saml2"} {
		if s.Valid() {
			t.Errorf("%q should not be valid", s)
		}
	}
}

func TestConfigKeysPerProtocol(t *testing.T) {
	for _, pt := range ProtocolTypes {
		keys := pt.ConfigKeys()
		if len(keys) == 0 {
			t.Errorf("%s has no advisory config keys", pt)
		}
		required := pt.RequiredConfigKeys()
		if len(required) == 0 {
			t.Errorf("%s has no required config keys", pt)
		}
		for _, req := range required {
			found := false
			for _, k := range keys {
				if k == req {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("%s required key %q missing from advisory keys", pt, req)
			}
		}
	}
	if ProtocolType("LDAP").ConfigKeys() != nil {
		t.Error("unknown protocol should have no config keys")
	}
}

func TestProviderConfigClone(t *testing.T) {
	p := ProviderConfig{
		ID:     "1",
		Name:   "Test",
		Type:   ProtocolOIDC,
		Config: map[string]string{"clientId": "a"},
	}
	cpy := p.Clone()
	cpy.Config["clientId"] = "b"
	if p.Config["clientId"] != "a" {
		t.Error("Clone shares the config map")
	}

	var empty ProviderConfig
	if empty.Clone().Config != nil {
		t.Error("Clone of nil config should stay nil")
	}
}

func TestComputeStats(t *testing.T) {
	providers := []ProviderConfig{
		{Type: ProtocolOIDC, IsEnabled: true},
		{Type: ProtocolOIDC, IsEnabled: false},
		{Type: ProtocolCAS, IsEnabled: true},
	}
	stats := ComputeStats(providers)
	if stats.TotalProviders != 3 {
		t.Errorf("TotalProviders = %d", stats.TotalProviders)
	}
	if stats.ActiveProviders != 2 {
		t.Errorf("ActiveProviders = %d", stats.ActiveProviders)
	}
	if stats.ProtocolStats["OIDC"] != 2 || stats.ProtocolStats["CAS"] != 1 {
		t.Errorf("ProtocolStats = %v", stats.ProtocolStats)
	}

	empty := ComputeStats(nil)
	if empty.ProtocolStats == nil {
		t.Error("ProtocolStats must be non-nil for an empty collection")
	}
}
