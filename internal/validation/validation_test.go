package validation

import (
	"errors"
	"strings"
	"testing"

	"ssomgr/internal/domain"
)

func TestValidateProvider(t *testing.T) {
	valid := domain.ProviderConfig{
		Name: "Okta",
		Type: domain.ProtocolOIDC,
		Config: map[string]string{
			"clientId":         "abc",
			"authorizationUrl": "https://okta.example.com/authorize",
		},
	}

	tests := []struct {
		name     string
		mutate   func(*domain.ProviderConfig)
		wantErr  error
		wantNone bool
	}{
		{name: "valid provider", mutate: func(p *domain.ProviderConfig) {}, wantNone: true},
		{name: "empty name", mutate: func(p *domain.ProviderConfig) { p.Name = "" }, wantErr: ErrEmptyValue},
		{name: "whitespace name", mutate: func(p *domain.ProviderConfig) { p.Name = "   " }, wantErr: ErrEmptyValue},
		{name: "name too long", mutate: func(p *domain.ProviderConfig) { p.Name = strings.Repeat("x", MaxNameLength+1) }, wantErr: ErrTooLong},
		{name: "unknown type", mutate: func(p *domain.ProviderConfig) { p.Type = "KERBEROS" }, wantErr: ErrUnknownType},
		{name: "description too long", mutate: func(p *domain.ProviderConfig) { p.Description = strings.Repeat("x", MaxDescriptionLength+1) }, wantErr: ErrTooLong},
		{name: "missing clientId", mutate: func(p *domain.ProviderConfig) { delete(p.Config, "clientId") }, wantErr: ErrMissingConfig},
		{name: "blank authorizationUrl", mutate: func(p *domain.ProviderConfig) { p.Config["authorizationUrl"] = " " }, wantErr: ErrMissingConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid.Clone()
			tt.mutate(&p)
			errs := ValidateProvider(p)
			if tt.wantNone {
				if len(errs) != 0 {
					t.Fatalf("expected no errors, got %v", errs)
				}
				return
			}
			if len(errs) == 0 {
				t.Fatal("expected validation errors, got none")
			}
			found := false
			for _, e := range errs {
				if errors.Is(e, tt.wantErr) {
					found = true
				}
			}
			if !found {
				t.Errorf("expected an error wrapping %v, got %v", tt.wantErr, errs)
			}
		})
	}
}

func TestValidateProviderCollectsAllErrors(t *testing.T) {
	p := domain.ProviderConfig{Name: "", Type: "BOGUS"}
	errs := ValidateProvider(p)
	if len(errs) < 2 {
		t.Fatalf("expected at least 2 errors, got %d: %v", len(errs), errs)
	}
}

func TestValidateProviderRequiredKeysPerType(t *testing.T) {
	tests := []struct {
		typ    domain.ProtocolType
		config map[string]string
		ok     bool
	}{
		{domain.ProtocolSAML2, map[string]string{"entryPoint": "https://idp.example.com/sso"}, true},
		{domain.ProtocolSAML2, map[string]string{}, false},
		{domain.ProtocolCAS, map[string]string{"serverUrl": "https://cas.example.com/cas", "serviceUrl": "https://app.example.com"}, true},
		{domain.ProtocolCAS, map[string]string{"serverUrl": "https://cas.example.com/cas"}, false},
		{domain.ProtocolOAuth2, map[string]string{"clientId": "id", "authorizationUrl": "https://x/auth"}, true},
	}
	for _, tt := range tests {
		p := domain.ProviderConfig{Name: "p", Type: tt.typ, Config: tt.config}
		errs := ValidateProvider(p)
		if tt.ok && len(errs) != 0 {
			t.Errorf("%s with %v: unexpected errors %v", tt.typ, tt.config, errs)
		}
		if !tt.ok && len(errs) == 0 {
			t.Errorf("%s with %v: expected errors, got none", tt.typ, tt.config)
		}
	}
}

func TestFieldErrorUnwrap(t *testing.T) {
	fe := &FieldError{Field: "name", Err: ErrEmptyValue}
	if !errors.Is(fe, ErrEmptyValue) {
		t.Error("FieldError should unwrap to its sentinel")
	}
	if !strings.Contains(fe.Error(), "name") {
		t.Errorf("error string should name the field, got %q", fe.Error())
	}
}

func TestJoin(t *testing.T) {
	if Join(nil) != nil {
		t.Error("Join(nil) should be nil")
	}
	err := Join([]error{
		&FieldError{Field: "name", Err: ErrEmptyValue},
		&FieldError{Field: "type", Err: ErrUnknownType},
	})
	if err == nil {
		t.Fatal("expected a joined error")
	}
	if !strings.Contains(err.Error(), "name") || !strings.Contains(err.Error(), "type") {
		t.Errorf("joined error should mention both fields, got %q", err.Error())
	}
}
