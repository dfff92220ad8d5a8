package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// Token errors.
var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// TokenClaims are the claims carried by issued bearer tokens. The jti claim
// is the server-side session ID, so a revoked session invalidates the token
// even before its expiry.
type TokenClaims struct {
	jwt.Claims
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

// TokenIssuer mints and verifies HS256-signed bearer tokens.
type TokenIssuer struct {
	key    []byte
	issuer string
}

// NewTokenIssuer creates a TokenIssuer with the given signing secret.
func NewTokenIssuer(secret []byte, issuer string) *TokenIssuer {
	return &TokenIssuer{key: secret, issuer: issuer}
}

// Mint issues a signed bearer token bound to the session.
func (t *TokenIssuer) Mint(user *User, session *Session) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: t.key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("create signer: %w", err)
	}

	claims := TokenClaims{
		Claims: jwt.Claims{
			ID:       session.ID,
			Subject:  user.ID,
			Issuer:   t.issuer,
			IssuedAt: jwt.NewNumericDate(session.CreatedAt),
			Expiry:   jwt.NewNumericDate(session.ExpiresAt),
		},
		Username: user.Username,
		Email:    user.Email,
		Role:     string(user.Role),
	}

	raw, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return raw, nil
}

// Verify checks the token signature and expiry and returns its claims.
func (t *TokenIssuer) Verify(raw string) (*TokenClaims, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	var claims TokenClaims
	if err := tok.Claims(t.key, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Expiry != nil && claims.Expiry.Time().Before(time.Now()) {
		return nil, ErrTokenExpired
	}
	return &claims, nil
}

// DecodeUnverified extracts the claims from a token's payload segment
// without checking the signature. The SSO callback path uses it to populate
// a demo identity from whatever token the provider handed back; the result
// must never be treated as an authenticated principal on the server side.
func DecodeUnverified(raw string) (*TokenClaims, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256, jose.RS256, jose.ES256})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	var claims TokenClaims
	if err := tok.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return &claims, nil
}
