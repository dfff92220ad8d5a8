// Package auth provides users, sessions and bearer tokens for the SSO manager.
package auth

import (
	"errors"
	"strings"
	"time"
)

// User errors.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrInvalidPassword = errors.New("invalid password")
	ErrUserDisabled    = errors.New("user account is disabled")
)

// Role represents a user role. Only admins may reach the management surface;
// any authenticated user may reach the user dashboard.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"

	// RoleNone represents no role (unauthenticated or unknown).
	RoleNone Role = ""
)

// ParseRole normalizes a role string, defaulting unknown values to RoleUser.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "user":
		return RoleUser
	}
	return RoleUser
}

// User represents an authenticated principal.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email,omitempty"`
	DisplayName  string     `json:"display_name,omitempty"`
	Role         Role       `json:"role"`
	PasswordHash []byte     `json:"-"` // bcrypt hash, never serialized
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	// AuthProvider records how the user authenticated: "local" or the
	// protocol type of the SSO provider used ("OIDC", "SAML2", ...).
	AuthProvider string `json:"auth_provider,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// copyUser creates a deep copy of a User.
func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	cpy := *u
	if u.PasswordHash != nil {
		cpy.PasswordHash = make([]byte, len(u.PasswordHash))
		copy(cpy.PasswordHash, u.PasswordHash)
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		cpy.LastLoginAt = &t
	}
	return &cpy
}
