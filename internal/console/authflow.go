package console

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ssomgr/internal/auth"
	"ssomgr/internal/observability"
)

// AuthState is the authentication flow's current phase.
type AuthState int

const (
	// StateAnonymousIdle means no login is in progress or established.
	StateAnonymousIdle AuthState = iota
	// StateAuthenticating means a login attempt is in flight.
	StateAuthenticating
	// StateAuthenticated means a principal is established.
	StateAuthenticated
)

func (s AuthState) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// AuthFlow drives console logins: local credentials, SSO hand-off and SSO
// callback resumption. State transitions are explicit so callers can render
// the in-flight phase.
type AuthFlow struct {
	backend  Backend
	session  *SessionManager
	notifier *Notifier
	logger   observability.Logger
	state    AuthState
}

// NewAuthFlow creates an AuthFlow. The initial state reflects the restored
// session: a persisted user starts out authenticated.
func NewAuthFlow(backend Backend, session *SessionManager, notifier *Notifier, logger observability.Logger) *AuthFlow {
	if logger == nil {
		logger = observability.NewLogger(observability.DefaultConfig())
	}
	state := StateAnonymousIdle
	if session.IsAuthenticated() {
		state = StateAuthenticated
	}
	return &AuthFlow{
		backend:  backend,
		session:  session,
		notifier: notifier,
		logger:   logger.WithComponent("authflow"),
		state:    state,
	}
}

// State returns the flow's current phase.
func (f *AuthFlow) State() AuthState { return f.state }

// LoginWithCredentials runs the local-credential login path.
func (f *AuthFlow) LoginWithCredentials(ctx context.Context, username, password string) error {
	f.state = StateAuthenticating
	f.notifier.Info("signing in as %s", username)

	user, token, err := f.backend.Login(ctx, username, password)
	if err != nil {
		f.state = StateAnonymousIdle
		if errors.Is(err, ErrLoginFailed) {
			f.notifier.Error("invalid username or password")
			return ErrLoginFailed
		}
		f.notifier.Error("login failed: %v", err)
		return err
	}

	if err := f.session.Login(user, token); err != nil {
		f.state = StateAnonymousIdle
		return fmt.Errorf("persist session: %w", err)
	}

	f.state = StateAuthenticated
	f.notifier.Success("signed in as %s", user.Username)
	return nil
}

// ResumeFromCallback completes an SSO login from the callback token. The
// token payload is decoded without signature verification; the console has
// no signing key, and the server re-verifies the token on every API call.
// Missing identity fields are defaulted so a sparse token still yields a
// usable principal. A token that cannot be decoded leaves the flow anonymous.
func (f *AuthFlow) ResumeFromCallback(ctx context.Context, token string) error {
	f.state = StateAuthenticating

	claims, err := auth.DecodeUnverified(token)
	if err != nil {
		f.state = StateAnonymousIdle
		f.logger.Warn("sso callback token rejected", "error", err)
		f.notifier.Error("could not complete SSO login")
		return err
	}

	user := &auth.User{
		ID:           claims.Subject,
		Username:     claims.Username,
		Email:        claims.Email,
		Role:         auth.ParseRole(claims.Role),
		IsActive:     true,
		CreatedAt:    time.Now(),
		AuthProvider: "sso",
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Username == "" {
		user.Username = "sso-user"
	}
	if user.Email == "" {
		user.Email = user.Username + "@example.com"
	}

	if err := f.session.Login(user, token); err != nil {
		f.state = StateAnonymousIdle
		return fmt.Errorf("persist session: %w", err)
	}

	f.state = StateAuthenticated
	f.notifier.Success("signed in as %s via SSO", user.Username)
	return nil
}

// LoginWithDemoSSO establishes a fabricated SSO principal. The local demo
// backend has no identity provider to redirect through, so the flow skips
// straight to the signed-in state a real callback would produce.
func (f *AuthFlow) LoginWithDemoSSO(ctx context.Context, providerName string) error {
	f.state = StateAuthenticating

	user := &auth.User{
		ID:           uuid.New().String(),
		Username:     "sso-user",
		Email:        "sso-user@example.com",
		Role:         auth.RoleUser,
		IsActive:     true,
		CreatedAt:    time.Now(),
		AuthProvider: "sso",
	}
	if err := f.session.Login(user, ""); err != nil {
		f.state = StateAnonymousIdle
		return fmt.Errorf("persist session: %w", err)
	}

	f.state = StateAuthenticated
	f.notifier.Success("signed in as %s via %s", user.Username, providerName)
	return nil
}

// Logout ends the session locally and revokes it at the backend.
func (f *AuthFlow) Logout(ctx context.Context) error {
	if err := f.backend.Logout(ctx); err != nil {
		// Local state is cleared regardless; the server session will expire.
		f.logger.Warn("backend logout failed", "error", err)
	}
	if err := f.session.Logout(); err != nil {
		return err
	}
	f.state = StateAnonymousIdle
	f.notifier.Success("signed out")
	return nil
}
