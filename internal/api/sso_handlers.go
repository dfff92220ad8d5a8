package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"ssomgr/internal/auth"
	"ssomgr/internal/sso"
)

// handleSSOLogin redirects the browser to the external identity provider's
// login entry point for the given provider record. Unknown and disabled
// providers are both a 404: a disabled provider is not a login option.
func (s *Server) handleSSOLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	p, ok, err := s.store.Get(ctx, id)
	if err != nil {
		s.writeStoreErr(ctx, w, err)
		return
	}
	if !ok || !p.IsEnabled {
		s.writeErr(ctx, w, http.StatusNotFound, "provider not found", "")
		return
	}

	state := uuid.New().String()
	callback := s.baseURL + "/api/v1/auth/sso/callback"
	loginURL, err := sso.LoginURL(p, callback, state)
	if err != nil {
		s.writeErr(ctx, w, http.StatusUnprocessableEntity, "provider configuration incomplete", err.Error())
		return
	}

	s.logger.InfoContext(ctx, "sso redirect",
		"provider", p.Name,
		"type", string(p.Type),
	)
	http.Redirect(w, r, loginURL, http.StatusFound)
}

// handleSSOCallback completes the demo return leg of an SSO redirect. The
// identity provider's response is not validated (token exchange is out of
// scope); a user-role principal is minted so the rest of the console can be
// exercised end to end. The browser is sent on to the console callback URL
// with the token attached, or the token is returned as JSON when no console
// callback is configured.
func (s *Server) handleSSOCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		s.writeErr(ctx, w, http.StatusBadGateway, "identity provider returned an error", e)
		return
	}

	username := "sso-user"
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		s.writeErr(ctx, w, http.StatusInternalServerError, "internal error", err.Error())
		return
	}
	if user == nil {
		user = &auth.User{
			ID:           uuid.New().String(),
			Username:     username,
			Email:        username + "@example.com",
			Role:         auth.RoleUser,
			IsActive:     true,
			CreatedAt:    time.Now(),
			AuthProvider: "sso",
		}
		if err := s.users.Create(ctx, user); err != nil {
			s.writeErr(ctx, w, http.StatusInternalServerError, "internal error", err.Error())
			return
		}
	}

	session, err := auth.NewSession(user.ID, user.Role, s.sessionTTL)
	if err != nil {
		s.writeErr(ctx, w, http.StatusInternalServerError, "internal error", err.Error())
		return
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		s.writeErr(ctx, w, http.StatusInternalServerError, "internal error", err.Error())
		return
	}

	token, err := s.tokens.Mint(user, session)
	if err != nil {
		s.writeErr(ctx, w, http.StatusInternalServerError, "internal error", err.Error())
		return
	}

	s.logger.InfoContext(ctx, "sso callback completed", "username", user.Username)

	if s.consoleCallbackURL != "" {
		u, err := url.Parse(s.consoleCallbackURL)
		if err == nil {
			qs := u.Query()
			qs.Set("token", token)
			u.RawQuery = qs.Encode()
			http.Redirect(w, r, u.String(), http.StatusFound)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
