package api

import (
	"net/http"
	"time"

	"ssomgr/internal/audit"
	"ssomgr/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  *auth.User `json:"user"`
	Token string     `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(ctx, w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		s.writeErr(ctx, w, http.StatusBadRequest, "username and password are required", "")
		return
	}

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		s.writeErr(ctx, w, http.StatusInternalServerError, "internal error", err.Error())
		return
	}
	// Same response whether the user is missing or the password is wrong.
	if user == nil || !user.IsActive || auth.VerifyPassword(req.Password, user.PasswordHash) != nil {
		if s.metrics != nil {
			s.metrics.RecordLogin(false)
		}
		s.logger.WarnContext(ctx, "login failed", "username", req.Username)
		s.writeErr(ctx, w, http.StatusUnauthorized, "invalid credentials", "")
		return
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

	_ = s.users.UpdateLastLogin(ctx, user.ID, time.Now())
	if s.metrics != nil {
		s.metrics.RecordLogin(true)
	}

	actorCtx := auth.ContextWithUser(ctx, user)
	s.logAudit(actorCtx, audit.ActionLogin, audit.ResourceSession, session.ID, user.Username, http.StatusOK)
	s.logger.InfoContext(ctx, "login succeeded", "username", user.Username)

	sanitized := *user
	sanitized.PasswordHash = nil
	writeJSON(w, http.StatusOK, loginResponse{User: &sanitized, Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session := auth.SessionFromContext(ctx)
	if session == nil {
		s.writeErr(ctx, w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		s.writeErr(ctx, w, http.StatusInternalServerError, "internal error", err.Error())
		return
	}

	username := ""
	if user := auth.UserFromContext(ctx); user != nil {
		username = user.Username
	}
	s.logAudit(ctx, audit.ActionLogout, audit.ResourceSession, session.ID, username, http.StatusOK)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user := auth.UserFromContext(ctx)
	if user == nil {
		s.writeErr(ctx, w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	sanitized := *user
	sanitized.PasswordHash = nil
	writeJSON(w, http.StatusOK, &sanitized)
}
