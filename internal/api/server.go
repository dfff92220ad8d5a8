// Package api implements the HTTP management API for the SSO manager.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"ssomgr/internal/audit"
	"ssomgr/internal/auth"
	"ssomgr/internal/observability"
	"ssomgr/internal/storage"
)

type apiError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Server serves the provider management API.
type Server struct {
	mux         *http.ServeMux
	store       storage.ProviderStore
	users       auth.UserStore
	sessions    auth.SessionStore
	tokens      *auth.TokenIssuer
	logger      observability.Logger
	metrics     *observability.Metrics
	auditLogger audit.Logger

	// baseURL is the externally visible base of this server, used to build
	// SSO callback URLs.
	baseURL string
	// consoleCallbackURL, when set, is where the SSO callback sends the
	// browser with the minted token attached.
	consoleCallbackURL string
	// sessionTTL is the lifetime of sessions minted by login and the SSO
	// callback.
	sessionTTL time.Duration
}

// NewServer creates a new HTTP server with the given dependencies.
// If logger is nil, a default logger will be used.
// If metrics is nil, metrics collection is disabled.
// If auditLogger is nil, a memory-based audit logger will be used.
func NewServer(mux *http.ServeMux, store storage.ProviderStore, users auth.UserStore, sessions auth.SessionStore, tokens *auth.TokenIssuer, logger observability.Logger, metrics *observability.Metrics, auditLogger audit.Logger) *Server {
	if logger == nil {
		logger = observability.NewLogger(observability.DefaultConfig())
	}
	if auditLogger == nil {
		auditLogger = audit.NewMemoryLogger()
	}
	return &Server{
		mux:         mux,
		store:       store,
		users:       users,
		sessions:    sessions,
		tokens:      tokens,
		logger:      logger,
		metrics:     metrics,
		auditLogger: auditLogger,
		sessionTTL:  auth.DefaultSessionDuration,
	}
}

// SetBaseURL sets the externally visible base URL used for SSO callbacks.
func (s *Server) SetBaseURL(u string) { s.baseURL = u }

// SetConsoleCallbackURL sets where the SSO callback redirects the browser
// after minting a token. Empty means the token is returned as JSON.
func (s *Server) SetConsoleCallbackURL(u string) { s.consoleCallbackURL = u }

// SetSessionTTL overrides the default session lifetime. Non-positive values
// are ignored.
func (s *Server) SetSessionTTL(d time.Duration) {
	if d > 0 {
		s.sessionTTL = d
	}
}

func (s *Server) writeErr(ctx context.Context, w http.ResponseWriter, code int, msg string, detail string) {
	fields := []any{
		"status", code,
		"error", msg,
	}
	if detail != "" {
		fields = append(fields, "detail", detail)
	}
	if code >= 500 {
		s.logger.ErrorContext(ctx, "request failed", fields...)
		sentry.CaptureMessage(fmt.Sprintf("HTTP %d: %s (detail: %s)", code, msg, detail))
	} else {
		s.logger.WarnContext(ctx, "request failed", fields...)
	}
	writeJSON(w, code, apiError{Error: msg, Detail: detail})
}

// writeStoreErr maps a storage-layer error to the appropriate HTTP status code
// and writes the error response. It uses errors.Is() to detect sentinel errors
// from the storage package, falling back to 500 Internal Server Error.
func (s *Server) writeStoreErr(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeErr(ctx, w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, storage.ErrConflict):
		s.writeErr(ctx, w, http.StatusConflict, err.Error(), "")
	case errors.Is(err, storage.ErrValidation):
		s.writeErr(ctx, w, http.StatusBadRequest, err.Error(), "")
	default:
		s.writeErr(ctx, w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

// logAudit logs an audit event for mutating operations.
func (s *Server) logAudit(ctx context.Context, action, resourceType, resourceID, resourceName string, statusCode int) {
	if s.auditLogger == nil {
		return
	}

	actor := "anonymous"
	actorType := audit.ActorTypeAnonymous
	if user := auth.UserFromContext(ctx); user != nil {
		actor = user.Username
		actorType = audit.ActorTypeUser
	}

	event := &audit.Event{
		Actor:        actor,
		ActorType:    actorType,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ResourceName: resourceName,
		StatusCode:   statusCode,
		RequestID:    observability.RequestIDFromContext(ctx),
	}
	_ = s.auditLogger.Log(ctx, event)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) { s.status = code; s.ResponseWriter.WriteHeader(code) }

// RegisterRoutes registers all HTTP routes. Health, readiness, metrics, login
// and the SSO entry points are public; provider management and the dashboard
// require a bearer token, and mutations require the admin role.
func (s *Server) RegisterRoutes(loginRL Middleware) {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/readyz", s.handleReady)
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics.Handler())
	}

	login := http.HandlerFunc(s.handleLogin)
	if loginRL != nil {
		s.mux.Handle("POST /api/v1/auth/login", loginRL(login))
	} else {
		s.mux.Handle("POST /api/v1/auth/login", login)
	}

	authMW := s.BearerAuthMiddleware(true)
	adminMW := RequireAdminMiddleware(s.logger)

	s.mux.Handle("POST /api/v1/auth/logout", authMW(http.HandlerFunc(s.handleLogout)))
	s.mux.Handle("GET /api/v1/auth/me", authMW(http.HandlerFunc(s.handleMe)))

	s.mux.Handle("GET /api/v1/providers", authMW(http.HandlerFunc(s.handleProvidersList)))
	s.mux.Handle("POST /api/v1/providers", authMW(adminMW(http.HandlerFunc(s.handleProviderCreate))))
	s.mux.Handle("GET /api/v1/providers/{id}", authMW(http.HandlerFunc(s.handleProviderGet)))
	s.mux.Handle("PUT /api/v1/providers/{id}", authMW(adminMW(http.HandlerFunc(s.handleProviderUpdate))))
	s.mux.Handle("DELETE /api/v1/providers/{id}", authMW(adminMW(http.HandlerFunc(s.handleProviderDelete))))

	s.mux.Handle("GET /api/v1/dashboard/stats", authMW(http.HandlerFunc(s.handleStats)))
	s.mux.Handle("GET /api/v1/audit", authMW(adminMW(http.HandlerFunc(s.handleAuditList))))

	// SSO entry points are reachable unauthenticated: the browser is being
	// handed off to an external identity provider.
	s.mux.HandleFunc("GET /api/v1/auth/sso/login/{id}", s.handleSSOLogin)
	s.mux.HandleFunc("GET /api/v1/auth/sso/callback", s.handleSSOCallback)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Stats(r.Context()); err != nil {
		s.writeErr(r.Context(), w, http.StatusServiceUnavailable, "store not ready", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
