// Package console implements the admin console: its session state, the
// dual-mode data backend, the authentication flow and the provider
// management flows.
package console

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ssomgr/internal/auth"
	"ssomgr/internal/observability"
)

// SessionState is the persisted console session.
type SessionState struct {
	User    *auth.User `json:"user,omitempty"`
	Token   string     `json:"token,omitempty"`
	SavedAt time.Time  `json:"savedAt"`
}

// SessionManager owns the console's current principal. State survives
// between command invocations as a JSON file; all reads of the current user
// go through this type.
type SessionManager struct {
	mu      sync.Mutex
	path    string
	current SessionState
	logger  observability.Logger
}

// NewSessionManager creates a SessionManager persisting to the given file.
func NewSessionManager(path string, logger observability.Logger) *SessionManager {
	if logger == nil {
		logger = observability.NewLogger(observability.DefaultConfig())
	}
	return &SessionManager{path: path, logger: logger.WithComponent("session")}
}

// Restore loads persisted session state. A missing file means anonymous.
// Corrupted state is discarded and the file removed, so one bad write cannot
// wedge every subsequent command.
func (m *SessionManager) Restore() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		m.current = SessionState{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session file: %w", err)
	}

	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		m.logger.Warn("discarding corrupted session state", "path", m.path, "error", err)
		m.current = SessionState{}
		_ = os.Remove(m.path)
		return nil
	}

	m.current = state
	return nil
}

// Login stores the authenticated user and token and persists them.
func (m *SessionManager) Login(user *auth.User, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = SessionState{User: user, Token: token, SavedAt: time.Now()}
	return m.persistLocked()
}

// Logout clears the session and removes the persisted state.
func (m *SessionManager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = SessionState{}
	if err := os.Remove(m.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// User returns the current user, or nil when anonymous.
func (m *SessionManager) User() *auth.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.User
}

// Token returns the current bearer token, or "" when anonymous.
func (m *SessionManager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Token
}

// AuthHeader returns the Authorization header value, or "" when anonymous.
func (m *SessionManager) AuthHeader() string {
	if t := m.Token(); t != "" {
		return "Bearer " + t
	}
	return ""
}

// IsAuthenticated reports whether a user is logged in.
func (m *SessionManager) IsAuthenticated() bool {
	return m.User() != nil
}

func (m *SessionManager) persistLocked() error {
	data, err := json.MarshalIndent(m.current, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
