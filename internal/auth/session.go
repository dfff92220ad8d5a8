package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// Session errors.
var (
	// ErrSessionNotFound indicates the session was not found.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired indicates the session has expired.
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidSession indicates the session is invalid.
	ErrInvalidSession = errors.New("invalid session")
)

// DefaultSessionDuration is the default session lifetime, matching the
// 24-hour expiry of issued tokens.
const DefaultSessionDuration = 24 * time.Hour

// sessionIDLength is the number of random bytes used for session IDs.
const sessionIDLength = 32

// Session represents a server-side login session. Its ID doubles as the
// token identifier (jti) embedded in the bearer token, so revoking the
// session invalidates the token.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsValid returns true if the session is not expired and has required fields.
func (s *Session) IsValid() bool {
	return s.ID != "" && s.UserID != "" && !s.IsExpired()
}

// SessionStore defines the interface for session persistence.
type SessionStore interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// Get retrieves a session by its ID.
	// Returns nil, nil if not found.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session by its ID.
	Delete(ctx context.Context, id string) error

	// DeleteByUserID removes all sessions for a specific user.
	DeleteByUserID(ctx context.Context, userID string) error

	// Cleanup removes all expired sessions.
	// Returns the number of sessions removed.
	Cleanup(ctx context.Context) (int, error)
}

// MemorySessionStore is an in-memory implementation of SessionStore.
// It is thread-safe and suitable for single-instance deployments.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session // keyed by session ID

	// userIndex maps user ID to session IDs for fast revocation
	userIndex map[string]map[string]struct{}
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions:  make(map[string]*Session),
		userIndex: make(map[string]map[string]struct{}),
	}
}

func (s *MemorySessionStore) Create(_ context.Context, session *Session) error {
	if session == nil || session.ID == "" || session.UserID == "" {
		return ErrInvalidSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return ErrInvalidSession
	}

	cpy := *session
	s.sessions[session.ID] = &cpy

	if s.userIndex[session.UserID] == nil {
		s.userIndex[session.UserID] = make(map[string]struct{})
	}
	s.userIndex[session.UserID][session.ID] = struct{}{}
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}

	s.mu.RLock()
	session, exists := s.sessions[id]
	s.mu.RUnlock()

	if !exists {
		return nil, nil
	}
	if session.IsExpired() {
		return nil, ErrSessionExpired
	}
	cpy := *session
	return &cpy, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	if id == "" {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[id]
	if !exists {
		return ErrSessionNotFound
	}

	s.removeFromUserIndexLocked(session.UserID, id)
	delete(s.sessions, id)
	return nil
}

func (s *MemorySessionStore) DeleteByUserID(_ context.Context, userID string) error {
	if userID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for sessionID := range s.userIndex[userID] {
		delete(s.sessions, sessionID)
	}
	delete(s.userIndex, userID)
	return nil
}

func (s *MemorySessionStore) Cleanup(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	now := time.Now()
	for id, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			s.removeFromUserIndexLocked(session.UserID, id)
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}

// Count returns the total number of sessions in the store.
// This is primarily for testing and monitoring.
func (s *MemorySessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemorySessionStore) removeFromUserIndexLocked(userID, sessionID string) {
	if s.userIndex[userID] == nil {
		return
	}
	delete(s.userIndex[userID], sessionID)
	if len(s.userIndex[userID]) == 0 {
		delete(s.userIndex, userID)
	}
}

// GenerateSessionID generates a cryptographically secure session ID.
func GenerateSessionID() (string, error) {
	bytes := make([]byte, sessionIDLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// NewSession creates a Session for the user with a fresh random ID and the
// given lifetime (DefaultSessionDuration when non-positive).
func NewSession(userID string, role Role, duration time.Duration) (*Session, error) {
	id, err := GenerateSessionID()
	if err != nil {
		return nil, err
	}
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
	}, nil
}
