// Package audit records auditable actions in the SSO manager.
// Events cover provider mutations and authentication activity.
package audit

import (
	"context"
	"time"
)

// Event represents a single auditable action in the system.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Actor        string    `json:"actor"`     // username or "anonymous"
	ActorType    string    `json:"actorType"` // "user" or "anonymous"
	Action       string    `json:"action"`
	ResourceType string    `json:"resourceType"`
	ResourceID   string    `json:"resourceId,omitempty"`
	ResourceName string    `json:"resourceName,omitempty"`
	Changes      *Changes  `json:"changes,omitempty"` // before/after for updates
	RequestID    string    `json:"requestId,omitempty"`
	IPAddress    string    `json:"ipAddress,omitempty"`
	StatusCode   int       `json:"statusCode"`
}

// Changes captures the before and after state for update operations.
type Changes struct {
	Before map[string]any `json:"before,omitempty"`
	After  map[string]any `json:"after,omitempty"`
}

// ListOptions provides filtering and pagination options for listing events.
type ListOptions struct {
	Limit        int
	Offset       int
	Actor        string
	Action       string
	ResourceType string
	Since        *time.Time
	Until        *time.Time
}

// Logger defines the interface for audit logging operations.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, event *Event) error

	// List retrieves audit events with optional filtering.
	List(ctx context.Context, opts ListOptions) ([]*Event, int, error)

	// GetByResource retrieves audit events for a specific resource.
	GetByResource(ctx context.Context, resourceType, resourceID string) ([]*Event, error)
}

// Valid actions for audit events.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionLogin  = "login"
	ActionLogout = "logout"
)

// Valid resource types for audit events.
const (
	ResourceProvider = "provider"
	ResourceSession  = "session"
)

// Valid actor types.
const (
	ActorTypeUser      = "user"
	ActorTypeAnonymous = "anonymous"
)
