package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxEvents is the default maximum number of events to store.
const DefaultMaxEvents = 10000

// MemoryLogger is an in-memory implementation of Logger.
// Events are held newest first; the buffer is bounded to prevent
// unbounded growth.
type MemoryLogger struct {
	mu        sync.RWMutex
	events    []*Event
	maxEvents int
}

// MemoryLoggerOption configures a MemoryLogger.
type MemoryLoggerOption func(*MemoryLogger)

// WithMaxEvents sets the maximum number of events to store.
func WithMaxEvents(max int) MemoryLoggerOption {
	return func(m *MemoryLogger) {
		if max > 0 {
			m.maxEvents = max
		}
	}
}

// NewMemoryLogger creates a new in-memory audit logger.
func NewMemoryLogger(opts ...MemoryLoggerOption) *MemoryLogger {
	m := &MemoryLogger{
		events:    make([]*Event, 0),
		maxEvents: DefaultMaxEvents,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Log records an audit event.
func (m *MemoryLogger) Log(ctx context.Context, event *Event) error {
	if event == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	// Store a copy to prevent external modification.
	m.events = append([]*Event{copyEvent(event)}, m.events...)

	if len(m.events) > m.maxEvents {
		m.events = m.events[:m.maxEvents]
	}

	return nil
}

// List retrieves audit events with optional filtering.
// Returns the filtered events, total count, and any error.
func (m *MemoryLogger) List(ctx context.Context, opts ListOptions) ([]*Event, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var filtered []*Event
	for _, e := range m.events {
		if !matchesFilters(e, opts) {
			continue
		}
		filtered = append(filtered, e)
	}

	total := len(filtered)

	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Limit > 1000 {
		opts.Limit = 1000
	}

	start := opts.Offset
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + opts.Limit
	if end > len(filtered) {
		end = len(filtered)
	}

	result := filtered[start:end]
	copies := make([]*Event, len(result))
	for i, e := range result {
		copies[i] = copyEvent(e)
	}

	return copies, total, nil
}

// GetByResource retrieves audit events for a specific resource.
func (m *MemoryLogger) GetByResource(ctx context.Context, resourceType, resourceID string) ([]*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Event
	for _, e := range m.events {
		if e.ResourceType == resourceType && e.ResourceID == resourceID {
			result = append(result, copyEvent(e))
		}
	}

	return result, nil
}

func matchesFilters(e *Event, opts ListOptions) bool {
	if opts.Actor != "" && e.Actor != opts.Actor {
		return false
	}
	if opts.Action != "" && e.Action != opts.Action {
		return false
	}
	if opts.ResourceType != "" && e.ResourceType != opts.ResourceType {
		return false
	}
	if opts.Since != nil && e.Timestamp.Before(*opts.Since) {
		return false
	}
	if opts.Until != nil && e.Timestamp.After(*opts.Until) {
		return false
	}
	return true
}

func copyEvent(e *Event) *Event {
	if e == nil {
		return nil
	}
	cpy := *e
	if e.Changes != nil {
		cpy.Changes = &Changes{
			Before: copyMap(e.Changes.Before),
			After:  copyMap(e.Changes.After),
		}
	}
	return &cpy
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = v
	}
	return cpy
}
