// Package storage provides persistence for identity-provider configuration
// records.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ssomgr/internal/domain"
)

// ProviderStore is the storage interface for provider configuration records.
//
// All mutation of the provider collection funnels through this interface;
// no other component writes provider state directly.
type ProviderStore interface {
	// List returns all provider records. On first access to an empty
	// collection it seeds and returns the default demo providers.
	List(ctx context.Context) ([]domain.ProviderConfig, error)
	// ListEnabled returns only records with IsEnabled set. It shares the
	// seeding behavior of List.
	ListEnabled(ctx context.Context) ([]domain.ProviderConfig, error)
	// Get looks up a record by id.
	Get(ctx context.Context, id string) (domain.ProviderConfig, bool, error)
	// Create assigns a new id and creation timestamp and stores the record.
	Create(ctx context.Context, in domain.CreateProvider) (domain.ProviderConfig, error)
	// Save replaces the record with the same id, or appends it when no such
	// record exists. The record is stored as given; no validation is applied.
	Save(ctx context.Context, p domain.ProviderConfig) error
	// Delete removes the record with the given id. It reports whether a
	// record was removed; deleting an absent id is not an error.
	Delete(ctx context.Context, id string) (bool, error)
	// Stats summarizes the collection for the dashboard.
	Stats(ctx context.Context) (domain.DashboardStats, error)
	// Close releases resources held by the store.
	Close() error
}

// MemoryProviderStore is an in-memory implementation for quick start and tests.
type MemoryProviderStore struct {
	mu        sync.RWMutex
	providers map[string]domain.ProviderConfig
	order     []string // insertion order for stable listings
	seeded    bool
}

// NewMemoryProviderStore creates an empty in-memory provider store. The
// default demo providers are seeded lazily on the first List call that finds
// the collection empty.
func NewMemoryProviderStore() *MemoryProviderStore {
	return &MemoryProviderStore{providers: make(map[string]domain.ProviderConfig)}
}

func (m *MemoryProviderStore) List(ctx context.Context) ([]domain.ProviderConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seedLocked()
	out := make([]domain.ProviderConfig, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.providers[id].Clone())
	}
	return out, nil
}

func (m *MemoryProviderStore) ListEnabled(ctx context.Context) ([]domain.ProviderConfig, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.IsEnabled {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryProviderStore) Get(ctx context.Context, id string) (domain.ProviderConfig, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[id]
	if !ok {
		return domain.ProviderConfig{}, false, nil
	}
	return p.Clone(), true, nil
}

func (m *MemoryProviderStore) Create(ctx context.Context, in domain.CreateProvider) (domain.ProviderConfig, error) {
	if in.Name == "" || in.Type == "" {
		return domain.ProviderConfig{}, fmt.Errorf("name and type required: %w", ErrValidation)
	}
	if !in.Type.Valid() {
		return domain.ProviderConfig{}, fmt.Errorf("unknown protocol type %q: %w", in.Type, ErrValidation)
	}
	p := domain.ProviderConfig{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Type:        in.Type,
		Logo:        in.Logo,
		IsEnabled:   in.IsEnabled,
		Description: in.Description,
		Config:      in.Config,
		CreatedAt:   time.Now().UnixMilli(),
	}.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.ID] = p
	m.order = append(m.order, p.ID)
	m.seeded = true
	return p.Clone(), nil
}

func (m *MemoryProviderStore) Save(ctx context.Context, p domain.ProviderConfig) error {
	if p.ID == "" {
		return fmt.Errorf("id required: %w", ErrValidation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.providers[p.ID]; !exists {
		m.order = append(m.order, p.ID)
	}
	m.providers[p.ID] = p.Clone()
	m.seeded = true
	return nil
}

func (m *MemoryProviderStore) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[id]; !ok {
		return false, nil
	}
	delete(m.providers, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.seeded = true
	return true, nil
}

func (m *MemoryProviderStore) Stats(ctx context.Context) (domain.DashboardStats, error) {
	all, err := m.List(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	return domain.ComputeStats(all), nil
}

// Close is a no-op for MemoryProviderStore as it holds no external resources.
func (m *MemoryProviderStore) Close() error {
	return nil
}

// seedLocked writes the default providers the first time the collection is
// read while empty. A collection emptied by deletes is not reseeded.
func (m *MemoryProviderStore) seedLocked() {
	if m.seeded {
		return
	}
	m.seeded = true
	if len(m.providers) > 0 {
		return
	}
	for _, p := range DefaultProviders() {
		m.providers[p.ID] = p
		m.order = append(m.order, p.ID)
	}
}
