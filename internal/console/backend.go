package console

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"ssomgr/internal/auth"
	"ssomgr/internal/client"
	"ssomgr/internal/domain"
	"ssomgr/internal/storage"
)

// ErrLoginFailed indicates a rejected credential pair.
var ErrLoginFailed = errors.New("login failed")

// Backend is the console's data layer. The two implementations, local file
// storage and the management API, are interchangeable; the mode is chosen
// once at construction and call sites never branch on it.
type Backend interface {
	ListProviders(ctx context.Context) []domain.ProviderConfig
	ListEnabled(ctx context.Context) []domain.ProviderConfig
	GetProvider(ctx context.Context, id string) *domain.ProviderConfig
	CreateProvider(ctx context.Context, in domain.CreateProvider) (*domain.ProviderConfig, error)
	SaveProvider(ctx context.Context, p domain.ProviderConfig) error
	DeleteProvider(ctx context.Context, id string) error
	Stats(ctx context.Context) domain.DashboardStats
	// Login exchanges credentials for a user and, in API mode, a bearer
	// token. It returns ErrLoginFailed for rejected credentials.
	Login(ctx context.Context, username, password string) (*auth.User, string, error)
	// Logout revokes server-side state where there is any.
	Logout(ctx context.Context) error
}

// demoLoginDelay simulates the latency of a real credential check in local
// mode, so flows behave the same in both modes.
const demoLoginDelay = 800 * time.Millisecond

// localBackend serves the console directly from a provider store, with a
// fixed demo credential pair instead of a user database.
type localBackend struct {
	store    storage.ProviderStore
	username string
	password string
	delay    time.Duration
}

// NewLocalBackend creates a Backend over the given store. The demo
// credential pair authenticates an admin-role user.
func NewLocalBackend(store storage.ProviderStore, username, password string) Backend {
	return &localBackend{
		store:    store,
		username: username,
		password: password,
		delay:    demoLoginDelay,
	}
}

func (b *localBackend) ListProviders(ctx context.Context) []domain.ProviderConfig {
	providers, err := b.store.List(ctx)
	if err != nil || providers == nil {
		return []domain.ProviderConfig{}
	}
	return providers
}

func (b *localBackend) ListEnabled(ctx context.Context) []domain.ProviderConfig {
	providers, err := b.store.ListEnabled(ctx)
	if err != nil || providers == nil {
		return []domain.ProviderConfig{}
	}
	return providers
}

func (b *localBackend) GetProvider(ctx context.Context, id string) *domain.ProviderConfig {
	p, ok, err := b.store.Get(ctx, id)
	if err != nil || !ok {
		return nil
	}
	return &p
}

func (b *localBackend) CreateProvider(ctx context.Context, in domain.CreateProvider) (*domain.ProviderConfig, error) {
	p, err := b.store.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (b *localBackend) SaveProvider(ctx context.Context, p domain.ProviderConfig) error {
	return b.store.Save(ctx, p)
}

func (b *localBackend) DeleteProvider(ctx context.Context, id string) error {
	removed, err := b.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return storage.ErrNotFound
	}
	return nil
}

func (b *localBackend) Stats(ctx context.Context) domain.DashboardStats {
	stats, err := b.store.Stats(ctx)
	if err != nil {
		return domain.DashboardStats{ProtocolStats: map[string]int{}}
	}
	return stats
}

func (b *localBackend) Login(ctx context.Context, username, password string) (*auth.User, string, error) {
	select {
	case <-time.After(b.delay):
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}

	if username != b.username || password != b.password {
		return nil, "", ErrLoginFailed
	}
	user := &auth.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		Role:         auth.RoleAdmin,
		IsActive:     true,
		CreatedAt:    time.Now(),
		AuthProvider: "local",
	}
	return user, "", nil
}

func (b *localBackend) Logout(ctx context.Context) error { return nil }

// apiBackend serves the console from the management API.
type apiBackend struct {
	client *client.Client
}

// NewAPIBackend creates a Backend over the given API client.
func NewAPIBackend(c *client.Client) Backend {
	return &apiBackend{client: c}
}

func (b *apiBackend) ListProviders(ctx context.Context) []domain.ProviderConfig {
	return b.client.ListProviders(ctx)
}

func (b *apiBackend) ListEnabled(ctx context.Context) []domain.ProviderConfig {
	providers := b.client.ListProviders(ctx)
	enabled := make([]domain.ProviderConfig, 0, len(providers))
	for _, p := range providers {
		if p.IsEnabled {
			enabled = append(enabled, p)
		}
	}
	return enabled
}

func (b *apiBackend) GetProvider(ctx context.Context, id string) *domain.ProviderConfig {
	return b.client.GetProvider(ctx, id)
}

func (b *apiBackend) CreateProvider(ctx context.Context, in domain.CreateProvider) (*domain.ProviderConfig, error) {
	return b.client.CreateProvider(ctx, in)
}

func (b *apiBackend) SaveProvider(ctx context.Context, p domain.ProviderConfig) error {
	_, err := b.client.UpdateProvider(ctx, p.ID, domain.UpdateProvider{
		Name:        &p.Name,
		Type:        &p.Type,
		Logo:        &p.Logo,
		IsEnabled:   &p.IsEnabled,
		Description: &p.Description,
		Config:      &p.Config,
	})
	return err
}

func (b *apiBackend) DeleteProvider(ctx context.Context, id string) error {
	return b.client.DeleteProvider(ctx, id)
}

func (b *apiBackend) Stats(ctx context.Context) domain.DashboardStats {
	return b.client.Stats(ctx)
}

func (b *apiBackend) Login(ctx context.Context, username, password string) (*auth.User, string, error) {
	result := b.client.Login(ctx, username, password)
	if result == nil {
		return nil, "", ErrLoginFailed
	}
	return result.User, result.Token, nil
}

func (b *apiBackend) Logout(ctx context.Context) error {
	return b.client.Logout(ctx)
}
