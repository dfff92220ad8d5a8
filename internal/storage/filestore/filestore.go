// Package filestore persists the provider collection as a single serialized
// JSON document on the local filesystem. It is the storage backend for the
// console's local mode: one key, whole-collection writes, last write wins.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"ssomgr/internal/domain"
	"ssomgr/internal/observability"
	"ssomgr/internal/storage"
)

// Store implements storage.ProviderStore over a single JSON file.
type Store struct {
	mu     sync.Mutex
	path   string
	logger observability.Logger
}

// New creates a file-backed provider store at path. The file is created on
// first access; parent directories are created as needed.
func New(path string, logger observability.Logger) *Store {
	if logger == nil {
		logger = observability.NewLogger(observability.DefaultConfig())
	}
	return &Store{path: path, logger: logger.WithComponent("filestore")}
}

func (s *Store) List(ctx context.Context) ([]domain.ProviderConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) ListEnabled(ctx context.Context) ([]domain.ProviderConfig, error) {
	all, err := s.List(ctx)
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

func (s *Store) Get(ctx context.Context, id string) (domain.ProviderConfig, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	providers, err := s.loadLocked()
	if err != nil {
		return domain.ProviderConfig{}, false, err
	}
	for _, p := range providers {
		if p.ID == id {
			return p, true, nil
		}
	}
	return domain.ProviderConfig{}, false, nil
}

func (s *Store) Create(ctx context.Context, in domain.CreateProvider) (domain.ProviderConfig, error) {
	if in.Name == "" || in.Type == "" {
		return domain.ProviderConfig{}, fmt.Errorf("name and type required: %w", storage.ErrValidation)
	}
	if !in.Type.Valid() {
		return domain.ProviderConfig{}, fmt.Errorf("unknown protocol type %q: %w", in.Type, storage.ErrValidation)
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

	s.mu.Lock()
	defer s.mu.Unlock()
	providers, err := s.loadLocked()
	if err != nil {
		return domain.ProviderConfig{}, err
	}
	providers = append(providers, p)
	if err := s.writeLocked(providers); err != nil {
		return domain.ProviderConfig{}, err
	}
	return p.Clone(), nil
}

func (s *Store) Save(ctx context.Context, p domain.ProviderConfig) error {
	if p.ID == "" {
		return fmt.Errorf("id required: %w", storage.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	providers, err := s.loadLocked()
	if err != nil {
		return err
	}
	replaced := false
	for i := range providers {
		if providers[i].ID == p.ID {
			providers[i] = p.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		providers = append(providers, p.Clone())
	}
	return s.writeLocked(providers)
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	providers, err := s.loadLocked()
	if err != nil {
		return false, err
	}
	kept := providers[:0]
	removed := false
	for _, p := range providers {
		if p.ID == id {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	if !removed {
		return false, nil
	}
	return true, s.writeLocked(kept)
}

func (s *Store) Stats(ctx context.Context) (domain.DashboardStats, error) {
	all, err := s.List(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	return domain.ComputeStats(all), nil
}

// Close is a no-op; the file is not held open between operations.
func (s *Store) Close() error {
	return nil
}

// loadLocked reads the whole collection. A missing file seeds the defaults;
// an unparseable file is discarded and reseeded rather than surfaced as a
// fatal error.
func (s *Store) loadLocked() ([]domain.ProviderConfig, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.seedLocked()
	}
	if err != nil {
		return nil, err
	}

	var providers []domain.ProviderConfig
	if err := json.Unmarshal(data, &providers); err != nil {
		s.logger.Warn("discarding corrupt provider data", "path", s.path, "error", err)
		return s.seedLocked()
	}
	return providers, nil
}

func (s *Store) seedLocked() ([]domain.ProviderConfig, error) {
	providers := storage.DefaultProviders()
	if err := s.writeLocked(providers); err != nil {
		return nil, err
	}
	return providers, nil
}

// writeLocked serializes the full collection and replaces the file contents.
func (s *Store) writeLocked(providers []domain.ProviderConfig) error {
	if providers == nil {
		providers = []domain.ProviderConfig{}
	}
	data, err := json.MarshalIndent(providers, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

var _ storage.ProviderStore = (*Store)(nil)
