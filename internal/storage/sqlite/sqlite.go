//go:build sqlite

// Package sqlite provides a SQLite-backed provider store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // CGO-less SQLite driver

	"ssomgr/internal/domain"
	"ssomgr/internal/storage"
)

// Store implements storage.ProviderStore backed by SQLite.
type Store struct {
	db *sql.DB
}

var _ storage.ProviderStore = (*Store)(nil)

// New opens (creating if needed) a SQLite-backed store at dsn.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000; PRAGMA foreign_keys=ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) List(ctx context.Context) ([]domain.ProviderConfig, error) {
	if err := s.seedIfEmpty(ctx); err != nil {
		return nil, err
	}
	return s.list(ctx, false)
}

func (s *Store) ListEnabled(ctx context.Context) ([]domain.ProviderConfig, error) {
	if err := s.seedIfEmpty(ctx); err != nil {
		return nil, err
	}
	return s.list(ctx, true)
}

func (s *Store) list(ctx context.Context, enabledOnly bool) ([]domain.ProviderConfig, error) {
	q := `SELECT id, name, type, logo, is_enabled, description, config, created_at FROM providers`
	if enabledOnly {
		q += ` WHERE is_enabled = 1`
	}
	q += ` ORDER BY rowid ASC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ProviderConfig
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id string) (domain.ProviderConfig, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, type, logo, is_enabled, description, config, created_at FROM providers WHERE id = ?`, id)
	p, err := scanProvider(row)
	if err == sql.ErrNoRows {
		return domain.ProviderConfig{}, false, nil
	}
	if err != nil {
		return domain.ProviderConfig{}, false, err
	}
	return p, true, nil
}

func (s *Store) Create(ctx context.Context, in domain.CreateProvider) (domain.ProviderConfig, error) {
	p := domain.ProviderConfig{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Type:        in.Type,
		Logo:        in.Logo,
		IsEnabled:   in.IsEnabled,
		Description: in.Description,
		Config:      in.Config,
		CreatedAt:   time.Now().UnixMilli(),
	}
	if err := s.insert(ctx, p); err != nil {
		return domain.ProviderConfig{}, storage.WrapIfConflict(err)
	}
	if err := s.markSeeded(ctx); err != nil {
		return domain.ProviderConfig{}, err
	}
	return p, nil
}

func (s *Store) Save(ctx context.Context, p domain.ProviderConfig) error {
	cfg, err := json.Marshal(p.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE providers SET name=?, type=?, logo=?, is_enabled=?, description=?, config=? WHERE id=?`,
		p.Name, string(p.Type), p.Logo, boolToInt(p.IsEnabled), p.Description, string(cfg), p.ID)
	if err != nil {
		return storage.WrapIfConflict(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if err := s.insert(ctx, p); err != nil {
			return storage.WrapIfConflict(err)
		}
	}
	return s.markSeeded(ctx)
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM providers WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := s.markSeeded(ctx); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Stats(ctx context.Context) (domain.DashboardStats, error) {
	providers, err := s.list(ctx, false)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	return domain.ComputeStats(providers), nil
}

func (s *Store) insert(ctx context.Context, p domain.ProviderConfig) error {
	cfg, err := json.Marshal(p.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO providers(id, name, type, logo, is_enabled, description, config, created_at) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(p.Type), p.Logo, boolToInt(p.IsEnabled), p.Description, string(cfg), p.CreatedAt)
	return err
}

// seedIfEmpty seeds the demo records on the first read of a collection that
// has never been written. A collection emptied by deletes stays empty.
func (s *Store) seedIfEmpty(ctx context.Context) error {
	var seeded int
	_ = s.db.QueryRowContext(ctx, `SELECT value FROM provider_meta WHERE key='seeded'`).Scan(&seeded)
	if seeded == 1 {
		return nil
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM providers`).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		for _, p := range storage.DefaultProviders() {
			if err := s.insert(ctx, p); err != nil {
				return err
			}
		}
	}
	return s.markSeeded(ctx)
}

func (s *Store) markSeeded(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO provider_meta(key, value) VALUES('seeded', 1) ON CONFLICT(key) DO UPDATE SET value=1`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (domain.ProviderConfig, error) {
	var p domain.ProviderConfig
	var typ, cfg string
	var enabled int
	if err := row.Scan(&p.ID, &p.Name, &typ, &p.Logo, &enabled, &p.Description, &cfg, &p.CreatedAt); err != nil {
		return domain.ProviderConfig{}, err
	}
	p.Type = domain.ProtocolType(typ)
	p.IsEnabled = enabled != 0
	if cfg != "" {
		if err := json.Unmarshal([]byte(cfg), &p.Config); err != nil {
			return domain.ProviderConfig{}, fmt.Errorf("%w: provider %s config: %v", storage.ErrCorrupt, p.ID, err)
		}
	}
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
