//go:build sqlite

package sqlite

import (
	"database/sql"
	"fmt"
)

// migrations are applied in order; each entry runs at most once, tracked in
// schema_migrations.
var migrations = []string{
	// 1: providers
	`CREATE TABLE IF NOT EXISTS providers (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		type        TEXT NOT NULL,
		logo        TEXT NOT NULL DEFAULT '',
		is_enabled  INTEGER NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		config      TEXT NOT NULL DEFAULT '{}',
		created_at  INTEGER NOT NULL
	)`,
	// 2: seed bookkeeping
	`CREATE TABLE IF NOT EXISTS provider_meta (
		key   TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	)`,
	// 3: enabled listings
	`CREATE INDEX IF NOT EXISTS idx_providers_enabled ON providers(is_enabled)`,
}

func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var latest int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&latest); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i, stmt := range migrations {
		version := i + 1
		if version <= latest {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES(?)`, version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", version, err)
		}
	}
	return nil
}
