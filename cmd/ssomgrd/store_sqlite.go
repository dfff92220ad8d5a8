//go:build sqlite && !postgres

package main

import (
	"os"

	"ssomgr/internal/auth"
	"ssomgr/internal/config"
	"ssomgr/internal/observability"
	"ssomgr/internal/storage"
	sqlitestore "ssomgr/internal/storage/sqlite"
)

func sqliteDSN() string {
	dsn := os.Getenv("SQLITE_DSN")
	if dsn == "" {
		dsn = "file:ssomgr.db?cache=shared"
	}
	return dsn
}

// selectStore returns a SQLite-backed store when built with the 'sqlite' tag.
// Configure with env var SQLITE_DSN (e.g., file:ssomgr.db?cache=shared)
func selectStore(cfg *config.ServerConfig, logger observability.Logger) storage.ProviderStore {
	dsn := sqliteDSN()
	st, err := sqlitestore.New(dsn)
	if err != nil {
		logger.Error("sqlite init failed; falling back to memory store", "error", err)
		return storage.NewMemoryProviderStore()
	}
	logger.Info("using sqlite store", "dsn", dsn)
	return st
}

// selectUserStore returns a SQLite-backed user store when built with the
// 'sqlite' tag, sharing the provider store's DSN.
func selectUserStore(logger observability.Logger) auth.UserStore {
	us, err := auth.NewSQLiteUserStore(sqliteDSN())
	if err != nil {
		logger.Error("sqlite user store init failed; falling back to memory", "error", err)
		return auth.NewMemoryUserStore()
	}
	logger.Info("using sqlite user store")
	return us
}
