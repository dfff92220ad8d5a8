//go:build !sqlite && !postgres

package main

import (
	"os"

	"ssomgr/internal/auth"
	"ssomgr/internal/config"
	"ssomgr/internal/observability"
	"ssomgr/internal/storage"
	"ssomgr/internal/storage/filestore"
)

// selectStore returns the default storage when built without database tags:
// a JSON file store when a providers file is configured, otherwise memory.
// If SQLITE_DSN or DATABASE_URL is set, we log a hint to rebuild with the
// matching build tag.
func selectStore(cfg *config.ServerConfig, logger observability.Logger) storage.ProviderStore {
	if os.Getenv("SQLITE_DSN") != "" {
		logger.Warn("SQLITE_DSN set, but binary not built with -tags sqlite; ignoring")
	}
	if os.Getenv("DATABASE_URL") != "" {
		logger.Warn("DATABASE_URL set, but binary not built with -tags postgres; ignoring")
	}
	if cfg.ProvidersFile != "" {
		logger.Info("using file store", "path", cfg.ProvidersFile)
		return filestore.New(cfg.ProvidersFile, logger)
	}
	logger.Info("using in-memory store")
	return storage.NewMemoryProviderStore()
}

// selectUserStore returns the in-memory user store for default builds.
func selectUserStore(logger observability.Logger) auth.UserStore {
	return auth.NewMemoryUserStore()
}
