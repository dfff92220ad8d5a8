package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"ssomgr/internal/api"
	"ssomgr/internal/audit"
	"ssomgr/internal/auth"
	"ssomgr/internal/config"
	"ssomgr/internal/observability"
)

func main() {
	// Initialize structured logger from environment configuration
	logCfg := observability.ConfigFromEnv()
	logger := observability.NewLogger(logCfg)

	configPath := flag.String("config", envOr("SSOMGR_CONFIG", ""), "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// Initialize Sentry if DSN is provided
	sentryDSN := os.Getenv("SENTRY_DSN")
	sentryEnabled := false
	if sentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              sentryDSN,
			Environment:      envOr("SENTRY_ENVIRONMENT", "production"),
			Release:          envOr("APP_VERSION", "dev"),
			TracesSampleRate: 1.0,
			AttachStacktrace: true,
		})
		if err != nil {
			logger.Warn("sentry initialization failed", "error", err)
		} else {
			logger.Info("sentry initialized",
				"environment", envOr("SENTRY_ENVIRONMENT", "production"),
				"release", envOr("APP_VERSION", "dev"),
			)
			sentryEnabled = true
		}
	}

	// Select provider storage based on build tags and env (see store_*.go
	// in this package).
	store := selectStore(cfg, logger)

	// Initialize metrics
	metricsCfg := observability.MetricsConfigFromEnv()
	var metrics *observability.Metrics
	if metricsCfg.Enabled {
		metrics = observability.NewMetrics(metricsCfg)
		logger.Info("metrics enabled",
			"namespace", metricsCfg.Namespace,
			"version", metricsCfg.Version,
		)
	} else {
		logger.Info("metrics disabled")
	}

	rateCfg := api.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}
	if !rateCfg.Enabled() {
		logger.Info("rate limiting disabled")
	} else {
		logger.Info("rate limiting configured",
			"requests_per_second", rateCfg.RequestsPerSecond,
			"burst", rateCfg.Burst,
		)
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		// A random per-process secret keeps single-instance deployments
		// working out of the box. Tokens do not survive a restart.
		id, err := auth.GenerateSessionID()
		if err != nil {
			logger.Error("failed to generate signing secret", "error", err)
			os.Exit(1)
		}
		secret = []byte(id)
		logger.Warn("SSOMGR_JWT_SECRET not set; using ephemeral signing secret")
	}
	tokens := auth.NewTokenIssuer(secret, cfg.BaseURL)

	userStore := selectUserStore(logger)
	sessionStore := auth.NewMemorySessionStore()
	auditLogger := audit.NewMemoryLogger()

	// Bootstrap the admin account on first boot (idempotent).
	bootstrapAdmin(logger, userStore, cfg.AdminUser, cfg.AdminPassword)

	mux := http.NewServeMux()
	srv := api.NewServer(mux, store, userStore, sessionStore, tokens, logger, metrics, auditLogger)
	srv.SetBaseURL(cfg.BaseURL)
	srv.SetSessionTTL(cfg.SessionTTL)
	if cb := os.Getenv("SSOMGR_CONSOLE_CALLBACK_URL"); cb != "" {
		srv.SetConsoleCallbackURL(cb)
	}

	loginRL := api.LoginRateLimitMiddleware(api.LoginRateLimitConfig{
		AttemptsPerMinute: int(cfg.LoginRPM),
	})
	srv.RegisterRoutes(loginRL)

	// Background session cleanup every 15 minutes.
	go func() {
		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			n, err := sessionStore.Cleanup(context.Background())
			if err != nil {
				logger.Warn("session cleanup error", "error", err)
			} else if n > 0 {
				logger.Info("cleaned up expired sessions", "count", n)
			}
		}
	}()

	// Apply middleware stack.
	// Order: metrics (outermost) -> requestID -> logging -> rateLimiting (innermost before handler)
	handler := api.ApplyMiddlewares(
		mux,
		observability.MetricsMiddleware(metrics),
		api.RequestIDMiddleware(),
		api.LoggingMiddleware(logger),
		api.RateLimitMiddleware(rateCfg, logger, metrics),
	)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("ssomgrd listening", "addr", cfg.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	}

	logger.Info("shutting down server", "timeout", cfg.ShutdownTimeout.String())
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	} else {
		logger.Info("server stopped gracefully")
	}

	if err := store.Close(); err != nil {
		logger.Error("error closing store", "error", err)
	}

	if sentryEnabled {
		logger.Info("flushing sentry events", "deadline", "2s")
		sentry.Flush(2 * time.Second)
	}

	logger.Info("shutdown complete")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// bootstrapAdmin creates the initial admin user if it doesn't already exist.
func bootstrapAdmin(logger observability.Logger, userStore auth.UserStore, username, password string) {
	existing, _ := userStore.GetByUsername(context.Background(), username)
	if existing != nil {
		logger.Info("bootstrap admin already exists", "username", username)
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		logger.Error("failed to hash admin password", "error", err)
		return
	}

	now := time.Now().UTC()
	user := &auth.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        envOr("SSOMGR_ADMIN_EMAIL", username+"@localhost"),
		DisplayName:  username,
		Role:         auth.RoleAdmin,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
		AuthProvider: "local",
	}
	if err := userStore.Create(context.Background(), user); err != nil {
		logger.Error("failed to create bootstrap admin", "error", err)
		return
	}
	logger.Info("bootstrap admin created", "username", username)
	if password == "admin" {
		logger.Warn("bootstrap admin uses the default password; set SSOMGR_ADMIN_PASSWORD")
	}
}
