// Package config loads server and console configuration from a YAML file
// with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the API server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	BaseURL         string        `yaml:"base_url"`
	JWTSecret       string        `yaml:"jwt_secret"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	ProvidersFile   string        `yaml:"providers_file"`
	AdminUser       string        `yaml:"admin_user"`
	AdminPassword   string        `yaml:"admin_password"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	LoginRPM        float64       `yaml:"login_rpm"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ConsoleConfig holds the management console configuration.
type ConsoleConfig struct {
	// APIMode selects the backing data layer once at startup: true talks to
	// the management API, false uses the local file store.
	APIMode     bool          `yaml:"api_mode"`
	APIBaseURL  string        `yaml:"api_base_url"`
	StateDir    string        `yaml:"state_dir"`
	CallbackURL string        `yaml:"callback_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LoadServer loads server configuration from a YAML file and environment
// variables. Environment variables override YAML values.
func LoadServer(path string) (*ServerConfig, error) {
	cfg := &ServerConfig{
		Addr:            ":8080",
		BaseURL:         "http://localhost:8080",
		SessionTTL:      24 * time.Hour,
		AdminUser:       "admin",
		AdminPassword:   "admin",
		RateLimitRPS:    50,
		RateLimitBurst:  100,
		LoginRPM:        10,
		ShutdownTimeout: 10 * time.Second,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := os.Getenv("SSOMGR_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("SSOMGR_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("SSOMGR_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("SSOMGR_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionTTL = d
		}
	}
	if v := os.Getenv("SSOMGR_PROVIDERS_FILE"); v != "" {
		cfg.ProvidersFile = v
	}
	if v := os.Getenv("SSOMGR_ADMIN_USER"); v != "" {
		cfg.AdminUser = v
	}
	if v := os.Getenv("SSOMGR_ADMIN_PASSWORD"); v != "" {
		cfg.AdminPassword = v
	}
	if v := os.Getenv("SSOMGR_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("SSOMGR_RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required server configuration fields are set.
func (c *ServerConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required (set SSOMGR_ADDR or yaml)")
	}
	if c.SessionTTL < time.Minute {
		return errors.New("session_ttl must be at least 1 minute")
	}
	if c.RateLimitRPS <= 0 {
		return errors.New("rate_limit_rps must be positive")
	}
	if c.RateLimitBurst < 1 {
		return errors.New("rate_limit_burst must be at least 1")
	}
	return nil
}

// LoadConsole loads console configuration from a YAML file and environment
// variables. Environment variables override YAML values.
func LoadConsole(path string) (*ConsoleConfig, error) {
	home, _ := os.UserHomeDir()
	cfg := &ConsoleConfig{
		APIBaseURL:  "http://localhost:8080",
		StateDir:    home + "/.ssomgr",
		CallbackURL: "http://localhost:8080/auth/callback",
		Timeout:     30 * time.Second,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := os.Getenv("SSOMGR_API_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.APIMode = b
		}
	}
	if v := os.Getenv("SSOMGR_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("SSOMGR_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := os.Getenv("SSOMGR_CALLBACK_URL"); v != "" {
		cfg.CallbackURL = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required console configuration fields are set.
func (c *ConsoleConfig) Validate() error {
	if c.APIMode && c.APIBaseURL == "" {
		return errors.New("api_base_url is required in api mode (set SSOMGR_API_BASE_URL or yaml)")
	}
	if c.StateDir == "" {
		return errors.New("state_dir is required (set SSOMGR_STATE_DIR or yaml)")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}
