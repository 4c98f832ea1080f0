package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Storage backends
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	AlphaVantage AlphaVantageConfig `toml:"alphavantage"`
	Storage      StorageConfig      `toml:"storage"`
	Auth         AuthConfig         `toml:"auth"`
	Analysis     AnalysisConfig     `toml:"analysis"`
	HTTP         HTTPConfig         `toml:"http"`
	Log          LogConfig          `toml:"log"`
}

// AlphaVantageConfig holds Alpha Vantage API configuration
type AlphaVantageConfig struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
}

// StorageConfig selects the key-value backend behind the repositories
type StorageConfig struct {
	Backend     string `toml:"backend"` // memory, sqlite or postgres
	DatabaseURL string `toml:"database_url"`
	SQLitePath  string `toml:"sqlite_path"`
}

// AuthConfig holds session and account settings
type AuthConfig struct {
	SessionTTLHours  int    `toml:"session_ttl_hours"`
	ResetTTLMinutes  int    `toml:"reset_ttl_minutes"`
	SweepSchedule    string `toml:"sweep_schedule"` // cron spec for expired session cleanup
	SeedDemoUser     bool   `toml:"seed_demo_user"`
	BcryptCost       int    `toml:"bcrypt_cost"`
	MinPasswordChars int    `toml:"min_password_chars"`
}

// AnalysisConfig holds analysis pipeline settings
type AnalysisConfig struct {
	TimeoutSeconds   int  `toml:"timeout_seconds"`
	ConcurrencyLimit int  `toml:"concurrency_limit"`
	HistoryLimit     int  `toml:"history_limit"`
	DemoFallback     bool `toml:"demo_fallback"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr               string `toml:"addr"`
	CORSAllowedOrigins string `toml:"cors_allowed_origins"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level      string `toml:"level"`
	Production bool   `toml:"production"`
}

// Load builds the configuration from defaults, an optional TOML file
// named by EBIS_CONFIG_FILE, and environment variables, in that order.
func Load() (*Config, error) {
	cfg := NewTestConfig()

	if path := os.Getenv("EBIS_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.AlphaVantage.APIKey = getEnvString("ALPHA_VANTAGE_API_KEY", c.AlphaVantage.APIKey)
	c.AlphaVantage.BaseURL = getEnvString("ALPHA_VANTAGE_BASE_URL", c.AlphaVantage.BaseURL)
	c.AlphaVantage.TimeoutSeconds = getEnvInt("ALPHA_VANTAGE_TIMEOUT_SECONDS", c.AlphaVantage.TimeoutSeconds)
	c.AlphaVantage.CacheTTLSeconds = getEnvInt("MARKET_DATA_CACHE_TTL_SECONDS", c.AlphaVantage.CacheTTLSeconds)

	c.Storage.Backend = strings.ToLower(getEnvString("STORAGE_BACKEND", c.Storage.Backend))
	c.Storage.DatabaseURL = getEnvString("DATABASE_URL", c.Storage.DatabaseURL)
	c.Storage.SQLitePath = getEnvString("SQLITE_PATH", c.Storage.SQLitePath)

	c.Auth.SessionTTLHours = getEnvInt("SESSION_TTL_HOURS", c.Auth.SessionTTLHours)
	c.Auth.ResetTTLMinutes = getEnvInt("PASSWORD_RESET_TTL_MINUTES", c.Auth.ResetTTLMinutes)
	c.Auth.SweepSchedule = getEnvString("SESSION_SWEEP_SCHEDULE", c.Auth.SweepSchedule)
	c.Auth.SeedDemoUser = getEnvBool("SEED_DEMO_USER", c.Auth.SeedDemoUser)
	c.Auth.BcryptCost = getEnvInt("BCRYPT_COST", c.Auth.BcryptCost)

	c.Analysis.TimeoutSeconds = getEnvInt("ANALYSIS_TIMEOUT_SECONDS", c.Analysis.TimeoutSeconds)
	c.Analysis.ConcurrencyLimit = getEnvInt("ANALYSIS_CONCURRENCY_LIMIT", c.Analysis.ConcurrencyLimit)
	c.Analysis.HistoryLimit = getEnvInt("HISTORY_LIMIT", c.Analysis.HistoryLimit)
	c.Analysis.DemoFallback = getEnvBool("DEMO_FALLBACK", c.Analysis.DemoFallback)

	c.HTTP.Addr = getEnvString("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.CORSAllowedOrigins = getEnvString("CORS_ALLOWED_ORIGINS", c.HTTP.CORSAllowedOrigins)

	c.Log.Level = getEnvString("LOG_LEVEL", c.Log.Level)
	c.Log.Production = getEnvBool("LOG_PRODUCTION", c.Log.Production)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of memory, sqlite, postgres; got %q", c.Storage.Backend)
	}

	if c.AlphaVantage.TimeoutSeconds <= 0 {
		return fmt.Errorf("ALPHA_VANTAGE_TIMEOUT_SECONDS must be positive, got %d", c.AlphaVantage.TimeoutSeconds)
	}
	if c.Analysis.TimeoutSeconds <= 0 {
		return fmt.Errorf("ANALYSIS_TIMEOUT_SECONDS must be positive, got %d", c.Analysis.TimeoutSeconds)
	}
	if c.Analysis.ConcurrencyLimit <= 0 {
		return fmt.Errorf("ANALYSIS_CONCURRENCY_LIMIT must be positive, got %d", c.Analysis.ConcurrencyLimit)
	}
	if c.Analysis.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.Analysis.HistoryLimit)
	}
	if c.Auth.SessionTTLHours <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive, got %d", c.Auth.SessionTTLHours)
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}

	return nil
}

// HasDatabase returns true if a Postgres URL is configured
func (c *Config) HasDatabase() bool {
	return c.Storage.DatabaseURL != ""
}

// UsesDemoKey reports whether Alpha Vantage runs on the public demo key,
// which only serves a handful of symbols
func (c *Config) UsesDemoKey() bool {
	return c.AlphaVantage.APIKey == "" || c.AlphaVantage.APIKey == "demo"
}

// SessionTTL returns the session lifetime
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Auth.SessionTTLHours) * time.Hour
}

// ResetTTL returns the password reset token lifetime
func (c *Config) ResetTTL() time.Duration {
	return time.Duration(c.Auth.ResetTTLMinutes) * time.Minute
}

// CacheTTL returns the market data cache lifetime
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.AlphaVantage.CacheTTLSeconds) * time.Second
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		AlphaVantage: AlphaVantageConfig{
			APIKey:          "demo",
			BaseURL:         "https://www.alphavantage.co/query",
			TimeoutSeconds:  15,
			CacheTTLSeconds: 300,
		},
		Storage: StorageConfig{
			Backend:    BackendMemory,
			SQLitePath: "ebis.db",
		},
		Auth: AuthConfig{
			SessionTTLHours:  24,
			ResetTTLMinutes:  60,
			SweepSchedule:    "@every 15m",
			SeedDemoUser:     true,
			BcryptCost:       10,
			MinPasswordChars: 6,
		},
		Analysis: AnalysisConfig{
			TimeoutSeconds:   30,
			ConcurrencyLimit: 3,
			HistoryLimit:     50,
			DemoFallback:     true,
		},
		HTTP: HTTPConfig{
			Addr:               ":8080",
			CORSAllowedOrigins: "*",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
