package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ErrConfiguration marks a missing or invalid setting. The process must not start.
var ErrConfiguration = errors.New("configuration error")

type (
	Config struct {
		HTTP
		Global
		Database
		Session
		Auth
		Ratings
		Redis
		Logging
		Metrics
		Catalog
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		URL          string // postgres://... or sqlite://path or a bare file path
		MaxOpenConns int
		MaxIdleConns int
		LogQueries   bool
	}
	Session struct {
		Secret        string
		Lifetime      time.Duration
		SecureCookies bool // Set to false for local dev without HTTPS
	}
	Auth struct {
		BcryptCost int

		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Ratings struct {
		Enabled           bool
		APIKey            string
		BaseURL           string
		Timeout           time.Duration
		CacheTTL          time.Duration
		RequestsPerSecond float64
	}
	Redis struct {
		URL string // Empty disables Redis; ratings fall back to an in-process cache
	}
	Logging struct {
		Level  string
		Format string // "console" or "json"
	}
	Metrics struct {
		Enabled bool
	}
	Catalog struct {
		File string
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 5000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_url", "")
	v.SetDefault("db_max_open_conns", 10)
	v.SetDefault("db_max_idle_conns", 5)

	// Session defaults
	v.SetDefault("session_secret", "") // Auto-generated if empty
	v.SetDefault("session_lifetime", "24h")
	v.SetDefault("secure_cookies", true)

	// Auth defaults
	v.SetDefault("bcrypt_cost", 12)
	v.SetDefault("max_login_attempts", 5)
	v.SetDefault("rate_limit_window", "15m")
	v.SetDefault("lockout_duration", "30m")

	// External ratings defaults
	v.SetDefault("ratings_enabled", false)
	v.SetDefault("goodreads_api_key", "")
	v.SetDefault("goodreads_base_url", DefaultGoodreadsBaseURL)
	v.SetDefault("ratings_timeout", "5s")
	v.SetDefault("ratings_cache_ttl", "6h")
	v.SetDefault("ratings_requests_per_second", 1.0)

	v.SetDefault("redis_url", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("catalog_file", DefaultCatalogFile)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			URL:          v.GetString("DATABASE_URL"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
			LogQueries:   v.GetString("LOG_LEVEL") == "debug",
		},
		Session: Session{
			Secret:        v.GetString("SESSION_SECRET"),
			Lifetime:      v.GetDuration("SESSION_LIFETIME"),
			SecureCookies: v.GetBool("SECURE_COOKIES"),
		},
		Auth: Auth{
			BcryptCost:       v.GetInt("BCRYPT_COST"),
			MaxLoginAttempts: v.GetInt("MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("LOCKOUT_DURATION"),
		},
		Ratings: Ratings{
			Enabled:           v.GetBool("RATINGS_ENABLED"),
			APIKey:            v.GetString("GOODREADS_API_KEY"),
			BaseURL:           v.GetString("GOODREADS_BASE_URL"),
			Timeout:           v.GetDuration("RATINGS_TIMEOUT"),
			CacheTTL:          v.GetDuration("RATINGS_CACHE_TTL"),
			RequestsPerSecond: v.GetFloat64("RATINGS_REQUESTS_PER_SECOND"),
		},
		Redis: Redis{
			URL: v.GetString("REDIS_URL"),
		},
		Logging: Logging{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
		Catalog: Catalog{
			File: v.GetString("CATALOG_FILE"),
		},
	}
}

// Validate reports settings without which the service cannot start.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("%w: DATABASE_URL is not set", ErrConfiguration)
	}
	if c.Ratings.Enabled && c.Ratings.APIKey == "" {
		return fmt.Errorf("%w: GOODREADS_API_KEY is not set", ErrConfiguration)
	}
	return nil
}
