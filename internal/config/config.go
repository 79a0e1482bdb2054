// Package config defines the top-level configuration for the manifold
// advisor and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MANIBOT_* environment
// variables.
type Config struct {
	Manifold  ManifoldConfig `toml:"manifold"`
	Advisor   AdvisorConfig  `toml:"advisor"`
	Postgres  PostgresConfig `toml:"postgres"`
	Redis     RedisConfig    `toml:"redis"`
	S3        S3Config       `toml:"s3"`
	Server    ServerConfig   `toml:"server"`
	Notify    NotifyConfig   `toml:"notify"`
	Mode      string         `toml:"mode"`
	LogLevel  string         `toml:"log_level"`
	LogFormat string         `toml:"log_format"`
}

// ManifoldConfig holds the Manifold Markets API endpoint and credential.
// The credential can be given directly (api_key) or as an encrypted key
// file plus password.
type ManifoldConfig struct {
	BaseURL            string `toml:"base_url"`
	APIKey             string `toml:"api_key"`
	EncryptedKeyPath   string `toml:"encrypted_key_path"`
	KeyPassword        string `toml:"key_password"`
	BetLimit           int    `toml:"bet_limit"`
	UserPageSize       int    `toml:"user_page_size"`
	RateLimitPerMinute int    `toml:"rate_limit_per_minute"`
}

// AdvisorConfig holds recommendation pipeline parameters.
type AdvisorConfig struct {
	// FadeThreshold is the score below which a below-operator trader is
	// faded rather than ignored. Must be negative.
	FadeThreshold float64 `toml:"fade_threshold"`
	// MinStake is the whole-unit amount below which a sized recommendation
	// is silently dropped from the report.
	MinStake float64 `toml:"min_stake"`
	// Interval is the pause between advisory runs in watch/serve modes.
	Interval duration `toml:"interval"`
	// FreshnessFilter drops suggestions older than the operator's most
	// recent bet in the same market.
	FreshnessFilter bool `toml:"freshness_filter"`
	// LockTTL bounds how long a watch/serve instance may hold the run lock.
	LockTTL duration `toml:"lock_ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	MarketTTL  duration `toml:"market_ttl"`
}

// S3Config holds S3-compatible object storage parameters for run archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey protects the API when set; empty disables authentication.
	APIKey string `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials. A sender is built
// for each channel whose credentials are present.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "15m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "15m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Manifold: ManifoldConfig{
			BaseURL:            "https://manifold.markets/api/v0",
			BetLimit:           1000,
			UserPageSize:       1000,
			RateLimitPerMinute: 500,
		},
		Advisor: AdvisorConfig{
			FadeThreshold:   -0.25,
			MinStake:        5.0,
			Interval:        duration{15 * time.Minute},
			FreshnessFilter: true,
			LockTTL:         duration{10 * time.Minute},
		},
		Postgres: PostgresConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "manifoldbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
			MarketTTL:  duration{15 * time.Minute},
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "manibot-runs",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"run_completed", "run_failed"},
		},
		Mode:      "advise",
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"advise":      true,
	"watch":       true,
	"serve":       true,
	"history":     true,
	"encrypt-key": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats enumerates the accepted values for Config.LogFormat.
var validLogFormats = map[string]bool{
	"json": true,
	"text": true,
}

// NeedsPostgres reports whether the configured mode requires a database.
func (c *Config) NeedsPostgres() bool {
	switch strings.ToLower(c.Mode) {
	case "watch", "serve", "history":
		return true
	}
	return false
}

// NeedsRedis reports whether the configured mode requires Redis.
func (c *Config) NeedsRedis() bool {
	switch strings.ToLower(c.Mode) {
	case "watch", "serve":
		return true
	}
	return false
}

// NeedsCredential reports whether the configured mode talks to the
// Manifold API.
func (c *Config) NeedsCredential() bool {
	switch strings.ToLower(c.Mode) {
	case "advise", "watch", "serve":
		return true
	}
	return false
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: advise, watch, serve, history, encrypt-key)", c.Mode))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if !validLogFormats[strings.ToLower(c.LogFormat)] {
		errs = append(errs, fmt.Sprintf("unknown log_format %q (valid: json, text)", c.LogFormat))
	}

	// Manifold: a credential source must exist for API-facing modes.
	if c.Manifold.BaseURL == "" {
		errs = append(errs, "manifold: base_url must not be empty")
	}
	if c.NeedsCredential() {
		if c.Manifold.APIKey == "" && c.Manifold.EncryptedKeyPath == "" {
			errs = append(errs, "manifold: either api_key or encrypted_key_path must be set for mode "+c.Mode)
		}
		if c.Manifold.APIKey == "" && c.Manifold.EncryptedKeyPath != "" && c.Manifold.KeyPassword == "" {
			errs = append(errs, "manifold: key_password is required when encrypted_key_path is the only credential source")
		}
	}
	if mode == "encrypt-key" {
		if c.Manifold.APIKey == "" {
			errs = append(errs, "manifold: api_key must be set to encrypt it")
		}
		if c.Manifold.EncryptedKeyPath == "" {
			errs = append(errs, "manifold: encrypted_key_path must name the output file for encrypt-key mode")
		}
		if c.Manifold.KeyPassword == "" {
			errs = append(errs, "manifold: key_password is required for encrypt-key mode")
		}
	}
	if c.Manifold.BetLimit < 1 {
		errs = append(errs, "manifold: bet_limit must be >= 1")
	}
	if c.Manifold.UserPageSize < 1 || c.Manifold.UserPageSize > 1000 {
		errs = append(errs, fmt.Sprintf("manifold: user_page_size must be 1-1000, got %d", c.Manifold.UserPageSize))
	}
	if c.Manifold.RateLimitPerMinute < 0 {
		errs = append(errs, "manifold: rate_limit_per_minute must be >= 0 (0 disables limiting)")
	}

	// Advisor
	if c.Advisor.FadeThreshold >= 0 || c.Advisor.FadeThreshold < -1 {
		errs = append(errs, fmt.Sprintf("advisor: fade_threshold must be in [-1, 0), got %g", c.Advisor.FadeThreshold))
	}
	if c.Advisor.MinStake < 0 {
		errs = append(errs, "advisor: min_stake must be >= 0")
	}
	if (mode == "watch" || mode == "serve") && c.Advisor.Interval.Duration <= 0 {
		errs = append(errs, "advisor: interval must be > 0 for mode "+c.Mode)
	}
	if c.Advisor.LockTTL.Duration <= 0 {
		errs = append(errs, "advisor: lock_ttl must be > 0")
	}

	// Postgres is only required by modes that persist or read history.
	if c.NeedsPostgres() {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.NeedsRedis() {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.MarketTTL.Duration <= 0 {
			errs = append(errs, "redis: market_ttl must be > 0")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	// Server
	if mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Notify: chat id and token travel together.
	tg := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tg != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
