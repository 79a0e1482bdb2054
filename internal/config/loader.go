package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads configuration from the given TOML file, layering environment
// variable overrides on top of file values and file values on top of
// defaults. If path is empty the standard locations are searched; a
// missing file is not an error and defaults plus environment apply.
func Load(path string) (*Config, error) {
	// Load .env if present. Ignore errors: the file is optional.
	_ = godotenv.Load()

	cfg := Defaults()

	resolved, explicit := resolvePath(path)
	if resolved != "" {
		meta, err := toml.DecodeFile(resolved, &cfg)
		if err != nil {
			if os.IsNotExist(err) && !explicit {
				// Searched location vanished between stat and decode.
			} else {
				return nil, fmt.Errorf("decoding config file %s: %w", resolved, err)
			}
		} else if undec := meta.Undecoded(); len(undec) > 0 {
			keys := make([]string, len(undec))
			for i, k := range undec {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown config keys in %s: %s", resolved, strings.Join(keys, ", "))
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, os.ErrNotExist)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// searchPaths returns the standard config file locations in priority order.
func searchPaths() []string {
	paths := []string{"config.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".manifoldbot.toml"),
			filepath.Join(home, ".config", "manifoldbot", "config.toml"),
		)
	}
	return paths
}

// resolvePath picks the config file to read. An explicit path is always
// returned as-is; otherwise the first existing standard location wins.
func resolvePath(path string) (resolved string, explicit bool) {
	if path != "" {
		return path, true
	}
	for _, p := range searchPaths() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, false
		}
	}
	return "", false
}

// applyEnvOverrides overlays MANIBOT_* environment variables onto cfg.
// Malformed values are ignored so a stray variable cannot break startup.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Mode, "MANIBOT_MODE")
	setStr(&cfg.LogLevel, "MANIBOT_LOG_LEVEL")
	setStr(&cfg.LogFormat, "MANIBOT_LOG_FORMAT")

	setStr(&cfg.Manifold.BaseURL, "MANIBOT_MANIFOLD_BASE_URL")
	setStr(&cfg.Manifold.APIKey, "MANIBOT_MANIFOLD_API_KEY")
	setStr(&cfg.Manifold.EncryptedKeyPath, "MANIBOT_MANIFOLD_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Manifold.KeyPassword, "MANIBOT_MANIFOLD_KEY_PASSWORD")
	setInt(&cfg.Manifold.BetLimit, "MANIBOT_MANIFOLD_BET_LIMIT")
	setInt(&cfg.Manifold.UserPageSize, "MANIBOT_MANIFOLD_USER_PAGE_SIZE")
	setInt(&cfg.Manifold.RateLimitPerMinute, "MANIBOT_MANIFOLD_RATE_LIMIT_PER_MINUTE")

	setFloat64(&cfg.Advisor.FadeThreshold, "MANIBOT_ADVISOR_FADE_THRESHOLD")
	setFloat64(&cfg.Advisor.MinStake, "MANIBOT_ADVISOR_MIN_STAKE")
	setDuration(&cfg.Advisor.Interval, "MANIBOT_ADVISOR_INTERVAL")
	setBool(&cfg.Advisor.FreshnessFilter, "MANIBOT_ADVISOR_FRESHNESS_FILTER")
	setDuration(&cfg.Advisor.LockTTL, "MANIBOT_ADVISOR_LOCK_TTL")

	setStr(&cfg.Postgres.DSN, "MANIBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MANIBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MANIBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MANIBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MANIBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MANIBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MANIBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MANIBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MANIBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MANIBOT_POSTGRES_RUN_MIGRATIONS")

	setStr(&cfg.Redis.Addr, "MANIBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MANIBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MANIBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MANIBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MANIBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MANIBOT_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.MarketTTL, "MANIBOT_REDIS_MARKET_TTL")

	setBool(&cfg.S3.Enabled, "MANIBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "MANIBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MANIBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "MANIBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MANIBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MANIBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MANIBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MANIBOT_S3_FORCE_PATH_STYLE")

	setInt(&cfg.Server.Port, "MANIBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MANIBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "MANIBOT_SERVER_API_KEY")

	setStr(&cfg.Notify.TelegramToken, "MANIBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MANIBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MANIBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MANIBOT_NOTIFY_EVENTS")
}

func setStr(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = duration{d}
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			*dst = out
		}
	}
}
