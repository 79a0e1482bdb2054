package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig drops a TOML file under a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

// --- Load tests ---

func TestLoad_MinimalFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[manifold]
api_key = "file-key"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Manifold.APIKey != "file-key" {
		t.Errorf("expected api_key from file, got %q", cfg.Manifold.APIKey)
	}
	if cfg.Mode != "advise" || cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Errorf("unexpected defaults %s/%s/%s", cfg.Mode, cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.Manifold.BetLimit != 1000 || cfg.Manifold.BaseURL != "https://manifold.markets/api/v0" {
		t.Errorf("unexpected manifold defaults %+v", cfg.Manifold)
	}
	if cfg.Advisor.FadeThreshold != -0.25 || cfg.Advisor.Interval.Duration != 15*time.Minute {
		t.Errorf("unexpected advisor defaults %+v", cfg.Advisor)
	}
	if !cfg.Advisor.FreshnessFilter {
		t.Error("expected freshness filter on by default")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "watch"
log_format = "text"

[manifold]
api_key = "file-key"
bet_limit = 250

[advisor]
fade_threshold = -0.1
min_stake = 10.0
interval = "5m"

[postgres]
dsn = "postgres://u:p@db:5432/bot"

[redis]
addr = "redis:6379"
market_ttl = "30m"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Mode != "watch" || cfg.LogFormat != "text" {
		t.Errorf("unexpected mode/format %s/%s", cfg.Mode, cfg.LogFormat)
	}
	if cfg.Manifold.BetLimit != 250 {
		t.Errorf("expected bet_limit 250, got %d", cfg.Manifold.BetLimit)
	}
	if cfg.Advisor.FadeThreshold != -0.1 || cfg.Advisor.MinStake != 10 {
		t.Errorf("unexpected advisor values %+v", cfg.Advisor)
	}
	if cfg.Advisor.Interval.Duration != 5*time.Minute {
		t.Errorf("expected interval 5m, got %v", cfg.Advisor.Interval.Duration)
	}
	if cfg.Redis.MarketTTL.Duration != 30*time.Minute {
		t.Errorf("expected market_ttl 30m, got %v", cfg.Redis.MarketTTL.Duration)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[manifold]
api_key = "file-key"
`)
	t.Setenv("MANIBOT_MANIFOLD_API_KEY", "env-key")
	t.Setenv("MANIBOT_MANIFOLD_BET_LIMIT", "250")
	t.Setenv("MANIBOT_ADVISOR_INTERVAL", "1h")
	t.Setenv("MANIBOT_ADVISOR_FRESHNESS_FILTER", "false")
	t.Setenv("MANIBOT_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Manifold.APIKey != "env-key" {
		t.Errorf("expected env to beat file, got %q", cfg.Manifold.APIKey)
	}
	if cfg.Manifold.BetLimit != 250 {
		t.Errorf("expected bet_limit 250, got %d", cfg.Manifold.BetLimit)
	}
	if cfg.Advisor.Interval.Duration != time.Hour {
		t.Errorf("expected interval 1h, got %v", cfg.Advisor.Interval.Duration)
	}
	if cfg.Advisor.FreshnessFilter {
		t.Error("expected freshness filter disabled via env")
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("expected origins %v, got %v", want, cfg.Server.CORSOrigins)
	}
}

func TestLoad_MalformedEnvIgnored(t *testing.T) {
	path := writeConfig(t, `
[manifold]
api_key = "file-key"
`)
	t.Setenv("MANIBOT_MANIFOLD_BET_LIMIT", "not-a-number")
	t.Setenv("MANIBOT_ADVISOR_INTERVAL", "soon")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Manifold.BetLimit != 1000 {
		t.Errorf("expected default bet_limit kept, got %d", cfg.Manifold.BetLimit)
	}
	if cfg.Advisor.Interval.Duration != 15*time.Minute {
		t.Errorf("expected default interval kept, got %v", cfg.Advisor.Interval.Duration)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[manifold]
api_key = "file-key"
api_keey = "typo"
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "unknown config keys") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
	if !strings.Contains(err.Error(), "manifold.api_keey") {
		t.Errorf("expected offending key named, got %v", err)
	}
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist for explicit path, got %v", err)
	}
}

func TestLoad_NoFileFallsBackToDefaultsAndEnv(t *testing.T) {
	// Point the home search at an empty directory so no real user config
	// leaks into the test.
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MANIBOT_MANIFOLD_API_KEY", "env-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Manifold.APIKey != "env-key" {
		t.Errorf("expected env credential, got %q", cfg.Manifold.APIKey)
	}
	if cfg.Manifold.BaseURL != "https://manifold.markets/api/v0" {
		t.Errorf("expected default base URL, got %q", cfg.Manifold.BaseURL)
	}
}

func TestLoad_ValidationFailureSurfaces(t *testing.T) {
	path := writeConfig(t, `
mode = "watch"

[manifold]
api_key = "file-key"

[advisor]
interval = "0s"
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "interval must be > 0") {
		t.Fatalf("expected interval validation error, got %v", err)
	}
}
