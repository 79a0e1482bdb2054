package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/spaelabs/manifoldbot/internal/blob/s3"
	"github.com/spaelabs/manifoldbot/internal/cache/redis"
	"github.com/spaelabs/manifoldbot/internal/config"
	"github.com/spaelabs/manifoldbot/internal/crypto"
	"github.com/spaelabs/manifoldbot/internal/domain"
	"github.com/spaelabs/manifoldbot/internal/notify"
	"github.com/spaelabs/manifoldbot/internal/platform/manifold"
	"github.com/spaelabs/manifoldbot/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function. Fields stay nil when the configured mode does not need
// the backing service.
type Dependencies struct {
	// Market data
	Provider domain.MarketDataProvider

	// Stores
	RunStore   domain.RunStore
	AuditStore domain.AuditStore

	// Caches
	MarketCache domain.MarketCache
	ScoreCache  domain.ScoreCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.RunArchiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (only for modes that persist or read history) ---
	if cfg.NeedsPostgres() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.RunStore = postgres.NewRunStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
	}

	// --- Redis (only for long-lived modes) ---
	if cfg.NeedsRedis() {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		// Scores outlive a single run interval so API reads between runs
		// still see a ranking.
		scoreTTL := 4 * cfg.Advisor.Interval.Duration
		if scoreTTL <= 0 {
			scoreTTL = time.Hour
		}

		deps.MarketCache = redis.NewMarketCache(redisClient, cfg.Redis.MarketTTL.Duration)
		deps.ScoreCache = redis.NewScoreCache(redisClient, scoreTTL)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- S3 blob storage (only when archival is enabled) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.AuditStore)
	}

	// --- Manifold client (only for modes that talk to the platform) ---
	if cfg.NeedsCredential() {
		apiKey, err := crypto.LoadCredential(crypto.CredentialConfig{
			RawKey:           cfg.Manifold.APIKey,
			EncryptedKeyPath: cfg.Manifold.EncryptedKeyPath,
			KeyPassword:      cfg.Manifold.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: credential: %w", err)
		}

		client := manifold.NewClient(cfg.Manifold.BaseURL, apiKey)
		client.SetUserPageSize(cfg.Manifold.UserPageSize)
		if deps.RateLimiter != nil && cfg.Manifold.RateLimitPerMinute > 0 {
			client.SetRateLimiter(deps.RateLimiter, cfg.Manifold.RateLimitPerMinute)
		}
		deps.Provider = client
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
