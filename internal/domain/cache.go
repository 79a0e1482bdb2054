package domain

import (
	"context"
	"time"
)

// MarketCache caches market detail across advisory runs. The per-run
// memoization inside the engine is separate and always on; this cache only
// spares repeated platform fetches between runs in long-lived modes.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, id string) (Market, error)
	Invalidate(ctx context.Context, id string) error
}

// ScoreCache holds the most recent trader ranking so API reads can serve
// scores without waiting for the next advisory run.
type ScoreCache interface {
	SetScores(ctx context.Context, traders []ScoredTrader) error
	GetScores(ctx context.Context) ([]ScoredTrader, error)
	GetScore(ctx context.Context, traderID string) (float64, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub fan-out and durable streams for run events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
