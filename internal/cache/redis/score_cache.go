package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// ScoreCache implements domain.ScoreCache using two keys per ranking: the
// full ranked list as JSON under "scores:ranked" and a hash of trader ID to
// score under "scores:byid" for cheap single lookups. Both are written
// together after each advisory run and share one TTL.
type ScoreCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewScoreCache creates a ScoreCache backed by the given Client. Entries
// expire after ttl; size it to a small multiple of the run interval.
func NewScoreCache(c *Client, ttl time.Duration) *ScoreCache {
	return &ScoreCache{rdb: c.Underlying(), ttl: ttl}
}

const (
	scoresRankedKey = "scores:ranked"
	scoresByIDKey   = "scores:byid"
)

// SetScores replaces the cached ranking.
func (sc *ScoreCache) SetScores(ctx context.Context, traders []domain.ScoredTrader) error {
	data, err := json.Marshal(traders)
	if err != nil {
		return fmt.Errorf("redis: marshal scores: %w", err)
	}

	byID := make(map[string]interface{}, len(traders))
	for _, t := range traders {
		byID[t.ID] = strconv.FormatFloat(t.Score, 'f', -1, 64)
	}

	pipe := sc.rdb.TxPipeline()
	pipe.Set(ctx, scoresRankedKey, data, sc.ttl)
	pipe.Del(ctx, scoresByIDKey)
	if len(byID) > 0 {
		pipe.HSet(ctx, scoresByIDKey, byID)
		pipe.Expire(ctx, scoresByIDKey, sc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set scores: %w", err)
	}
	return nil
}

// GetScores returns the cached ranking, best trader first. It returns
// domain.ErrNotFound when no ranking has been cached or it has expired.
func (sc *ScoreCache) GetScores(ctx context.Context) ([]domain.ScoredTrader, error) {
	data, err := sc.rdb.Get(ctx, scoresRankedKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get scores: %w", err)
	}

	var traders []domain.ScoredTrader
	if err := json.Unmarshal(data, &traders); err != nil {
		return nil, fmt.Errorf("redis: unmarshal scores: %w", err)
	}
	return traders, nil
}

// GetScore returns one trader's cached score. It returns
// domain.ErrNotFound when the trader is not in the cached ranking.
func (sc *ScoreCache) GetScore(ctx context.Context, traderID string) (float64, error) {
	val, err := sc.rdb.HGet(ctx, scoresByIDKey, traderID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("redis: get score %s: %w", traderID, err)
	}

	score, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("redis: parse score %s: %w", traderID, err)
	}
	return score, nil
}

// Compile-time interface check.
var _ domain.ScoreCache = (*ScoreCache)(nil)
