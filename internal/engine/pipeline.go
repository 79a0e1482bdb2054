package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// Pipeline runs one complete advisory pass: fetch, score, enrich, signal,
// aggregate, reconcile. Each stage is a pure transformation; only the
// fetches touch the network, one blocking call at a time.
type Pipeline struct {
	provider  domain.MarketDataProvider
	cache     domain.MarketCache
	logger    *slog.Logger
	betLimit  int
	fadeLimit float64
	freshness bool
}

// PipelineConfig configures a Pipeline. Cache is optional; when nil every
// market detail is fetched from the provider.
type PipelineConfig struct {
	Provider        domain.MarketDataProvider
	Cache           domain.MarketCache
	Logger          *slog.Logger
	BetLimit        int
	FadeThreshold   float64
	FreshnessFilter bool
}

// NewPipeline creates a Pipeline from the given configuration.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		provider:  cfg.Provider,
		cache:     cfg.Cache,
		logger:    cfg.Logger.With(slog.String("component", "pipeline")),
		betLimit:  cfg.BetLimit,
		fadeLimit: cfg.FadeThreshold,
		freshness: cfg.FreshnessFilter,
	}
}

// Result holds everything one advisory pass produced, including the
// per-item skips accumulated along the way.
type Result struct {
	Operator       domain.Account
	OperatorScore  float64
	OperatorRanked bool

	Ranked       []domain.ScoredTrader
	BetsFetched  int
	BetsEnriched int

	Suggestions     []domain.Suggestion
	Aggregated      []domain.AggregatedSuggestion
	Recommendations []domain.Recommendation
	Skips           []domain.Skip
	MarketsFetched  int
}

// Run executes one advisory pass. Platform-wide fetch failures (users,
// bets, own account) are fatal; everything after degrades per item, so a
// run can only fail before any signal exists. Degenerate inputs produce an
// empty result, not an error.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	traders, err := p.provider.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: list users: %w", err)
	}
	p.logger.Info("users fetched", slog.Int("count", len(traders)))

	ranked := RankTraders(traders)
	res.Ranked = ranked
	p.logger.Info("traders ranked", slog.Int("count", len(ranked)))

	operator, err := p.provider.CurrentAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: current account: %w", err)
	}
	res.Operator = operator

	if len(ranked) == 0 {
		p.logger.Warn("no rankable traders, producing no suggestions")
		return res, nil
	}

	res.OperatorScore, res.OperatorRanked = OperatorScore(ranked, operator.ID)
	if !res.OperatorRanked {
		p.logger.Warn("operator not ranked, comparing against neutral score",
			slog.String("operator_id", operator.ID))
	}

	bets, err := p.provider.ListRecentBets(ctx, p.betLimit)
	if err != nil {
		return nil, fmt.Errorf("pipeline: list recent bets: %w", err)
	}
	res.BetsFetched = len(bets)
	p.logger.Info("bets fetched", slog.Int("count", len(bets)))

	enriched := EnrichBets(bets, ranked)
	res.BetsEnriched = len(enriched)
	p.logger.Info("bets enriched", slog.Int("count", len(enriched)))

	suggestions := GenerateSuggestions(enriched, res.OperatorScore, p.fadeLimit)
	p.logger.Info("suggestions generated", slog.Int("count", len(suggestions)))
	if len(suggestions) == 0 {
		res.Suggestions = suggestions
		return res, nil
	}

	markets, fetchSkips := p.fetchMarkets(ctx, marketIDs(suggestions))
	res.MarketsFetched = len(markets)
	res.Skips = append(res.Skips, fetchSkips...)

	kept := suggestions[:0]
	for _, s := range suggestions {
		if _, ok := markets[s.ContractID]; ok {
			kept = append(kept, s)
		}
	}
	suggestions = kept

	if p.freshness {
		before := len(suggestions)
		suggestions = FilterStale(suggestions, markets, operator.ID)
		p.logger.Info("stale suggestions filtered",
			slog.Int("dropped", before-len(suggestions)),
			slog.Int("remaining", len(suggestions)))
	}
	res.Suggestions = suggestions

	aggregated, aggSkips := Aggregate(suggestions, markets)
	res.Aggregated = aggregated
	res.Skips = append(res.Skips, aggSkips...)
	p.logger.Info("suggestions aggregated",
		slog.Int("markets", len(aggregated)),
		slog.Int("skips", len(aggSkips)))

	recommendations, recSkips := Reconcile(aggregated, markets, operator)
	res.Recommendations = recommendations
	res.Skips = append(res.Skips, recSkips...)
	p.logger.Info("positions reconciled",
		slog.Int("recommendations", len(recommendations)),
		slog.Int("skips", len(recSkips)))

	return res, nil
}

// fetchMarkets retrieves detail for every listed market, trying the cache
// first when one is configured. Failed fetches become skips, not errors.
func (p *Pipeline) fetchMarkets(ctx context.Context, ids []string) (map[string]domain.Market, []domain.Skip) {
	markets := make(map[string]domain.Market, len(ids))
	var skips []domain.Skip

	for _, id := range ids {
		if p.cache != nil {
			if m, err := p.cache.Get(ctx, id); err == nil {
				markets[id] = m
				continue
			}
		}

		m, err := p.provider.GetMarket(ctx, id)
		if err != nil {
			p.logger.Warn("market fetch failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()))
			skips = append(skips, domain.Skip{
				ContractID: id,
				Stage:      domain.SkipStageFetch,
				Reason:     err.Error(),
			})
			continue
		}
		markets[id] = m

		if p.cache != nil {
			if err := p.cache.Set(ctx, m); err != nil {
				p.logger.Warn("market cache write failed",
					slog.String("market_id", id),
					slog.String("error", err.Error()))
			}
		}
	}

	return markets, skips
}

// marketIDs returns the distinct market IDs in first-appearance order.
func marketIDs(suggestions []domain.Suggestion) []string {
	seen := make(map[string]bool, len(suggestions))
	var ids []string
	for _, s := range suggestions {
		if !seen[s.ContractID] {
			seen[s.ContractID] = true
			ids = append(ids, s.ContractID)
		}
	}
	return ids
}
