package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// fakeProvider serves canned platform data and records what was asked of it.
type fakeProvider struct {
	traders    []domain.Trader
	bets       []domain.Bet
	operator   domain.Account
	markets    map[string]domain.Market
	usersErr   error
	betsErr    error
	accountErr error
	marketErr  map[string]error

	gotBetLimit int
	marketCalls map[string]int
}

func (f *fakeProvider) ListUsers(ctx context.Context) ([]domain.Trader, error) {
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return f.traders, nil
}

func (f *fakeProvider) ListRecentBets(ctx context.Context, limit int) ([]domain.Bet, error) {
	f.gotBetLimit = limit
	if f.betsErr != nil {
		return nil, f.betsErr
	}
	return f.bets, nil
}

func (f *fakeProvider) CurrentAccount(ctx context.Context) (domain.Account, error) {
	if f.accountErr != nil {
		return domain.Account{}, f.accountErr
	}
	return f.operator, nil
}

func (f *fakeProvider) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	if f.marketCalls == nil {
		f.marketCalls = make(map[string]int)
	}
	f.marketCalls[id]++
	if err := f.marketErr[id]; err != nil {
		return domain.Market{}, err
	}
	m, ok := f.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

// fakeMarketCache is an in-memory domain.MarketCache.
type fakeMarketCache struct {
	stored map[string]domain.Market
}

func newFakeMarketCache() *fakeMarketCache {
	return &fakeMarketCache{stored: make(map[string]domain.Market)}
}

func (c *fakeMarketCache) Set(ctx context.Context, market domain.Market) error {
	c.stored[market.ID] = market
	return nil
}

func (c *fakeMarketCache) Get(ctx context.Context, id string) (domain.Market, error) {
	m, ok := c.stored[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (c *fakeMarketCache) Invalidate(ctx context.Context, id string) error {
	delete(c.stored, id)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(p *fakeProvider, cache domain.MarketCache, freshness bool) *Pipeline {
	return NewPipeline(PipelineConfig{
		Provider:        p,
		Cache:           cache,
		Logger:          discardLogger(),
		BetLimit:        500,
		FadeThreshold:   -0.2,
		FreshnessFilter: freshness,
	})
}

// scenarioProvider builds the standard two-signal scenario: a 20-trader
// ladder where X (score 0.9) buys YES and Y (score -0.5) sells YES in m1,
// while the operator (score 0) has no exposure there.
func scenarioProvider() *fakeProvider {
	named := map[int]string{0: "X", 9: "op", 14: "Y"}
	traders := make([]domain.Trader, 0, 20)
	for i := 0; i < 20; i++ {
		id := named[i]
		if id == "" {
			id = fmt.Sprintf("t%02d", i)
		}
		traders = append(traders, domain.Trader{
			ID:            id,
			Balance:       1000,
			TotalDeposits: 100,
			Profit:        10000 - 500*float64(i),
		})
	}

	xBuy := liveBet("X", "m1", domain.OutcomeYes, 100, 100)
	ySell := liveBet("Y", "m1", domain.OutcomeYes, -50, -50)

	return &fakeProvider{
		traders:  traders,
		bets:     []domain.Bet{xBuy, ySell},
		operator: domain.Account{ID: "op", Username: "operator", Balance: 1000},
		markets: map[string]domain.Market{
			"m1": {
				ID:   "m1",
				URL:  "https://manifold.markets/m1",
				Bets: []domain.Bet{xBuy, ySell},
			},
		},
	}
}

// --- Pipeline tests ---

func TestPipeline_FullRun(t *testing.T) {
	provider := scenarioProvider()
	pipeline := newTestPipeline(provider, nil, true)

	res, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.gotBetLimit != 500 {
		t.Errorf("expected bet limit 500 passed through, got %d", provider.gotBetLimit)
	}
	if res.Operator.ID != "op" || res.Operator.Balance != 1000 {
		t.Errorf("unexpected operator %+v", res.Operator)
	}
	if !res.OperatorRanked || !approxEqual(res.OperatorScore, 0) {
		t.Errorf("expected operator ranked at score 0, got ranked=%v score=%g", res.OperatorRanked, res.OperatorScore)
	}

	if len(res.Ranked) != 20 {
		t.Fatalf("expected 20 ranked traders, got %d", len(res.Ranked))
	}
	if res.Ranked[0].ID != "X" || !approxEqual(res.Ranked[0].Score, 0.9) {
		t.Errorf("expected X ranked first at 0.9, got %s %g", res.Ranked[0].ID, res.Ranked[0].Score)
	}
	if res.Ranked[14].ID != "Y" || !approxEqual(res.Ranked[14].Score, -0.5) {
		t.Errorf("expected Y ranked 15th at -0.5, got %s %g", res.Ranked[14].ID, res.Ranked[14].Score)
	}

	if res.BetsFetched != 2 || res.BetsEnriched != 2 {
		t.Errorf("expected 2 bets fetched and enriched, got %d and %d", res.BetsFetched, res.BetsEnriched)
	}
	if len(res.Suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(res.Suggestions))
	}
	if res.MarketsFetched != 1 {
		t.Errorf("expected 1 market fetched, got %d", res.MarketsFetched)
	}
	if len(res.Skips) != 0 {
		t.Errorf("expected no skips, got %+v", res.Skips)
	}

	if len(res.Aggregated) != 1 {
		t.Fatalf("expected 1 aggregated suggestion, got %d", len(res.Aggregated))
	}
	if len(res.Recommendations) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(res.Recommendations))
	}
	rec := res.Recommendations[0]
	if rec.ContractID != "m1" || rec.Action != domain.ActionBuy || rec.Outcome != domain.OutcomeYes {
		t.Errorf("expected buy YES in m1, got %+v", rec)
	}
	// Mirror weight 0.1*0.9 against fade weight 0.05*0.5.
	if !approxEqual(rec.BankrollFraction, 0.065) {
		t.Errorf("expected net fraction 0.065, got %g", rec.BankrollFraction)
	}
	if rec.URL != "https://manifold.markets/m1" {
		t.Errorf("expected market URL on recommendation, got %q", rec.URL)
	}
}

func TestPipeline_FetchErrorsAreFatal(t *testing.T) {
	boom := errors.New("boom")

	cases := []struct {
		name string
		prep func(*fakeProvider)
	}{
		{"users", func(f *fakeProvider) { f.usersErr = boom }},
		{"account", func(f *fakeProvider) { f.accountErr = boom }},
		{"bets", func(f *fakeProvider) { f.betsErr = boom }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := scenarioProvider()
			tc.prep(provider)
			pipeline := newTestPipeline(provider, nil, false)

			res, err := pipeline.Run(context.Background())
			if !errors.Is(err, boom) {
				t.Fatalf("expected wrapped fetch error, got %v", err)
			}
			if res != nil {
				t.Errorf("expected nil result on fatal error, got %+v", res)
			}
		})
	}
}

func TestPipeline_NoRankableTraders(t *testing.T) {
	provider := scenarioProvider()
	for i := range provider.traders {
		provider.traders[i].TotalDeposits = 0
	}
	pipeline := newTestPipeline(provider, nil, false)

	res, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Ranked) != 0 || len(res.Recommendations) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
	if provider.gotBetLimit != 0 {
		t.Errorf("expected bet fetch to be skipped, got limit %d", provider.gotBetLimit)
	}
}

func TestPipeline_MarketFetchFailureBecomesSkip(t *testing.T) {
	provider := scenarioProvider()
	provider.marketErr = map[string]error{"m1": errors.New("rate limited")}
	pipeline := newTestPipeline(provider, nil, false)

	res, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("expected per-market failure to stay non-fatal, got %v", err)
	}
	if len(res.Skips) != 1 || res.Skips[0].Stage != domain.SkipStageFetch {
		t.Fatalf("expected 1 fetch-stage skip, got %+v", res.Skips)
	}
	if len(res.Suggestions) != 0 {
		t.Errorf("expected suggestions for the failed market dropped, got %d", len(res.Suggestions))
	}
	if len(res.Recommendations) != 0 {
		t.Errorf("expected no recommendations, got %d", len(res.Recommendations))
	}
}

func TestPipeline_CacheHitSkipsProvider(t *testing.T) {
	provider := scenarioProvider()
	cache := newFakeMarketCache()
	cache.stored["m1"] = provider.markets["m1"]
	pipeline := newTestPipeline(provider, cache, false)

	res, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.marketCalls["m1"] != 0 {
		t.Errorf("expected cached market to skip the provider, got %d calls", provider.marketCalls["m1"])
	}
	if len(res.Recommendations) != 1 {
		t.Errorf("expected 1 recommendation from cached detail, got %d", len(res.Recommendations))
	}
}

func TestPipeline_CacheMissFetchesAndStores(t *testing.T) {
	provider := scenarioProvider()
	cache := newFakeMarketCache()
	pipeline := newTestPipeline(provider, cache, false)

	if _, err := pipeline.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.marketCalls["m1"] != 1 {
		t.Errorf("expected exactly one provider fetch, got %d", provider.marketCalls["m1"])
	}
	if _, ok := cache.stored["m1"]; !ok {
		t.Error("expected fetched market written back to the cache")
	}
}

func TestPipeline_FreshnessFilterDropsStaleSignals(t *testing.T) {
	provider := scenarioProvider()
	market := provider.markets["m1"]
	market.Bets = append(market.Bets, domain.Bet{
		UserID:      "op",
		ContractID:  "m1",
		CreatedTime: betTime.Add(time.Hour),
	})
	provider.markets["m1"] = market
	pipeline := newTestPipeline(provider, nil, true)

	res, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Suggestions) != 0 {
		t.Errorf("expected all suggestions dropped as stale, got %d", len(res.Suggestions))
	}
	if len(res.Recommendations) != 0 {
		t.Errorf("expected no recommendations, got %d", len(res.Recommendations))
	}
	if res.MarketsFetched != 1 {
		t.Errorf("expected market still fetched, got %d", res.MarketsFetched)
	}
}
