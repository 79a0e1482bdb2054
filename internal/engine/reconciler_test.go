package engine

import (
	"testing"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// aggBuy builds an aggregated buy suggestion for reconciliation tests.
func aggBuy(contractID string, outcome domain.Outcome, fraction float64, limit *float64) domain.AggregatedSuggestion {
	return domain.AggregatedSuggestion{
		ContractID:       contractID,
		Action:           domain.ActionBuy,
		Outcome:          outcome,
		BankrollFraction: fraction,
		LimitProb:        limit,
		URL:              "https://manifold.markets/" + contractID,
	}
}

// --- PositionOf tests ---

func TestPositionOf_NetYes(t *testing.T) {
	market := domain.Market{ID: "m1", Bets: []domain.Bet{
		liveBet("op", "m1", domain.OutcomeYes, 100, 100),
		liveBet("op", "m1", domain.OutcomeYes, 50, 50),
		liveBet("op", "m1", domain.OutcomeNo, 30, 30),
		liveBet("other", "m1", domain.OutcomeNo, 500, 500),
	}}

	pos, held := PositionOf("op", market)
	if !held {
		t.Fatal("expected a position")
	}
	if pos.Outcome != domain.OutcomeYes || pos.Amount != 150 {
		t.Errorf("expected YES 150, got %s %g", pos.Outcome, pos.Amount)
	}
}

func TestPositionOf_NetNo(t *testing.T) {
	market := domain.Market{ID: "m1", Bets: []domain.Bet{
		liveBet("op", "m1", domain.OutcomeYes, 20, 20),
		liveBet("op", "m1", domain.OutcomeNo, 80, 80),
	}}

	pos, held := PositionOf("op", market)
	if !held {
		t.Fatal("expected a position")
	}
	if pos.Outcome != domain.OutcomeNo || pos.Amount != 80 {
		t.Errorf("expected NO 80, got %s %g", pos.Outcome, pos.Amount)
	}
}

func TestPositionOf_NoBets(t *testing.T) {
	market := domain.Market{ID: "m1", Bets: []domain.Bet{
		liveBet("other", "m1", domain.OutcomeYes, 100, 100),
	}}

	if _, held := PositionOf("op", market); held {
		t.Error("expected no position for a user with no bets")
	}
}

func TestPositionOf_TieIsNoPosition(t *testing.T) {
	market := domain.Market{ID: "m1", Bets: []domain.Bet{
		liveBet("op", "m1", domain.OutcomeYes, 50, 50),
		liveBet("op", "m1", domain.OutcomeNo, 50, 50),
	}}

	if _, held := PositionOf("op", market); held {
		t.Error("expected tied sides to yield no position")
	}
}

func TestPositionOf_SoldOut(t *testing.T) {
	// A bought-then-sold holding nets to a non-positive sum.
	market := domain.Market{ID: "m1", Bets: []domain.Bet{
		liveBet("op", "m1", domain.OutcomeYes, 100, 100),
		liveBet("op", "m1", domain.OutcomeYes, -150, -150),
	}}

	if _, held := PositionOf("op", market); held {
		t.Error("expected net-sold holding to yield no position")
	}
}

func TestPositionOf_IgnoresBetsWithoutOutcome(t *testing.T) {
	noOutcome := liveBet("op", "m1", domain.OutcomeYes, 100, 100)
	noOutcome.Outcome = nil
	market := domain.Market{ID: "m1", Bets: []domain.Bet{noOutcome}}

	if _, held := PositionOf("op", market); held {
		t.Error("expected bet without outcome to be ignored")
	}
}

// --- Reconcile tests ---

func TestReconcile_NoPositionPassesThrough(t *testing.T) {
	agg := []domain.AggregatedSuggestion{aggBuy("m1", domain.OutcomeYes, 0.065, floatPtr(0.6))}
	markets := map[string]domain.Market{"m1": {ID: "m1"}}
	operator := domain.Account{ID: "op", Balance: 1000}

	recs, skips := Reconcile(agg, markets, operator)
	if len(skips) != 0 {
		t.Fatalf("expected no skips, got %d", len(skips))
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	r := recs[0]
	if r.Action != domain.ActionBuy || r.Outcome != domain.OutcomeYes {
		t.Errorf("expected buy YES, got %s %s", r.Action, r.Outcome)
	}
	if !approxEqual(r.BankrollFraction, 0.065) {
		t.Errorf("expected fraction 0.065, got %g", r.BankrollFraction)
	}
	if r.LimitProb == nil || *r.LimitProb != 0.6 {
		t.Errorf("expected limit carried through, got %v", r.LimitProb)
	}
	if r.URL != "https://manifold.markets/m1" {
		t.Errorf("expected URL carried through, got %q", r.URL)
	}
}

func TestReconcile_ZeroBalanceWithPositionSkips(t *testing.T) {
	agg := []domain.AggregatedSuggestion{aggBuy("m1", domain.OutcomeYes, 0.1, nil)}
	markets := map[string]domain.Market{"m1": {ID: "m1", Bets: []domain.Bet{
		liveBet("op", "m1", domain.OutcomeYes, 100, 100),
	}}}
	operator := domain.Account{ID: "op", Balance: 0}

	recs, skips := Reconcile(agg, markets, operator)
	if len(recs) != 0 {
		t.Fatalf("expected no recommendations, got %d", len(recs))
	}
	if len(skips) != 1 || skips[0].Stage != domain.SkipStageReconcile {
		t.Fatalf("expected 1 reconcile-stage skip, got %+v", skips)
	}
}

func TestReconcile_SameOutcomeShrinksBuy(t *testing.T) {
	agg := []domain.AggregatedSuggestion{aggBuy("m1", domain.OutcomeYes, 0.1, floatPtr(0.7))}
	markets := map[string]domain.Market{"m1": {ID: "m1", Bets: []domain.Bet{
		liveBet("op", "m1", domain.OutcomeYes, 50, 50),
	}}}
	operator := domain.Account{ID: "op", Balance: 1000}

	recs, _ := Reconcile(agg, markets, operator)
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	if recs[0].Action != domain.ActionBuy {
		t.Errorf("expected buy, got %s", recs[0].Action)
	}
	if !approxEqual(recs[0].BankrollFraction, 0.05) {
		t.Errorf("expected fraction 0.05 after held 0.05, got %g", recs[0].BankrollFraction)
	}
	if recs[0].LimitProb == nil || *recs[0].LimitProb != 0.7 {
		t.Errorf("expected limit kept on same-side buy, got %v", recs[0].LimitProb)
	}
}

func TestReconcile_SameOutcomeOversizedGoesNegative(t *testing.T) {
	agg := []domain.AggregatedSuggestion{aggBuy("m1", domain.OutcomeYes, 0.1, nil)}
	markets := map[string]domain.Market{"m1": {ID: "m1", Bets: []domain.Bet{
		liveBet("op", "m1", domain.OutcomeYes, 120, 120),
	}}}
	operator := domain.Account{ID: "op", Balance: 1000}

	recs, _ := Reconcile(agg, markets, operator)
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	if !approxEqual(recs[0].BankrollFraction, -0.02) {
		t.Errorf("expected fraction -0.02 for oversized position, got %g", recs[0].BankrollFraction)
	}
}

func TestReconcile_OppositeLargerSellsThenBuys(t *testing.T) {
	agg := []domain.AggregatedSuggestion{aggBuy("m1", domain.OutcomeYes, 0.1, floatPtr(0.6))}
	markets := map[string]domain.Market{"m1": {ID: "m1", Bets: []domain.Bet{
		liveBet("op", "m1", domain.OutcomeNo, 50, 50),
	}}}
	operator := domain.Account{ID: "op", Balance: 1000}

	recs, _ := Reconcile(agg, markets, operator)
	if len(recs) != 2 {
		t.Fatalf("expected sell+buy pair, got %d recommendations", len(recs))
	}
	sell, buy := recs[0], recs[1]
	if sell.Action != domain.ActionSell || sell.Outcome != domain.OutcomeNo {
		t.Errorf("expected sell NO first, got %s %s", sell.Action, sell.Outcome)
	}
	if !approxEqual(sell.BankrollFraction, 0.05) {
		t.Errorf("expected full position 0.05 sold, got %g", sell.BankrollFraction)
	}
	if sell.LimitProb != nil {
		t.Errorf("expected sell without limit, got %v", *sell.LimitProb)
	}
	if buy.Action != domain.ActionBuy || buy.Outcome != domain.OutcomeYes {
		t.Errorf("expected buy YES second, got %s %s", buy.Action, buy.Outcome)
	}
	if !approxEqual(buy.BankrollFraction, 0.05) {
		t.Errorf("expected buy sized to the difference 0.05, got %g", buy.BankrollFraction)
	}
	if buy.LimitProb == nil || *buy.LimitProb != 0.6 {
		t.Errorf("expected buy to keep the limit, got %v", buy.LimitProb)
	}
}

func TestReconcile_OppositeSmallerTrimsExcess(t *testing.T) {
	agg := []domain.AggregatedSuggestion{aggBuy("m1", domain.OutcomeYes, 0.1, nil)}
	markets := map[string]domain.Market{"m1": {ID: "m1", Bets: []domain.Bet{
		liveBet("op", "m1", domain.OutcomeNo, 150, 150),
	}}}
	operator := domain.Account{ID: "op", Balance: 1000}

	recs, _ := Reconcile(agg, markets, operator)
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	if recs[0].Action != domain.ActionSell || recs[0].Outcome != domain.OutcomeNo {
		t.Errorf("expected sell NO, got %s %s", recs[0].Action, recs[0].Outcome)
	}
	if !approxEqual(recs[0].BankrollFraction, 0.05) {
		t.Errorf("expected excess 0.05 sold, got %g", recs[0].BankrollFraction)
	}
}

func TestReconcile_OppositeEqualEmitsNothing(t *testing.T) {
	agg := []domain.AggregatedSuggestion{aggBuy("m1", domain.OutcomeYes, 0.1, nil)}
	markets := map[string]domain.Market{"m1": {ID: "m1", Bets: []domain.Bet{
		liveBet("op", "m1", domain.OutcomeNo, 100, 100),
	}}}
	operator := domain.Account{ID: "op", Balance: 1000}

	recs, skips := Reconcile(agg, markets, operator)
	if len(recs) != 0 || len(skips) != 0 {
		t.Errorf("expected nothing for an exactly-sized opposite position, got %d recs %d skips", len(recs), len(skips))
	}
}

func TestReconcile_MissingMarketSkips(t *testing.T) {
	agg := []domain.AggregatedSuggestion{aggBuy("m1", domain.OutcomeYes, 0.1, nil)}
	operator := domain.Account{ID: "op", Balance: 1000}

	recs, skips := Reconcile(agg, map[string]domain.Market{}, operator)
	if len(recs) != 0 {
		t.Fatalf("expected no recommendations, got %d", len(recs))
	}
	if len(skips) != 1 || skips[0].ContractID != "m1" {
		t.Fatalf("expected skip for m1, got %+v", skips)
	}
}
