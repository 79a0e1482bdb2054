package engine

import (
	"testing"
	"time"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// --- FilterStale tests ---

func TestFilterStale_KeepsUntouchedMarket(t *testing.T) {
	suggestions := []domain.Suggestion{suggestion("m1", domain.OutcomeYes, 0.1, 0.5, nil)}
	markets := map[string]domain.Market{
		"m1": {ID: "m1", Bets: []domain.Bet{
			{UserID: "someone-else", CreatedTime: betTime.Add(time.Hour)},
		}},
	}

	got := FilterStale(suggestions, markets, "op")
	if len(got) != 1 {
		t.Errorf("expected suggestion kept in market the operator never bet, got %d", len(got))
	}
}

func TestFilterStale_DropsOlderThanOperatorBet(t *testing.T) {
	suggestions := []domain.Suggestion{suggestion("m1", domain.OutcomeYes, 0.1, 0.5, nil)}
	markets := map[string]domain.Market{
		"m1": {ID: "m1", Bets: []domain.Bet{
			{UserID: "op", CreatedTime: betTime.Add(time.Minute)},
		}},
	}

	if got := FilterStale(suggestions, markets, "op"); len(got) != 0 {
		t.Errorf("expected stale suggestion dropped, got %d", len(got))
	}
}

func TestFilterStale_KeepsNewerThanOperatorBet(t *testing.T) {
	suggestions := []domain.Suggestion{suggestion("m1", domain.OutcomeYes, 0.1, 0.5, nil)}
	markets := map[string]domain.Market{
		"m1": {ID: "m1", Bets: []domain.Bet{
			{UserID: "op", CreatedTime: betTime.Add(-time.Hour)},
			{UserID: "op", CreatedTime: betTime.Add(-time.Minute)},
		}},
	}

	got := FilterStale(suggestions, markets, "op")
	if len(got) != 1 {
		t.Errorf("expected fresh suggestion kept, got %d", len(got))
	}
}

func TestFilterStale_EqualTimestampIsStale(t *testing.T) {
	suggestions := []domain.Suggestion{suggestion("m1", domain.OutcomeYes, 0.1, 0.5, nil)}
	markets := map[string]domain.Market{
		"m1": {ID: "m1", Bets: []domain.Bet{
			{UserID: "op", CreatedTime: betTime},
		}},
	}

	if got := FilterStale(suggestions, markets, "op"); len(got) != 0 {
		t.Errorf("expected suggestion at the exact operator bet time dropped, got %d", len(got))
	}
}

func TestFilterStale_DropsMissingMarket(t *testing.T) {
	suggestions := []domain.Suggestion{suggestion("m1", domain.OutcomeYes, 0.1, 0.5, nil)}

	if got := FilterStale(suggestions, map[string]domain.Market{}, "op"); len(got) != 0 {
		t.Errorf("expected suggestion dropped when its market is missing, got %d", len(got))
	}
}
