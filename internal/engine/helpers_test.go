package engine

import (
	"time"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// betTime is the base timestamp for bet fixtures; tests that care about
// ordering shift from it.
var betTime = time.Date(2026, 5, 12, 10, 0, 0, 0, time.UTC)

// liveBet builds a valid uncancelled binary bet. A negative orderAmount
// classifies as a sell.
func liveBet(userID, contractID string, outcome domain.Outcome, amount, orderAmount float64) domain.Bet {
	cancelled := false
	return domain.Bet{
		ID:          userID + ":" + contractID,
		UserID:      userID,
		ContractID:  contractID,
		CreatedTime: betTime,
		Amount:      amount,
		Outcome:     &outcome,
		OrderAmount: &orderAmount,
		IsCancelled: &cancelled,
	}
}

// scoredTrader builds a ranked trader with a fixed score.
func scoredTrader(id string, score, balance float64) domain.ScoredTrader {
	return domain.ScoredTrader{
		Trader: domain.Trader{ID: id, Balance: balance},
		Score:  score,
	}
}

// enrichedBet builds an enriched bet directly, bypassing EnrichBets.
func enrichedBet(contractID string, outcome domain.Outcome, orderType domain.Action, score, fraction float64, limit *float64) domain.EnrichedBet {
	cancelled := false
	return domain.EnrichedBet{
		Bet: domain.Bet{
			ContractID:  contractID,
			CreatedTime: betTime,
			Outcome:     &outcome,
			IsCancelled: &cancelled,
			LimitProb:   limit,
		},
		TraderScore:      score,
		BankrollFraction: fraction,
		OrderType:        orderType,
	}
}

// suggestion builds a buy suggestion for aggregation tests.
func suggestion(contractID string, outcome domain.Outcome, fraction, score float64, limit *float64) domain.Suggestion {
	return domain.Suggestion{
		ContractID:       contractID,
		Action:           domain.ActionBuy,
		Outcome:          outcome,
		BankrollFraction: fraction,
		LimitProb:        limit,
		Timestamp:        betTime,
		TraderScore:      score,
	}
}

func floatPtr(v float64) *float64 { return &v }

// approxEqual reports whether two floats agree within a fixed tolerance.
func approxEqual(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}
