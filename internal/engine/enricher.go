package engine

import (
	"math"
	"sort"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// EnrichBets validates raw bets and attaches the placing trader's score,
// the fraction of their bankroll the bet represents, and a buy/sell order
// classification.
//
// A bet survives only when it is binary and not cancelled, its trader is
// ranked, and its order amount is present with a nonzero sign. The result
// is sorted ascending by trader score, which fixes the order every later
// stage sees.
func EnrichBets(bets []domain.Bet, ranked []domain.ScoredTrader) []domain.EnrichedBet {
	idx := ScoreIndex(ranked)

	enriched := make([]domain.EnrichedBet, 0, len(bets))
	for _, bet := range bets {
		if !bet.Binary() {
			continue
		}

		trader, ok := idx[bet.UserID]
		if !ok {
			continue
		}

		if bet.OrderAmount == nil || *bet.OrderAmount == 0 {
			continue
		}
		orderType := domain.ActionBuy
		if *bet.OrderAmount < 0 {
			orderType = domain.ActionSell
		}

		// Fraction of the trader's bankroll this bet commits, capped at
		// 1. A zero balance yields 0 rather than dividing.
		var fraction float64
		if trader.Balance != 0 {
			fraction = math.Abs(bet.Amount) / trader.Balance
			if fraction > 1 {
				fraction = 1
			}
		}

		enriched = append(enriched, domain.EnrichedBet{
			Bet:              bet,
			TraderScore:      trader.Score,
			BankrollFraction: fraction,
			OrderType:        orderType,
		})
	}

	sort.SliceStable(enriched, func(i, j int) bool {
		return enriched[i].TraderScore < enriched[j].TraderScore
	})

	return enriched
}
