package engine

import (
	"github.com/spaelabs/manifoldbot/internal/domain"
)

// PositionOf derives a user's current net holding in a market by summing
// their YES and NO bet amounts and keeping the side with the larger
// positive sum. Ties and non-positive sums yield no position.
func PositionOf(userID string, market domain.Market) (domain.Position, bool) {
	var sumYes, sumNo float64
	var any bool
	for _, bet := range market.Bets {
		if bet.UserID != userID || bet.Outcome == nil {
			continue
		}
		any = true
		switch *bet.Outcome {
		case domain.OutcomeYes:
			sumYes += bet.Amount
		case domain.OutcomeNo:
			sumNo += bet.Amount
		}
	}
	if !any {
		return domain.Position{}, false
	}

	switch {
	case sumYes > sumNo && sumYes > 0:
		return domain.Position{Outcome: domain.OutcomeYes, Amount: sumYes}, true
	case sumNo > sumYes && sumNo > 0:
		return domain.Position{Outcome: domain.OutcomeNo, Amount: sumNo}, true
	default:
		return domain.Position{}, false
	}
}

// Reconcile compares each aggregated suggestion against the operator's
// existing position in that market and emits the final actions.
//
// No position passes the suggestion through unchanged. A position on the
// same outcome shrinks the buy by the fraction already held; the sign is
// preserved, so an oversized position yields a negative fraction. A
// position on the opposite outcome is either fully sold and replaced
// (aggregate larger) or trimmed down to the target (aggregate smaller);
// sells close at market and never carry a limit. Equal sizes emit nothing.
//
// Failures are per-suggestion skips, never fatal.
func Reconcile(aggregated []domain.AggregatedSuggestion, markets map[string]domain.Market, operator domain.Account) ([]domain.Recommendation, []domain.Skip) {
	var (
		recommendations []domain.Recommendation
		skips           []domain.Skip
	)

	for _, suggestion := range aggregated {
		market, ok := markets[suggestion.ContractID]
		if !ok {
			skips = append(skips, domain.Skip{
				ContractID: suggestion.ContractID,
				Stage:      domain.SkipStageReconcile,
				Reason:     "market detail unavailable",
			})
			continue
		}

		position, held := PositionOf(operator.ID, market)
		if !held {
			recommendations = append(recommendations, domain.Recommendation{
				ContractID:       suggestion.ContractID,
				URL:              suggestion.URL,
				Action:           suggestion.Action,
				Outcome:          suggestion.Outcome,
				BankrollFraction: suggestion.BankrollFraction,
				LimitProb:        suggestion.LimitProb,
			})
			continue
		}

		if operator.Balance == 0 {
			skips = append(skips, domain.Skip{
				ContractID: suggestion.ContractID,
				Stage:      domain.SkipStageReconcile,
				Reason:     "cannot size against position: operator balance is zero",
			})
			continue
		}
		positionFraction := position.Amount / operator.Balance

		if suggestion.Outcome == position.Outcome {
			recommendations = append(recommendations, domain.Recommendation{
				ContractID:       suggestion.ContractID,
				URL:              suggestion.URL,
				Action:           domain.ActionBuy,
				Outcome:          suggestion.Outcome,
				BankrollFraction: suggestion.BankrollFraction - positionFraction,
				LimitProb:        suggestion.LimitProb,
			})
			continue
		}

		switch {
		case suggestion.BankrollFraction > positionFraction:
			// The signal overrides the held side: exit it fully, then
			// buy the new side sized to the difference.
			recommendations = append(recommendations,
				domain.Recommendation{
					ContractID:       suggestion.ContractID,
					URL:              suggestion.URL,
					Action:           domain.ActionSell,
					Outcome:          position.Outcome,
					BankrollFraction: positionFraction,
				},
				domain.Recommendation{
					ContractID:       suggestion.ContractID,
					URL:              suggestion.URL,
					Action:           domain.ActionBuy,
					Outcome:          suggestion.Outcome,
					BankrollFraction: suggestion.BankrollFraction - positionFraction,
					LimitProb:        suggestion.LimitProb,
				},
			)
		case suggestion.BankrollFraction < positionFraction:
			// The held side is merely too big: sell the excess.
			recommendations = append(recommendations, domain.Recommendation{
				ContractID:       suggestion.ContractID,
				URL:              suggestion.URL,
				Action:           domain.ActionSell,
				Outcome:          position.Outcome,
				BankrollFraction: positionFraction - suggestion.BankrollFraction,
			})
		}
	}

	return recommendations, skips
}
