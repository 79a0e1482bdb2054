package engine

import (
	"github.com/spaelabs/manifoldbot/internal/domain"
)

// GenerateSuggestions converts enriched bets into directional suggestions
// relative to the operator's own score.
//
// Traders scoring above the operator are mirrored: their buys are copied on
// the same outcome, their sells become buys of the opposite outcome, and
// any limit price is carried through. Traders scoring below both the
// operator and fadeThreshold are faded: both buys and sells become buys of
// the opposite outcome, never with a limit. Equal scores produce nothing.
//
// Suggestions whose bankroll fraction is not positive are dropped.
func GenerateSuggestions(enriched []domain.EnrichedBet, operatorScore, fadeThreshold float64) []domain.Suggestion {
	suggestions := make([]domain.Suggestion, 0, len(enriched))

	for _, bet := range enriched {
		base := domain.Suggestion{
			ContractID:       bet.ContractID,
			Action:           domain.ActionBuy,
			BankrollFraction: bet.BankrollFraction,
			Timestamp:        bet.CreatedTime,
			TraderScore:      bet.TraderScore,
		}
		outcome := *bet.Outcome

		switch {
		case bet.TraderScore > operatorScore:
			// Mirror. Their sell closes exposure to the held side, so
			// copying it means buying the other side.
			if bet.OrderType == domain.ActionSell {
				base.Outcome = outcome.Opposite()
			} else {
				base.Outcome = outcome
			}
			base.LimitProb = bet.LimitProb

		case bet.TraderScore < operatorScore && bet.TraderScore < fadeThreshold:
			// Fade. Take the opposite side of whatever they did.
			base.Outcome = outcome.Opposite()

		default:
			continue
		}

		suggestions = append(suggestions, base)
	}

	kept := suggestions[:0]
	for _, s := range suggestions {
		if s.BankrollFraction > 0 {
			kept = append(kept, s)
		}
	}
	return kept
}
