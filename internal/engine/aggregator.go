package engine

import (
	"math"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// Aggregate pits same-market suggestions against each other, producing at
// most one net buy signal per market.
//
// Only buy suggestions participate. Each side's weighted signal is the mean
// of bankrollFraction * |traderScore| over that side's suggestions; the
// stronger side wins the outcome. When both sides are present the net
// fraction is the signed YES-minus-NO difference, so a market where NO
// dominates carries a negative fraction. The net limit price averages
// whichever sides supplied one.
//
// Markets are processed in first-appearance order. A market missing from
// the map is recorded as a skip rather than failing the run.
func Aggregate(suggestions []domain.Suggestion, markets map[string]domain.Market) ([]domain.AggregatedSuggestion, []domain.Skip) {
	var (
		order []string
		seen  = make(map[string]bool)
	)
	for _, s := range suggestions {
		if !seen[s.ContractID] {
			seen[s.ContractID] = true
			order = append(order, s.ContractID)
		}
	}

	var (
		aggregated []domain.AggregatedSuggestion
		skips      []domain.Skip
	)
	for _, marketID := range order {
		market, ok := markets[marketID]
		if !ok {
			skips = append(skips, domain.Skip{
				ContractID: marketID,
				Stage:      domain.SkipStageAggregate,
				Reason:     "market detail unavailable",
			})
			continue
		}

		var yesWeights, noWeights, yesLimits, noLimits []float64
		for _, s := range suggestions {
			if s.ContractID != marketID || s.Action != domain.ActionBuy {
				continue
			}
			weight := s.BankrollFraction * math.Abs(s.TraderScore)
			switch s.Outcome {
			case domain.OutcomeYes:
				yesWeights = append(yesWeights, weight)
				if s.LimitProb != nil {
					yesLimits = append(yesLimits, *s.LimitProb)
				}
			case domain.OutcomeNo:
				noWeights = append(noWeights, weight)
				if s.LimitProb != nil {
					noLimits = append(noLimits, *s.LimitProb)
				}
			}
		}

		yesSignal, hasYes := meanOf(yesWeights)
		noSignal, hasNo := meanOf(noWeights)

		var (
			outcome  domain.Outcome
			fraction float64
		)
		switch {
		case hasYes && hasNo:
			if yesSignal > noSignal {
				outcome = domain.OutcomeYes
			} else {
				outcome = domain.OutcomeNo
			}
			fraction = yesSignal - noSignal
		case hasYes:
			outcome = domain.OutcomeYes
			fraction = yesSignal
		case hasNo:
			outcome = domain.OutcomeNo
			fraction = noSignal
		default:
			skips = append(skips, domain.Skip{
				ContractID: marketID,
				Stage:      domain.SkipStageAggregate,
				Reason:     "no qualifying buy suggestions",
			})
			continue
		}

		var limit *float64
		yesLimit, hasYesLimit := meanOf(yesLimits)
		noLimit, hasNoLimit := meanOf(noLimits)
		switch {
		case hasYesLimit && hasNoLimit:
			v := (yesLimit + noLimit) / 2
			limit = &v
		case hasYesLimit:
			limit = &yesLimit
		case hasNoLimit:
			limit = &noLimit
		}

		aggregated = append(aggregated, domain.AggregatedSuggestion{
			ContractID:       marketID,
			Action:           domain.ActionBuy,
			Outcome:          outcome,
			BankrollFraction: fraction,
			LimitProb:        limit,
			URL:              market.URL,
		})
	}

	return aggregated, skips
}

// meanOf returns the arithmetic mean of vals; ok is false for an empty
// slice, which downstream treats as "no signal" rather than zero.
func meanOf(vals []float64) (mean float64, ok bool) {
	if len(vals) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals)), true
}
