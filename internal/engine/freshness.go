package engine

import (
	"github.com/spaelabs/manifoldbot/internal/domain"
)

// FilterStale drops suggestions that predate the operator's most recent bet
// in the same market: if the operator has traded there since the signal
// fired, the signal is already priced into their position.
//
// Suggestions in markets the operator never bet in pass through. A
// suggestion whose market is missing from the map is dropped, since its
// freshness cannot be established.
func FilterStale(suggestions []domain.Suggestion, markets map[string]domain.Market, operatorID string) []domain.Suggestion {
	fresh := make([]domain.Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		market, ok := markets[s.ContractID]
		if !ok {
			continue
		}
		latest, betBefore := market.LatestBetBy(operatorID)
		if !betBefore || s.Timestamp.After(latest) {
			fresh = append(fresh, s)
		}
	}
	return fresh
}
