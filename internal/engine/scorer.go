// Package engine implements the advisory pipeline: score traders, enrich
// bets, generate peer signals, aggregate them per market, and reconcile the
// result against the operator's holdings.
package engine

import (
	"sort"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// RankTraders scores every rankable trader on a [-1, 1] scale, +1 for the
// best performer and -1 for the worst.
//
// Ranking combines two orderings over the rankable set: profit relative to
// deposits (percentage return) and raw profit (absolute return). A trader's
// overall rank is the sum of its positions in both orderings; the final
// order sorts ascending on that sum, ties keeping original encounter order.
// Returns nil when no trader is rankable.
func RankTraders(traders []domain.Trader) []domain.ScoredTrader {
	ranked := make([]domain.ScoredTrader, 0, len(traders))
	for _, t := range traders {
		if t.Rankable() {
			ranked = append(ranked, domain.ScoredTrader{Trader: t})
		}
	}
	if len(ranked) == 0 {
		return nil
	}

	byPercent := make([]*domain.ScoredTrader, len(ranked))
	byAbsolute := make([]*domain.ScoredTrader, len(ranked))
	for i := range ranked {
		byPercent[i] = &ranked[i]
		byAbsolute[i] = &ranked[i]
	}

	sort.SliceStable(byPercent, func(i, j int) bool {
		return byPercent[i].ProfitRatio() > byPercent[j].ProfitRatio()
	})
	sort.SliceStable(byAbsolute, func(i, j int) bool {
		return byAbsolute[i].Profit > byAbsolute[j].Profit
	})

	for i, t := range byPercent {
		t.PercentageRank = i
	}
	for i, t := range byAbsolute {
		t.AbsoluteRank = i
	}
	for i := range ranked {
		ranked[i].OverallRank = ranked[i].PercentageRank + ranked[i].AbsoluteRank
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].OverallRank < ranked[j].OverallRank
	})

	n := float64(len(ranked))
	for i := range ranked {
		ranked[i].Score = ((1 - float64(i+1)/n) - 0.5) * 2
	}

	return ranked
}

// ScoreIndex builds a lookup from trader ID to its scored record.
func ScoreIndex(ranked []domain.ScoredTrader) map[string]domain.ScoredTrader {
	idx := make(map[string]domain.ScoredTrader, len(ranked))
	for _, t := range ranked {
		idx[t.ID] = t
	}
	return idx
}

// OperatorScore looks up the operator's own score in the ranked set. The
// second return is false when the operator did not qualify for ranking.
func OperatorScore(ranked []domain.ScoredTrader, operatorID string) (float64, bool) {
	for _, t := range ranked {
		if t.ID == operatorID {
			return t.Score, true
		}
	}
	return 0, false
}
