// Package report sizes final recommendations against the operator's
// bankroll and renders the human-readable action list.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// Finalize converts recommendations into concrete currency amounts by
// folding over a simulated bankroll: each kept buy shrinks it and each kept
// sell grows it before the next action is sized.
//
// When the list contains no sells it is first sorted by bankroll fraction,
// largest first, so the strongest signals claim the bankroll before it
// shrinks. With sells present the reconciler's ordering is preserved, since
// a sell must precede the buy it funds. An action whose rounded amount
// falls below minStake is dropped without moving the bankroll.
//
// Rounding is round-half-to-even on the whole currency unit.
func Finalize(recommendations []domain.Recommendation, balance, minStake float64) []domain.SizedRecommendation {
	recs := append([]domain.Recommendation(nil), recommendations...)

	hasSell := false
	for _, r := range recs {
		if r.Action == domain.ActionSell {
			hasSell = true
			break
		}
	}
	if !hasSell {
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].BankrollFraction > recs[j].BankrollFraction
		})
	}

	bankroll := balance
	var sized []domain.SizedRecommendation
	for _, r := range recs {
		amount := math.RoundToEven(r.BankrollFraction * bankroll)
		if amount < minStake {
			continue
		}
		sized = append(sized, domain.SizedRecommendation{
			Recommendation: r,
			Amount:         int64(amount),
		})
		switch r.Action {
		case domain.ActionBuy:
			bankroll -= r.BankrollFraction * bankroll
		case domain.ActionSell:
			bankroll += r.BankrollFraction * bankroll
		}
	}
	return sized
}

// Render writes one action per recommendation followed by its bankroll
// disclosure line.
func Render(w io.Writer, sized []domain.SizedRecommendation) error {
	for _, s := range sized {
		var err error
		if s.LimitProb != nil {
			_, err = fmt.Fprintf(w, "Action: %s M$%d of '%s' (with %g limit) in %s\n",
				s.Action, s.Amount, s.Outcome, *s.LimitProb, s.URL)
		} else {
			_, err = fmt.Fprintf(w, "Action: %s M$%d of '%s' in %s\n",
				s.Action, s.Amount, s.Outcome, s.URL)
		}
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "    That's at most %g of your bankroll.\n", s.BankrollFraction); err != nil {
			return err
		}
	}
	return nil
}
