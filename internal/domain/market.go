package domain

import "time"

// Market is one binary market's detail record, including its full bet
// history. Markets are fetched lazily, at most once per advisory run, and
// only for markets that produced at least one suggestion.
type Market struct {
	ID          string
	Question    string
	URL         string
	Probability float64
	IsResolved  bool
	Bets        []Bet
}

// LatestBetBy returns the creation time of the given user's most recent bet
// in this market. The second return is false when the user has never bet
// here.
func (m Market) LatestBetBy(userID string) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, b := range m.Bets {
		if b.UserID != userID {
			continue
		}
		if !found || b.CreatedTime.After(latest) {
			latest = b.CreatedTime
			found = true
		}
	}
	return latest, found
}
