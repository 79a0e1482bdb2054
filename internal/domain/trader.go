package domain

// Trader is a platform user considered for performance ranking.
type Trader struct {
	ID            string
	Name          string
	Username      string
	URL           string
	Balance       float64
	TotalDeposits float64
	Profit        float64 // all-time profit
}

// Rankable reports whether the trader qualifies for ranking. Traders with no
// deposits or exactly zero lifetime profit carry no usable signal.
func (t Trader) Rankable() bool {
	return t.TotalDeposits > 0 && t.Profit != 0
}

// ProfitRatio is the trader's lifetime return relative to deposits.
// Callers must check Rankable first; the ratio is undefined otherwise.
func (t Trader) ProfitRatio() float64 {
	return t.Profit / t.TotalDeposits
}

// ScoredTrader is a ranked trader annotated with its derived skill score.
// Score is linear in final rank: the best ranked trader approaches +1, the
// worst approaches -1.
type ScoredTrader struct {
	Trader
	PercentageRank int
	AbsoluteRank   int
	OverallRank    int
	Score          float64
}

// Account is the operator's own platform identity.
type Account struct {
	ID       string
	Username string
	Name     string
	Balance  float64
	URL      string
}
