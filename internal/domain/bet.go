package domain

import "time"

// Outcome is the side of a binary market a bet is exposed to.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// Valid reports whether the outcome is one of the two binary sides.
func (o Outcome) Valid() bool {
	return o == OutcomeYes || o == OutcomeNo
}

// Opposite returns the other side of a binary market.
func (o Outcome) Opposite() Outcome {
	if o == OutcomeYes {
		return OutcomeNo
	}
	return OutcomeYes
}

// Action is the direction of an order or recommendation.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Bet is a single wager placed by a platform user. Fields the platform may
// omit are pointers; presence is part of the validity rules, so absence must
// stay distinguishable from a zero value.
type Bet struct {
	ID          string
	UserID      string
	ContractID  string
	CreatedTime time.Time
	Amount      float64
	Outcome     *Outcome
	OrderAmount *float64
	LimitProb   *float64
	IsCancelled *bool
}

// Binary reports whether the bet is a live wager on a binary outcome: the
// outcome and cancellation flags are both present, the outcome is YES or NO,
// and the bet has not been cancelled.
func (b Bet) Binary() bool {
	if b.Outcome == nil || b.IsCancelled == nil {
		return false
	}
	return b.Outcome.Valid() && !*b.IsCancelled
}

// EnrichedBet is a valid bet annotated with the bettor's standing. By the
// time a bet is enriched its optional fields relevant to signal generation
// (outcome, order classification) are guaranteed resolved.
type EnrichedBet struct {
	Bet
	TraderScore      float64
	BankrollFraction float64
	OrderType        Action
}
