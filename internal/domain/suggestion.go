package domain

import "time"

// Suggestion is one directional hint derived from a single peer bet,
// relative to the operator's own skill score.
type Suggestion struct {
	ContractID       string
	Action           Action
	Outcome          Outcome
	BankrollFraction float64
	LimitProb        *float64
	Timestamp        time.Time
	TraderScore      float64
}

// AggregatedSuggestion is the net buy signal for one market after pitting
// same-market suggestions against each other. BankrollFraction is signed:
// when both sides carry signal it is the YES signal minus the NO signal, so
// a NO-dominant market with both sides present nets out negative.
type AggregatedSuggestion struct {
	ContractID       string
	Action           Action
	Outcome          Outcome
	BankrollFraction float64
	LimitProb        *float64
	URL              string
}

// Position is the operator's current net holding in one market: the
// dominant side's summed bet amounts. Ties and non-positive sums mean no
// position at all.
type Position struct {
	Outcome Outcome
	Amount  float64
}

// Recommendation is a final directional action against one market, after
// reconciling the aggregated signal with the operator's position.
type Recommendation struct {
	ContractID       string
	URL              string
	Action           Action
	Outcome          Outcome
	BankrollFraction float64
	LimitProb        *float64
}

// SizedRecommendation is a recommendation with the whole-unit stake the
// presentation fold assigned to it from the running bankroll.
type SizedRecommendation struct {
	Recommendation
	Amount int64
}

// SkipStage identifies the pipeline stage that dropped a unit of work.
type SkipStage string

const (
	SkipStageFetch     SkipStage = "fetch"
	SkipStageAggregate SkipStage = "aggregate"
	SkipStageReconcile SkipStage = "reconcile"
)

// Skip records why a market or suggestion was dropped mid-pipeline. Skips
// are diagnostics: they are logged and audited, never fatal.
type Skip struct {
	ContractID string
	Stage      SkipStage
	Reason     string
}
