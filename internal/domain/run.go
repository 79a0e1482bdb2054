package domain

import "time"

// RunStatus tracks an advisory run's lifecycle.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// AdviceRun is one pipeline invocation and its headline numbers. Runs are
// recorded for history and audit only; nothing read back from storage ever
// influences a later run's recommendations.
type AdviceRun struct {
	ID              string // UUID
	StartedAt       time.Time
	FinishedAt      *time.Time
	Status          RunStatus
	OperatorID      string
	OperatorBalance float64
	OperatorScore   float64
	TradersRanked   int
	BetsFetched     int
	BetsEnriched    int
	Suggestions     int
	MarketsFetched  int
	Recommendations int
	Skips           int
	Error           string
}
