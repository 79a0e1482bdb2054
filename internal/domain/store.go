package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and optional time filtering for list
// queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// RunStore persists advisory runs and the recommendations they emitted.
type RunStore interface {
	CreateRun(ctx context.Context, run AdviceRun) error
	FinishRun(ctx context.Context, run AdviceRun) error
	GetRun(ctx context.Context, id string) (AdviceRun, error)
	LatestRun(ctx context.Context) (AdviceRun, error)
	ListRuns(ctx context.Context, opts ListOpts) ([]AdviceRun, error)
	InsertRecommendations(ctx context.Context, runID string, recs []SizedRecommendation) error
	ListRecommendations(ctx context.Context, runID string) ([]SizedRecommendation, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
