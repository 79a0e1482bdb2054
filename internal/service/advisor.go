// Package service orchestrates advisory runs around the engine: persistence,
// event publishing, archival, and notifications. Everything here is
// write-only with respect to the pipeline; nothing the service stores ever
// feeds back into recommendation math.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/spaelabs/manifoldbot/internal/domain"
	"github.com/spaelabs/manifoldbot/internal/engine"
	"github.com/spaelabs/manifoldbot/internal/notify"
	"github.com/spaelabs/manifoldbot/internal/report"
)

// Signal bus channels and streams carrying run events.
const (
	ChannelRun            = "ch:run"
	ChannelRecommendation = "ch:recommendation"
	ChannelStatus         = "ch:status"
	StreamRuns            = "stream:runs"
)

// AdvisorConfig configures an Advisor. Only Pipeline and Logger are
// required; every other dependency is optional and skipped when nil, so
// advise mode runs with nothing but the pipeline and an output writer.
type AdvisorConfig struct {
	Pipeline *engine.Pipeline
	Logger   *slog.Logger

	Output   io.Writer          // rendered report destination; nil disables
	Runs     domain.RunStore    // run history
	Audit    domain.AuditStore  // skip summaries
	Scores   domain.ScoreCache  // ranking for API reads
	Bus      domain.SignalBus   // run events
	Archiver domain.RunArchiver // snapshot upload
	Notifier *notify.Notifier   // operator alerts

	MinStake float64
}

// Advisor runs the pipeline and fans the outcome out to every wired
// side channel: stdout, Postgres, Redis, S3, and notifications. Side
// channel failures are logged and never fail a run.
type Advisor struct {
	pipeline *engine.Pipeline
	out      io.Writer
	runs     domain.RunStore
	audit    domain.AuditStore
	scores   domain.ScoreCache
	bus      domain.SignalBus
	archiver domain.RunArchiver
	notifier *notify.Notifier
	minStake float64
	logger   *slog.Logger
}

// NewAdvisor creates an Advisor from the given configuration.
func NewAdvisor(cfg AdvisorConfig) *Advisor {
	return &Advisor{
		pipeline: cfg.Pipeline,
		out:      cfg.Output,
		runs:     cfg.Runs,
		audit:    cfg.Audit,
		scores:   cfg.Scores,
		bus:      cfg.Bus,
		archiver: cfg.Archiver,
		notifier: cfg.Notifier,
		minStake: cfg.MinStake,
		logger:   cfg.Logger.With(slog.String("component", "advisor")),
	}
}

// Advise executes one advisory run end to end: pipeline, sizing, rendering,
// and all side channels. The returned error is non-nil only when the
// pipeline itself failed; side channel failures are logged and swallowed.
func (a *Advisor) Advise(ctx context.Context) (domain.AdviceRun, []domain.SizedRecommendation, error) {
	run := domain.AdviceRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Status:    domain.RunStatusRunning,
	}

	if a.runs != nil {
		if err := a.runs.CreateRun(ctx, run); err != nil {
			a.logger.WarnContext(ctx, "create run failed",
				slog.String("run_id", run.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	result, err := a.pipeline.Run(ctx)
	if err != nil {
		a.finishFailed(ctx, &run, err)
		return run, nil, fmt.Errorf("advisor: run %s: %w", run.ID, err)
	}

	sized := report.Finalize(result.Recommendations, result.Operator.Balance, a.minStake)

	if a.out != nil {
		if err := report.Render(a.out, sized); err != nil {
			a.logger.WarnContext(ctx, "report render failed",
				slog.String("run_id", run.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = domain.RunStatusCompleted
	run.OperatorID = result.Operator.ID
	run.OperatorBalance = result.Operator.Balance
	run.OperatorScore = result.OperatorScore
	run.TradersRanked = len(result.Ranked)
	run.BetsFetched = result.BetsFetched
	run.BetsEnriched = result.BetsEnriched
	run.Suggestions = len(result.Suggestions)
	run.MarketsFetched = result.MarketsFetched
	run.Recommendations = len(sized)
	run.Skips = len(result.Skips)

	a.persist(ctx, run, sized, result.Skips)
	a.cacheScores(ctx, result.Ranked)
	a.publish(ctx, run, sized)
	a.archive(ctx, run, sized, result.Skips)
	a.notifyCompleted(ctx, run, sized)

	a.logger.InfoContext(ctx, "advisory run completed",
		slog.String("run_id", run.ID),
		slog.Int("traders_ranked", run.TradersRanked),
		slog.Int("suggestions", run.Suggestions),
		slog.Int("recommendations", run.Recommendations),
		slog.Int("skips", run.Skips),
	)

	return run, sized, nil
}

// finishFailed records a failed run on every wired side channel.
func (a *Advisor) finishFailed(ctx context.Context, run *domain.AdviceRun, cause error) {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = domain.RunStatusFailed
	run.Error = cause.Error()

	a.logger.ErrorContext(ctx, "advisory run failed",
		slog.String("run_id", run.ID),
		slog.String("error", cause.Error()),
	)

	if a.runs != nil {
		if err := a.runs.FinishRun(ctx, *run); err != nil {
			a.logger.WarnContext(ctx, "finish run failed",
				slog.String("run_id", run.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if a.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event":  notify.EventRunFailed,
			"run_id": run.ID,
			"error":  run.Error,
		})
		if err := a.bus.Publish(ctx, ChannelRun, evt); err != nil {
			a.logger.WarnContext(ctx, "publish run event failed",
				slog.String("run_id", run.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if a.notifier != nil {
		msg := fmt.Sprintf("Run %s failed: %s", run.ID, run.Error)
		if err := a.notifier.Notify(ctx, notify.EventRunFailed, "Advisory run failed", msg); err != nil {
			a.logger.WarnContext(ctx, "notify failed",
				slog.String("run_id", run.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// persist writes the finished run, its recommendations, and a skip summary.
func (a *Advisor) persist(ctx context.Context, run domain.AdviceRun, sized []domain.SizedRecommendation, skips []domain.Skip) {
	if a.runs != nil {
		if err := a.runs.FinishRun(ctx, run); err != nil {
			a.logger.WarnContext(ctx, "finish run failed",
				slog.String("run_id", run.ID),
				slog.String("error", err.Error()),
			)
		}
		if err := a.runs.InsertRecommendations(ctx, run.ID, sized); err != nil {
			a.logger.WarnContext(ctx, "insert recommendations failed",
				slog.String("run_id", run.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if a.audit != nil && len(skips) > 0 {
		byStage := make(map[string]int, len(skips))
		for _, s := range skips {
			byStage[string(s.Stage)]++
		}
		if err := a.audit.Log(ctx, "run.skips", map[string]any{
			"run_id":   run.ID,
			"total":    len(skips),
			"by_stage": byStage,
		}); err != nil {
			a.logger.WarnContext(ctx, "audit log failed",
				slog.String("run_id", run.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// cacheScores stores the run's trader ranking for API reads.
func (a *Advisor) cacheScores(ctx context.Context, ranked []domain.ScoredTrader) {
	if a.scores == nil || len(ranked) == 0 {
		return
	}
	if err := a.scores.SetScores(ctx, ranked); err != nil {
		a.logger.WarnContext(ctx, "score cache write failed",
			slog.String("error", err.Error()),
		)
	}
}

// publish emits run events on the live channels and appends the run summary
// to the durable stream.
func (a *Advisor) publish(ctx context.Context, run domain.AdviceRun, sized []domain.SizedRecommendation) {
	if a.bus == nil {
		return
	}

	evt, _ := json.Marshal(map[string]any{
		"event":           notify.EventRunCompleted,
		"run_id":          run.ID,
		"operator_id":     run.OperatorID,
		"operator_score":  run.OperatorScore,
		"traders_ranked":  run.TradersRanked,
		"recommendations": run.Recommendations,
		"skips":           run.Skips,
		"finished_at":     run.FinishedAt.Format(time.RFC3339),
	})
	if err := a.bus.Publish(ctx, ChannelRun, evt); err != nil {
		a.logger.WarnContext(ctx, "publish run event failed",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := a.bus.StreamAppend(ctx, StreamRuns, evt); err != nil {
		a.logger.WarnContext(ctx, "stream append failed",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()),
		)
	}

	for _, s := range sized {
		rec, _ := json.Marshal(map[string]any{
			"event":       "recommendation",
			"run_id":      run.ID,
			"contract_id": s.ContractID,
			"action":      s.Action,
			"outcome":     s.Outcome,
			"amount":      s.Amount,
			"fraction":    s.BankrollFraction,
			"url":         s.URL,
		})
		if err := a.bus.Publish(ctx, ChannelRecommendation, rec); err != nil {
			a.logger.WarnContext(ctx, "publish recommendation failed",
				slog.String("run_id", run.ID),
				slog.String("contract_id", s.ContractID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// archive uploads the run snapshot to blob storage.
func (a *Advisor) archive(ctx context.Context, run domain.AdviceRun, sized []domain.SizedRecommendation, skips []domain.Skip) {
	if a.archiver == nil {
		return
	}
	path, err := a.archiver.ArchiveRun(ctx, run, sized, skips)
	if err != nil {
		a.logger.WarnContext(ctx, "archive run failed",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	a.logger.InfoContext(ctx, "run archived",
		slog.String("run_id", run.ID),
		slog.String("path", path),
	)
}

// notifyCompleted sends the run summary with the rendered action lines.
func (a *Advisor) notifyCompleted(ctx context.Context, run domain.AdviceRun, sized []domain.SizedRecommendation) {
	if a.notifier == nil {
		return
	}

	var body bytes.Buffer
	fmt.Fprintf(&body, "Run %s: %d recommendation(s) from %d ranked traders.\n",
		run.ID, len(sized), run.TradersRanked)
	if err := report.Render(&body, sized); err != nil {
		a.logger.WarnContext(ctx, "notify render failed",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := a.notifier.Notify(ctx, notify.EventRunCompleted, "Advisory run completed", body.String()); err != nil {
		a.logger.WarnContext(ctx, "notify failed",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()),
		)
	}
}
