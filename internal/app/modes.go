package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spaelabs/manifoldbot/internal/crypto"
	"github.com/spaelabs/manifoldbot/internal/domain"
	"github.com/spaelabs/manifoldbot/internal/engine"
	"github.com/spaelabs/manifoldbot/internal/report"
	"github.com/spaelabs/manifoldbot/internal/server"
	"github.com/spaelabs/manifoldbot/internal/server/handler"
	"github.com/spaelabs/manifoldbot/internal/server/ws"
	"github.com/spaelabs/manifoldbot/internal/service"
)

// runLockKey names the distributed lock that serializes advisory passes
// across instances.
const runLockKey = "advisory-run"

// historyRunLimit bounds how many past runs history mode prints.
const historyRunLimit = 20

// buildAdvisor assembles the pipeline and the advisor around whatever
// dependencies the current mode wired. Nil dependencies disable the
// corresponding side channel.
func (a *App) buildAdvisor(deps *Dependencies) *service.Advisor {
	pipe := engine.NewPipeline(engine.PipelineConfig{
		Provider:        deps.Provider,
		Cache:           deps.MarketCache,
		Logger:          a.base,
		BetLimit:        a.cfg.Manifold.BetLimit,
		FadeThreshold:   a.cfg.Advisor.FadeThreshold,
		FreshnessFilter: a.cfg.Advisor.FreshnessFilter,
	})

	return service.NewAdvisor(service.AdvisorConfig{
		Pipeline: pipe,
		Logger:   a.base,
		Output:   os.Stdout,
		Runs:     deps.RunStore,
		Audit:    deps.AuditStore,
		Scores:   deps.ScoreCache,
		Bus:      deps.SignalBus,
		Archiver: deps.Archiver,
		Notifier: deps.Notifier,
		MinStake: a.cfg.Advisor.MinStake,
	})
}

// AdviseMode runs a single advisory pass and prints the report to stdout.
func (a *App) AdviseMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting advise mode")

	run, recs, err := a.buildAdvisor(deps).Advise(ctx)
	if err != nil {
		return fmt.Errorf("advise mode: %w", err)
	}

	a.logger.InfoContext(ctx, "advice complete",
		slog.String("run_id", run.ID),
		slog.Int("recommendations", len(recs)),
	)
	return nil
}

// WatchMode runs advisory passes on a fixed interval until the context is
// cancelled.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting watch mode",
		slog.Duration("interval", a.cfg.Advisor.Interval.Duration),
	)

	g, ctx := errgroup.WithContext(ctx)
	advisor := a.buildAdvisor(deps)

	g.Go(func() error {
		return a.runAdvisorLoop(ctx, advisor, deps, nil)
	})

	return g.Wait()
}

// ServeMode runs the watch loop plus the HTTP API and WebSocket hub. The
// trigger channel lets POST /api/advise request a pass between ticks.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode",
		slog.Int("port", a.cfg.Server.Port),
		slog.Duration("interval", a.cfg.Advisor.Interval.Duration),
	)

	g, ctx := errgroup.WithContext(ctx)
	advisor := a.buildAdvisor(deps)

	triggerCh := make(chan struct{}, 1)
	g.Go(func() error {
		return a.runAdvisorLoop(ctx, advisor, deps, triggerCh)
	})

	a.startHTTPServer(ctx, g, deps, triggerCh)

	return g.Wait()
}

// HistoryMode prints recent persisted runs and the latest run's stored
// recommendations, then exits.
func (a *App) HistoryMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting history mode")

	runs, err := deps.RunStore.ListRuns(ctx, domain.ListOpts{Limit: historyRunLimit})
	if err != nil {
		return fmt.Errorf("history mode: list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No advisory runs recorded.")
		return nil
	}

	for _, run := range runs {
		finished := "-"
		if run.FinishedAt != nil {
			finished = run.FinishedAt.Local().Format("15:04:05")
		}
		fmt.Printf("%s  %-9s  recs=%-3d skips=%-3d traders=%-5d bets=%-4d  %s",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Status,
			run.Recommendations, run.Skips, run.TradersRanked, run.BetsFetched, run.ID)
		if run.Status == domain.RunStatusFailed && run.Error != "" {
			fmt.Printf("  (%s)", run.Error)
		} else if finished != "-" {
			fmt.Printf("  finished %s", finished)
		}
		fmt.Println()
	}

	latest := runs[0]
	recs, err := deps.RunStore.ListRecommendations(ctx, latest.ID)
	if err != nil {
		return fmt.Errorf("history mode: list recommendations for %s: %w", latest.ID, err)
	}
	if len(recs) == 0 {
		fmt.Println("\nLatest run produced no recommendations.")
		return nil
	}

	fmt.Printf("\nRecommendations from run %s:\n", latest.ID)
	if err := report.Render(os.Stdout, recs); err != nil {
		return fmt.Errorf("history mode: render: %w", err)
	}
	return nil
}

// EncryptKeyMode encrypts the configured plaintext API key to the
// configured key file and exits.
func (a *App) EncryptKeyMode(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting encrypt-key mode")

	path := a.cfg.Manifold.EncryptedKeyPath
	if err := crypto.WriteCredentialFile(path, a.cfg.Manifold.APIKey, a.cfg.Manifold.KeyPassword); err != nil {
		return fmt.Errorf("encrypt-key mode: %w", err)
	}

	fmt.Printf("Encrypted API key written to %s\n", path)
	fmt.Println("Remove manifold.api_key from the config; keep encrypted_key_path and supply the password via key_password or MANIBOT_MANIFOLD_KEY_PASSWORD.")
	return nil
}

// runAdvisorLoop runs one advisory pass immediately and then on every tick.
// When triggerCh is non-nil a receive also starts a pass. Each pass takes
// the run lock first; a pass whose lock is held elsewhere is skipped, not
// queued.
func (a *App) runAdvisorLoop(ctx context.Context, advisor *service.Advisor, deps *Dependencies, triggerCh <-chan struct{}) error {
	runOnce := func() {
		unlock, err := deps.LockManager.Acquire(ctx, runLockKey, a.cfg.Advisor.LockTTL.Duration)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				a.logger.InfoContext(ctx, "run lock held elsewhere, skipping pass")
				return
			}
			a.logger.ErrorContext(ctx, "run lock acquire failed", slog.String("error", err.Error()))
			return
		}
		defer unlock()

		if _, _, err := advisor.Advise(ctx); err != nil {
			a.logger.ErrorContext(ctx, "advisory pass failed", slog.String("error", err.Error()))
		}
	}

	runOnce()
	ticker := time.NewTicker(a.cfg.Advisor.Interval.Duration)
	defer ticker.Stop()

	for {
		if triggerCh != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				runOnce()
			case <-triggerCh:
				runOnce()
			}
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				runOnce()
			}
		}
	}
}

// startHTTPServer adds the API server and WebSocket hub goroutines to the
// given errgroup. Handlers whose backing dependency is not wired are left
// nil, so their routes are simply absent. The server is shut down gracefully
// when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, triggerCh chan<- struct{}) {
	startedAt := time.Now().UTC()

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.base),
		Status: handler.NewStatusHandler(a.cfg.Mode, startedAt, deps.RunStore, a.base),
		Feed:   handler.NewFeedHandler(deps.SignalBus, service.StreamRuns, a.base),
		Advise: handler.NewAdviseHandler(a.base).WithTriggerChannel(triggerCh),
	}
	if deps.RunStore != nil {
		handlers.Runs = handler.NewRunHandler(deps.RunStore, a.base)
	}
	if deps.ScoreCache != nil {
		handlers.Traders = handler.NewTraderHandler(deps.ScoreCache, a.base)
	}
	if deps.BlobReader != nil {
		handlers.Archive = handler.NewArchiveHandler(deps.BlobReader, a.base)
	}

	hub := ws.NewHub(deps.SignalBus, a.base, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: startedAt,
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.New(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimiter: deps.RateLimiter,
	}, handlers, hub, a.base)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)),
		)
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
