package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// RunStore implements domain.RunStore using PostgreSQL.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a new RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// CreateRun inserts the initial row for a run that just started.
func (s *RunStore) CreateRun(ctx context.Context, run domain.AdviceRun) error {
	const query = `
		INSERT INTO advice_runs (id, started_at, status, operator_id)
		VALUES ($1, $2, $3, $4)`

	_, err := s.pool.Exec(ctx, query,
		run.ID, run.StartedAt, string(run.Status), run.OperatorID,
	)
	if err != nil {
		return fmt.Errorf("postgres: create run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun records a run's final status and headline numbers.
func (s *RunStore) FinishRun(ctx context.Context, run domain.AdviceRun) error {
	const query = `
		UPDATE advice_runs SET
			finished_at = $2,
			status = $3,
			operator_id = $4,
			operator_balance = $5,
			operator_score = $6,
			traders_ranked = $7,
			bets_fetched = $8,
			bets_enriched = $9,
			suggestions = $10,
			markets_fetched = $11,
			recommendations = $12,
			skips = $13,
			error = $14
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		run.ID, run.FinishedAt, string(run.Status), run.OperatorID,
		run.OperatorBalance, run.OperatorScore,
		run.TradersRanked, run.BetsFetched, run.BetsEnriched,
		run.Suggestions, run.MarketsFetched, run.Recommendations,
		run.Skips, run.Error,
	)
	if err != nil {
		return fmt.Errorf("postgres: finish run %s: %w", run.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const runSelectCols = `id, started_at, finished_at, status, operator_id,
	operator_balance, operator_score, traders_ranked, bets_fetched,
	bets_enriched, suggestions, markets_fetched, recommendations, skips, error`

func scanRun(scanner interface{ Scan(dest ...any) error }) (domain.AdviceRun, error) {
	var r domain.AdviceRun
	var status string

	err := scanner.Scan(
		&r.ID, &r.StartedAt, &r.FinishedAt, &status, &r.OperatorID,
		&r.OperatorBalance, &r.OperatorScore, &r.TradersRanked, &r.BetsFetched,
		&r.BetsEnriched, &r.Suggestions, &r.MarketsFetched, &r.Recommendations,
		&r.Skips, &r.Error,
	)
	if err != nil {
		return domain.AdviceRun{}, err
	}
	r.Status = domain.RunStatus(status)
	return r, nil
}

// GetRun retrieves a single run by ID.
func (s *RunStore) GetRun(ctx context.Context, id string) (domain.AdviceRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runSelectCols+` FROM advice_runs WHERE id = $1`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AdviceRun{}, domain.ErrNotFound
		}
		return domain.AdviceRun{}, fmt.Errorf("postgres: get run %s: %w", id, err)
	}
	return run, nil
}

// LatestRun retrieves the most recently started run.
func (s *RunStore) LatestRun(ctx context.Context) (domain.AdviceRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runSelectCols+` FROM advice_runs ORDER BY started_at DESC LIMIT 1`)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AdviceRun{}, domain.ErrNotFound
		}
		return domain.AdviceRun{}, fmt.Errorf("postgres: latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest first, with pagination and optional time
// filtering.
func (s *RunStore) ListRuns(ctx context.Context, opts domain.ListOpts) ([]domain.AdviceRun, error) {
	query := `SELECT ` + runSelectCols + ` FROM advice_runs WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND started_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND started_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY started_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.AdviceRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list runs rows: %w", err)
	}
	return runs, nil
}

// InsertRecommendations stores a run's final action list in presentation
// order. All rows are written in one transaction.
func (s *RunStore) InsertRecommendations(ctx context.Context, runID string, recs []domain.SizedRecommendation) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin insert recommendations: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const query = `
		INSERT INTO recommendations (
			run_id, seq, contract_id, market_url, action, outcome,
			bankroll_fraction, limit_prob, amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for i, rec := range recs {
		_, err := tx.Exec(ctx, query,
			runID, i, rec.ContractID, rec.URL,
			string(rec.Action), string(rec.Outcome),
			rec.BankrollFraction, rec.LimitProb, rec.Amount,
		)
		if err != nil {
			return fmt.Errorf("postgres: insert recommendation %d for run %s: %w", i, runID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit recommendations for run %s: %w", runID, err)
	}
	return nil
}

// ListRecommendations returns a run's action list in presentation order.
func (s *RunStore) ListRecommendations(ctx context.Context, runID string) ([]domain.SizedRecommendation, error) {
	const query = `
		SELECT contract_id, market_url, action, outcome,
		       bankroll_fraction, limit_prob, amount
		FROM recommendations
		WHERE run_id = $1
		ORDER BY seq`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recommendations for run %s: %w", runID, err)
	}
	defer rows.Close()

	var recs []domain.SizedRecommendation
	for rows.Next() {
		var rec domain.SizedRecommendation
		var action, outcome string

		err := rows.Scan(
			&rec.ContractID, &rec.URL, &action, &outcome,
			&rec.BankrollFraction, &rec.LimitProb, &rec.Amount,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan recommendation: %w", err)
		}
		rec.Action = domain.Action(action)
		rec.Outcome = domain.Outcome(outcome)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recommendations rows: %w", err)
	}
	return recs, nil
}

// Compile-time interface check.
var _ domain.RunStore = (*RunStore)(nil)
