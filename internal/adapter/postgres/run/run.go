package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyang/promptledger/internal/domain/apperr"
	domainrun "github.com/alanyang/promptledger/internal/domain/run"
)

const runColumns = `id, prompt_id, prompt_version, status, input, output, error, created_at, started_at, finished_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, run domainrun.Run) (domainrun.Run, error) {
	created, err := scanRun(r.pool.QueryRow(ctx, `
		INSERT INTO runs (id, prompt_id, prompt_version, status, input, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+runColumns,
		run.ID, run.PromptID, run.PromptVersion, string(run.Status), run.Input, run.CreatedAt,
	))
	if err != nil {
		return domainrun.Run{}, fmt.Errorf("inserting run: %w", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domainrun.Run, error) {
	run, err := scanRun(r.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domainrun.Run{}, apperr.NotFound("run %s", id)
	}
	if err != nil {
		return domainrun.Run{}, fmt.Errorf("querying run: %w", err)
	}
	return run, nil
}

func (r *Repository) List(ctx context.Context, filters domainrun.ListFilters) ([]domainrun.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	args := []any{}
	argIdx := 1

	if filters.PromptID != nil {
		query += fmt.Sprintf(" AND prompt_id = $%d", argIdx)
		args = append(args, *filters.PromptID)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domainrun.Run, error) {
		return scanRun(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scanning runs: %w", err)
	}
	return runs, nil
}

// UpdateStatus performs an atomic CAS on status. Timestamps are clamped in
// SQL with GREATEST so created_at <= started_at <= finished_at holds under
// clock skew between writers.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, t domainrun.Transition) (domainrun.Run, error) {
	var query string
	var args []any

	switch t.To {
	case domainrun.StatusRunning:
		query = `
			UPDATE runs SET status = $1, started_at = GREATEST($2::timestamptz, created_at),
				output = NULL, error = NULL
			WHERE id = $3 AND status = $4
			RETURNING ` + runColumns
		args = []any{string(t.To), t.At, id, string(t.From)}
	case domainrun.StatusSucceeded, domainrun.StatusFailed:
		query = `
			UPDATE runs SET status = $1, finished_at = GREATEST($2::timestamptz, COALESCE(started_at, created_at)),
				output = $5, error = $6
			WHERE id = $3 AND status = $4
			RETURNING ` + runColumns
		args = []any{string(t.To), t.At, id, string(t.From), t.Output, t.Error}
	default:
		return domainrun.Run{}, apperr.InvalidState("cannot move run %s to %s", id, t.To)
	}

	updated, err := scanRun(r.pool.QueryRow(ctx, query, args...))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domainrun.Run{}, fmt.Errorf("updating run status: %w", err)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return domainrun.Run{}, err
	}
	return domainrun.Run{}, apperr.InvalidState("run %s is %s, expected %s", id, current.Status, t.From)
}

// ClaimNext uses SKIP LOCKED so concurrent pollers never claim the same run.
func (r *Repository) ClaimNext(ctx context.Context, at time.Time) (domainrun.Run, bool, error) {
	run, err := scanRun(r.pool.QueryRow(ctx, `
		UPDATE runs SET status = $1, started_at = GREATEST($2::timestamptz, created_at)
		WHERE id = (
			SELECT id FROM runs WHERE status = $3
			ORDER BY created_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+runColumns,
		string(domainrun.StatusRunning), at, string(domainrun.StatusQueued),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domainrun.Run{}, false, nil
	}
	if err != nil {
		return domainrun.Run{}, false, fmt.Errorf("claiming run: %w", err)
	}
	return run, true, nil
}

func (r *Repository) ListRunningBefore(ctx context.Context, cutoff time.Time, limit int) ([]domainrun.Run, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+runColumns+` FROM runs
		WHERE status = $1 AND started_at < $2
		ORDER BY started_at, id
		LIMIT $3`,
		string(domainrun.StatusRunning), cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing running runs: %w", err)
	}
	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domainrun.Run, error) {
		return scanRun(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scanning running runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (domainrun.Run, error) {
	var run domainrun.Run
	err := row.Scan(
		&run.ID, &run.PromptID, &run.PromptVersion, &run.Status, &run.Input,
		&run.Output, &run.Error, &run.CreatedAt, &run.StartedAt, &run.FinishedAt,
	)
	return run, err
}
