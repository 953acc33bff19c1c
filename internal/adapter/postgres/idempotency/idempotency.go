package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	portidem "github.com/alanyang/promptledger/internal/port/idempotency"
)

// Repository shares replayable responses between server replicas. A pending
// reservation is a row with status 0 and an empty body.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get looks up an unexpired idempotency key.
func (r *Repository) Get(ctx context.Context, key string) (portidem.Response, bool, error) {
	query := `
		SELECT status, content_type, body FROM idempotency_keys
		WHERE idempotency_key = $1 AND status > 0 AND expires_at > now()`

	var resp portidem.Response
	err := r.pool.QueryRow(ctx, query, key).Scan(&resp.Status, &resp.ContentType, &resp.Body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return portidem.Response{}, false, nil
		}
		return portidem.Response{}, false, fmt.Errorf("checking idempotency key: %w", err)
	}
	return resp, true, nil
}

// Reserve inserts a pending row unless an unexpired one exists. Two racing
// requests serialise on the primary key, so exactly one reserves.
func (r *Repository) Reserve(ctx context.Context, key string, ttl time.Duration) (portidem.Response, bool, error) {
	for {
		var reserved bool
		err := r.pool.QueryRow(ctx, `
			INSERT INTO idempotency_keys (idempotency_key, status, content_type, body, expires_at)
			VALUES ($1, 0, '', ''::bytea, now() + $2::interval)
			ON CONFLICT (idempotency_key) DO UPDATE
				SET status = 0, content_type = '', body = ''::bytea,
					created_at = now(), expires_at = EXCLUDED.expires_at
				WHERE idempotency_keys.expires_at <= now()
			RETURNING true`, key, ttl).Scan(&reserved)
		if err == nil {
			return portidem.Response{}, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return portidem.Response{}, false, fmt.Errorf("reserving idempotency key: %w", err)
		}

		var resp portidem.Response
		err = r.pool.QueryRow(ctx, `
			SELECT status, content_type, body FROM idempotency_keys
			WHERE idempotency_key = $1 AND expires_at > now()`, key).
			Scan(&resp.Status, &resp.ContentType, &resp.Body)
		if err == nil {
			return resp, false, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return portidem.Response{}, false, fmt.Errorf("reading idempotency key: %w", err)
		}
		// The holder expired or was released in between; try to claim again.
	}
}

// Put records a response, completing a pending reservation. A completed,
// unexpired response is never replaced.
func (r *Repository) Put(ctx context.Context, key string, resp portidem.Response, ttl time.Duration) error {
	query := `
		INSERT INTO idempotency_keys (idempotency_key, status, content_type, body, expires_at)
		VALUES ($1, $2, $3, $4, now() + $5::interval)
		ON CONFLICT (idempotency_key) DO UPDATE
			SET status = EXCLUDED.status, content_type = EXCLUDED.content_type,
				body = EXCLUDED.body, created_at = now(), expires_at = EXCLUDED.expires_at
			WHERE idempotency_keys.status = 0 OR idempotency_keys.expires_at <= now()`

	_, err := r.pool.Exec(ctx, query, key, resp.Status, resp.ContentType, resp.Body, ttl)
	if err != nil {
		return fmt.Errorf("storing idempotency key: %w", err)
	}
	return nil
}

func (r *Repository) Release(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE idempotency_key = $1 AND status = 0`, key)
	if err != nil {
		return fmt.Errorf("releasing idempotency key: %w", err)
	}
	return nil
}

// Purge deletes expired keys and reports how many were removed.
func (r *Repository) Purge(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("purging idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
