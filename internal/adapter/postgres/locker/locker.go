package locker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pgdb "github.com/alanyang/promptledger/internal/adapter/postgres"
)

const slowLockThreshold = 500 * time.Millisecond

// Locker implements port/locker.AdvisoryLocker with transaction-scoped
// advisory locks. The lock lives as long as the wrapping transaction, so it is
// released on commit, rollback or a dropped connection, never leaked back into
// the pool. fn receives a context carrying that transaction; repositories
// reading it through postgres.QuerierFrom share the locked connection and
// commit with it.
type Locker struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Locker {
	return &Locker{pool: pool}
}

func (l *Locker) WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	return pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		start := time.Now()
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", key); err != nil {
			return fmt.Errorf("acquire advisory lock: %w", err)
		}
		if waited := time.Since(start); waited > slowLockThreshold {
			slog.WarnContext(ctx, "slow advisory lock", "key", key, "waited", waited)
		}
		return fn(pgdb.WithTx(ctx, tx))
	})
}
