//go:build integration

package run_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgrun "github.com/alanyang/promptledger/internal/adapter/postgres/run"
	"github.com/alanyang/promptledger/internal/domain/apperr"
	domainrun "github.com/alanyang/promptledger/internal/domain/run"
	"github.com/alanyang/promptledger/internal/testutil"
)

func makeRun(t *testing.T, ctx context.Context, r *pgrun.Repository, promptID uuid.UUID, at time.Time) domainrun.Run {
	t.Helper()
	created, err := r.Create(ctx, domainrun.New(uuid.New(), promptID, 1, map[string]any{"who": "world"}, at))
	require.NoError(t, err)
	return created
}

func TestRunRepo_Lifecycle(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	r := pgrun.New(pool)
	created := time.Now().UTC().Truncate(time.Microsecond)
	run := makeRun(t, ctx, r, uuid.New(), created)
	assert.Equal(t, domainrun.StatusQueued, run.Status)
	assert.Equal(t, "world", run.Input["who"])

	// A clock behind created_at is clamped.
	running, err := r.UpdateStatus(ctx, run.ID, domainrun.Transition{
		From: domainrun.StatusQueued, To: domainrun.StatusRunning, At: created.Add(-time.Hour),
	})
	require.NoError(t, err)
	require.NotNil(t, running.StartedAt)
	assert.True(t, running.StartedAt.Equal(created))

	out := "Hi there, world"
	done, err := r.UpdateStatus(ctx, run.ID, domainrun.Transition{
		From: domainrun.StatusRunning, To: domainrun.StatusSucceeded, At: created.Add(time.Second), Output: &out,
	})
	require.NoError(t, err)
	assert.Equal(t, domainrun.StatusSucceeded, done.Status)
	assert.Equal(t, out, *done.Output)
	assert.Nil(t, done.Error)

	_, err = r.UpdateStatus(ctx, run.ID, domainrun.Transition{
		From: domainrun.StatusRunning, To: domainrun.StatusFailed, At: time.Now(), Error: &out,
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = r.UpdateStatus(ctx, uuid.New(), domainrun.Transition{
		From: domainrun.StatusQueued, To: domainrun.StatusRunning, At: time.Now(),
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRunRepo_ListByPrompt(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	r := pgrun.New(pool)
	promptID := uuid.New()
	base := time.Now().UTC()
	first := makeRun(t, ctx, r, promptID, base)
	second := makeRun(t, ctx, r, promptID, base.Add(time.Second))
	makeRun(t, ctx, r, uuid.New(), base)

	runs, err := r.List(ctx, domainrun.ListFilters{PromptID: &promptID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
}

func TestRunRepo_ClaimNextSkipsLocked(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	r := pgrun.New(pool)

	// Drain anything left queued by other tests.
	for {
		_, ok, err := r.ClaimNext(ctx, time.Now())
		require.NoError(t, err)
		if !ok {
			break
		}
	}

	const n = 5
	promptID := uuid.New()
	for i := 0; i < n; i++ {
		makeRun(t, ctx, r, promptID, time.Now().UTC())
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		seen   = map[uuid.UUID]bool{}
		claims atomic.Int32
	)
	for i := 0; i < n*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run, ok, err := r.ClaimNext(ctx, time.Now())
			if !assert.NoError(t, err) || !ok {
				return
			}
			claims.Add(1)
			mu.Lock()
			assert.False(t, seen[run.ID], "run %s claimed twice", run.ID)
			seen[run.ID] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(n), claims.Load())
}
