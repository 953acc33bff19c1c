//go:build integration

package prompt_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgeventbus "github.com/alanyang/promptledger/internal/adapter/postgres/eventbus"
	pglocker "github.com/alanyang/promptledger/internal/adapter/postgres/locker"
	pgprompt "github.com/alanyang/promptledger/internal/adapter/postgres/prompt"
	"github.com/alanyang/promptledger/internal/adapter/system"
	"github.com/alanyang/promptledger/internal/domain/event"
	"github.com/alanyang/promptledger/internal/domain/page"
	promptsvc "github.com/alanyang/promptledger/internal/service/prompt"
	"github.com/alanyang/promptledger/internal/testutil"
)

// Registry over the Postgres adapters on a four-connection pool with both
// LISTEN subscriptions pinned, as the router holds them in production.
func newPostgresRegistry(t *testing.T) *promptsvc.Service {
	t.Helper()
	pool := testutil.SetupTestPool(t, 4)
	bus := pgeventbus.New(pool, "it_"+uuid.NewString()[:8]+"_")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	for _, ch := range event.Channels {
		sub, err := bus.Subscribe(ctx, ch, func(context.Context, event.Event) {})
		require.NoError(t, err)
		t.Cleanup(sub.Unsubscribe)
	}

	return promptsvc.NewService(pgprompt.New(pool), pglocker.New(pool), bus,
		system.Clock{}, system.IDGenerator{}, page.PromptLimits)
}

func TestRegistry_Postgres_ConcurrentVersionsOnSmallPool(t *testing.T) {
	svc := newPostgresRegistry(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	created, err := svc.CreatePrompt(ctx, promptsvc.CreateInput{Name: "it-" + uuid.NewString()[:8], Content: "v1"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.DeletePrompt(context.Background(), created.ID) })

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateVersion(ctx, created.ID, "next", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.NoError(t, ctx.Err(), "version appends did not finish before the deadline")

	got, err := svc.GetPrompt(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Versions, n+1)
	for i, v := range got.Versions {
		assert.Equal(t, n+1-i, v.Version)
	}
}

func TestRegistry_Postgres_LockedWritesOnSmallPool(t *testing.T) {
	svc := newPostgresRegistry(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	created, err := svc.CreatePrompt(ctx, promptsvc.CreateInput{Name: "it-" + uuid.NewString()[:8], Content: "v1"})
	require.NoError(t, err)

	_, err = svc.CreateVersion(ctx, created.ID, "v2", nil)
	require.NoError(t, err)

	p, err := svc.ActivateVersion(ctx, created.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, p.ActiveVersion)

	require.NoError(t, svc.DeletePrompt(ctx, created.ID))
	_, err = svc.GetPrompt(ctx, created.ID)
	assert.Error(t, err)
}
