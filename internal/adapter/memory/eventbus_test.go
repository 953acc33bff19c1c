package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyang/promptledger/internal/adapter/memory"
	"github.com/alanyang/promptledger/internal/domain/event"
)

func TestEventBus_DeliversByChannel(t *testing.T) {
	ctx := context.Background()
	bus := memory.NewEventBus()

	var runEvents, promptEvents []event.Event
	_, err := bus.Subscribe(ctx, event.ChannelRun, func(_ context.Context, e event.Event) { runEvents = append(runEvents, e) })
	require.NoError(t, err)
	_, err = bus.Subscribe(ctx, event.ChannelPrompt, func(_ context.Context, e event.Event) { promptEvents = append(promptEvents, e) })
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, event.New(event.TypeRunQueued, uuid.New(), time.Now())))
	require.NoError(t, bus.Publish(ctx, event.New(event.TypePromptCreated, uuid.New(), time.Now())))
	require.NoError(t, bus.Publish(ctx, event.New(event.TypeRunFailed, uuid.New(), time.Now())))

	assert.Len(t, runEvents, 2)
	assert.Len(t, promptEvents, 1)
	assert.Equal(t, event.TypeRunFailed, runEvents[1].Type)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	bus := memory.NewEventBus()

	calls := 0
	sub, err := bus.Subscribe(ctx, event.ChannelRun, func(context.Context, event.Event) { calls++ })
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, event.New(event.TypeRunQueued, uuid.New(), time.Now())))
	sub.Unsubscribe()
	sub.Unsubscribe()
	require.NoError(t, bus.Publish(ctx, event.New(event.TypeRunQueued, uuid.New(), time.Now())))

	assert.Equal(t, 1, calls)
}

func TestEventBus_CancelledContextStopsDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := memory.NewEventBus()

	calls := 0
	_, err := bus.Subscribe(ctx, event.ChannelPrompt, func(context.Context, event.Event) { calls++ })
	require.NoError(t, err)
	cancel()

	require.NoError(t, bus.Publish(context.Background(), event.New(event.TypePromptDeleted, uuid.New(), time.Now())))
	assert.Zero(t, calls)
}
