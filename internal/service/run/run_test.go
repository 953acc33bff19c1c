package run_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alanyang/promptledger/internal/adapter/system"
	"github.com/alanyang/promptledger/internal/domain/apperr"
	"github.com/alanyang/promptledger/internal/domain/event"
	"github.com/alanyang/promptledger/internal/domain/page"
	domainprompt "github.com/alanyang/promptledger/internal/domain/prompt"
	domainrun "github.com/alanyang/promptledger/internal/domain/run"
	"github.com/alanyang/promptledger/internal/mocks"
	runsvc "github.com/alanyang/promptledger/internal/service/run"
	"github.com/alanyang/promptledger/internal/testutil"
)

var now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

type svcDeps struct {
	repo       *mocks.MockRunRepository
	prompts    *mocks.MockPromptResolver
	bus        *mocks.MockEventBus
	dispatcher *mocks.MockRunDispatcher
}

func newRunSvc(t *testing.T) (*runsvc.Service, svcDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	d := svcDeps{
		repo:       mocks.NewMockRunRepository(ctrl),
		prompts:    mocks.NewMockPromptResolver(ctrl),
		bus:        mocks.NewMockEventBus(ctrl),
		dispatcher: mocks.NewMockRunDispatcher(ctrl),
	}
	svc := runsvc.NewService(d.repo, d.prompts, d.bus, d.dispatcher, testutil.NewStepClock(now, 0), system.IDGenerator{}, page.RunLimits)
	return svc, d
}

func matchEventType(et event.Type) gomock.Matcher {
	return eventTypeMatcher{et}
}

type eventTypeMatcher struct{ want event.Type }

func (m eventTypeMatcher) Matches(x any) bool {
	e, ok := x.(event.Event)
	return ok && e.Type == m.want
}
func (m eventTypeMatcher) String() string { return "event.Type=" + string(m.want) }

func echoCreate(d svcDeps) {
	d.repo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r domainrun.Run) (domainrun.Run, error) { return r, nil })
}

// ── CreateRun ─────────────────────────────────────────────────────────────────

func TestCreateRun_SnapshotsActiveVersion(t *testing.T) {
	svc, d := newRunSvc(t)
	promptID := uuid.New()
	d.prompts.EXPECT().ResolvePrompt(gomock.Any(), "greeter").Return(domainprompt.Resolved{
		Prompt: domainprompt.Prompt{ID: promptID, Name: "greeter", ActiveVersion: 3},
		Active: domainprompt.Version{Version: 3},
	}, nil)
	echoCreate(d)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeRunQueued)).Return(nil)
	d.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)

	r, err := svc.CreateRun(context.Background(), "greeter", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, promptID, r.PromptID)
	assert.Equal(t, 3, r.PromptVersion)
	assert.Equal(t, domainrun.StatusQueued, r.Status)
	assert.Equal(t, now, r.CreatedAt)
	assert.Nil(t, r.StartedAt)
	assert.Equal(t, "Ada", r.Input["name"])
}

func TestCreateRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		setup   func(d svcDeps)
		wantErr error
	}{
		{
			name:    "empty prompt name",
			prompt:  "   ",
			setup:   func(svcDeps) {},
			wantErr: apperr.ErrValidation,
		},
		{
			name:   "unknown prompt creates nothing",
			prompt: "ghost",
			setup: func(d svcDeps) {
				d.prompts.EXPECT().ResolvePrompt(gomock.Any(), "ghost").Return(domainprompt.Resolved{}, apperr.NotFound("prompt named %q", "ghost"))
			},
			wantErr: apperr.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newRunSvc(t)
			tt.setup(d)
			_, err := svc.CreateRun(context.Background(), tt.prompt, nil)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateRun_DispatchFailureIsNonFatal(t *testing.T) {
	svc, d := newRunSvc(t)
	d.prompts.EXPECT().ResolvePrompt(gomock.Any(), "greeter").Return(domainprompt.Resolved{
		Prompt: domainprompt.Prompt{ID: uuid.New(), ActiveVersion: 1},
	}, nil)
	echoCreate(d)
	d.bus.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
	d.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(errors.New("redis unavailable"))

	r, err := svc.CreateRun(context.Background(), "greeter", nil)
	require.NoError(t, err)
	assert.Equal(t, domainrun.StatusQueued, r.Status)
}

// ── reads ─────────────────────────────────────────────────────────────────────

func TestGetRun_NotFound(t *testing.T) {
	svc, d := newRunSvc(t)
	id := uuid.New()
	d.repo.EXPECT().GetByID(gomock.Any(), id).Return(domainrun.Run{}, apperr.NotFound("run %s", id))

	_, err := svc.GetRun(context.Background(), id)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListRuns(t *testing.T) {
	promptID := uuid.New()

	t.Run("defaults and filter pass through", func(t *testing.T) {
		svc, d := newRunSvc(t)
		d.repo.EXPECT().List(gomock.Any(), domainrun.ListFilters{PromptID: &promptID, Limit: 50}).Return(nil, nil)

		runs, err := svc.ListRuns(context.Background(), domainrun.ListFilters{PromptID: &promptID})
		require.NoError(t, err)
		require.NotNil(t, runs)
		assert.Empty(t, runs)
	})

	t.Run("limit 200 is allowed", func(t *testing.T) {
		svc, d := newRunSvc(t)
		d.repo.EXPECT().List(gomock.Any(), domainrun.ListFilters{Limit: 200}).Return([]domainrun.Run{{}}, nil)
		runs, err := svc.ListRuns(context.Background(), domainrun.ListFilters{Limit: 200})
		require.NoError(t, err)
		assert.Len(t, runs, 1)
	})

	t.Run("limit 201 is rejected", func(t *testing.T) {
		svc, _ := newRunSvc(t)
		_, err := svc.ListRuns(context.Background(), domainrun.ListFilters{Limit: 201})
		require.ErrorIs(t, err, apperr.ErrValidation)
	})
}

// ── transitions ───────────────────────────────────────────────────────────────

func TestTransitions(t *testing.T) {
	tests := []struct {
		name      string
		call      func(svc *runsvc.Service, id uuid.UUID) (domainrun.Run, error)
		from, to  domainrun.Status
		eventType event.Type
	}{
		{
			name:      "mark running",
			call:      func(svc *runsvc.Service, id uuid.UUID) (domainrun.Run, error) { return svc.MarkRunning(context.Background(), id) },
			from:      domainrun.StatusQueued,
			to:        domainrun.StatusRunning,
			eventType: event.TypeRunStarted,
		},
		{
			name: "mark succeeded",
			call: func(svc *runsvc.Service, id uuid.UUID) (domainrun.Run, error) {
				return svc.MarkSucceeded(context.Background(), id, "hello")
			},
			from:      domainrun.StatusRunning,
			to:        domainrun.StatusSucceeded,
			eventType: event.TypeRunSucceeded,
		},
		{
			name: "mark failed",
			call: func(svc *runsvc.Service, id uuid.UUID) (domainrun.Run, error) {
				return svc.MarkFailed(context.Background(), id, "timeout")
			},
			from:      domainrun.StatusRunning,
			to:        domainrun.StatusFailed,
			eventType: event.TypeRunFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newRunSvc(t)
			id := uuid.New()
			d.repo.EXPECT().UpdateStatus(gomock.Any(), id, gomock.Any()).
				DoAndReturn(func(_ context.Context, _ uuid.UUID, tr domainrun.Transition) (domainrun.Run, error) {
					assert.Equal(t, tt.from, tr.From)
					assert.Equal(t, tt.to, tr.To)
					assert.Equal(t, now, tr.At)
					r := domainrun.New(id, uuid.New(), 1, nil, now.Add(-time.Minute))
					r.Status = tr.From
					if tr.From == domainrun.StatusRunning {
						started := now.Add(-time.Second)
						r.StartedAt = &started
					}
					return r.Apply(tr), nil
				})
			d.bus.EXPECT().Publish(gomock.Any(), matchEventType(tt.eventType)).Return(nil)

			r, err := tt.call(svc, id)
			require.NoError(t, err)
			assert.Equal(t, tt.to, r.Status)
		})
	}
}

func TestMarkSucceeded_AlreadyTerminal(t *testing.T) {
	svc, d := newRunSvc(t)
	id := uuid.New()
	d.repo.EXPECT().UpdateStatus(gomock.Any(), id, gomock.Any()).
		Return(domainrun.Run{}, apperr.InvalidState("run %s is %s, expected %s", id, domainrun.StatusSucceeded, domainrun.StatusRunning))

	_, err := svc.MarkSucceeded(context.Background(), id, "again")
	require.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestMarkFailed_RequiresMessage(t *testing.T) {
	svc, _ := newRunSvc(t)
	_, err := svc.MarkFailed(context.Background(), uuid.New(), "")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestClaimNext(t *testing.T) {
	t.Run("nothing queued", func(t *testing.T) {
		svc, d := newRunSvc(t)
		d.repo.EXPECT().ClaimNext(gomock.Any(), now).Return(domainrun.Run{}, false, nil)
		_, ok, err := svc.ClaimNext(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("claimed run publishes started", func(t *testing.T) {
		svc, d := newRunSvc(t)
		r := domainrun.New(uuid.New(), uuid.New(), 1, nil, now).
			Apply(domainrun.Transition{From: domainrun.StatusQueued, To: domainrun.StatusRunning, At: now})
		d.repo.EXPECT().ClaimNext(gomock.Any(), now).Return(r, true, nil)
		d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeRunStarted)).Return(nil)

		got, ok, err := svc.ClaimNext(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, r.ID, got.ID)
	})
}

func TestFailStale(t *testing.T) {
	t.Run("fails overdue runs and skips ones finished meanwhile", func(t *testing.T) {
		svc, d := newRunSvc(t)
		started := now.Add(-2 * time.Hour)
		running := func() domainrun.Run {
			return domainrun.New(uuid.New(), uuid.New(), 1, nil, started).
				Apply(domainrun.Transition{From: domainrun.StatusQueued, To: domainrun.StatusRunning, At: started})
		}
		finished, overdue := running(), running()

		d.repo.EXPECT().ListRunningBefore(gomock.Any(), now.Add(-time.Hour), gomock.Any()).
			Return([]domainrun.Run{finished, overdue}, nil)
		d.repo.EXPECT().UpdateStatus(gomock.Any(), finished.ID, gomock.Any()).
			Return(domainrun.Run{}, apperr.InvalidState("run %s is succeeded, expected running", finished.ID))
		d.repo.EXPECT().UpdateStatus(gomock.Any(), overdue.ID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, tr domainrun.Transition) (domainrun.Run, error) {
				assert.Equal(t, domainrun.StatusFailed, tr.To)
				require.NotNil(t, tr.Error)
				assert.Contains(t, *tr.Error, "1h0m0s")
				return overdue.Apply(tr), nil
			})
		d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeRunFailed)).Return(nil)

		n, err := svc.FailStale(context.Background(), time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("storage error", func(t *testing.T) {
		svc, d := newRunSvc(t)
		d.repo.EXPECT().ListRunningBefore(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
		_, err := svc.FailStale(context.Background(), time.Hour)
		assert.Error(t, err)
	})
}
