package prompt_test

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
	"github.com/alanyang/promptledger/internal/mocks"
	promptsvc "github.com/alanyang/promptledger/internal/service/prompt"
	"github.com/alanyang/promptledger/internal/testutil"
)

// ── helpers ───────────────────────────────────────────────────────────────────

var now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

type svcDeps struct {
	repo   *mocks.MockPromptRepository
	locker *mocks.MockAdvisoryLocker
	bus    *mocks.MockEventBus
}

func newPromptSvc(t *testing.T) (*promptsvc.Service, svcDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	d := svcDeps{
		repo:   mocks.NewMockPromptRepository(ctrl),
		locker: mocks.NewMockAdvisoryLocker(ctrl),
		bus:    mocks.NewMockEventBus(ctrl),
	}
	svc := promptsvc.NewService(d.repo, d.locker, d.bus, testutil.NewStepClock(now, 0), system.IDGenerator{}, page.PromptLimits)
	return svc, d
}

// syncLocker makes locker.WithLock run the callback inline.
func syncLocker(d svcDeps) {
	d.locker.EXPECT().WithLock(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ int64, fn func(context.Context) error) error {
			return fn(ctx)
		}).AnyTimes()
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

func strPtr(s string) *string { return &s }

// ── CreatePrompt ──────────────────────────────────────────────────────────────

func TestCreatePrompt(t *testing.T) {
	tests := []struct {
		name    string
		in      promptsvc.CreateInput
		setup   func(d svcDeps)
		wantErr error
	}{
		{
			name: "success stores version 1 as active",
			in:   promptsvc.CreateInput{Name: "greeter", Content: "Hello {name}", Parameters: map[string]any{"temperature": 0.2}},
			setup: func(d svcDeps) {
				d.repo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, p domainprompt.Prompt, v domainprompt.Version) (domainprompt.Detail, error) {
						assert.Equal(t, "greeter", p.Name)
						assert.Equal(t, 1, p.ActiveVersion)
						assert.Equal(t, now, p.CreatedAt)
						assert.Equal(t, p.ID, v.PromptID)
						assert.Equal(t, 1, v.Version)
						assert.Equal(t, "Hello {name}", v.Content)
						return domainprompt.Detail{Prompt: p, Versions: []domainprompt.Version{v}}, nil
					})
				d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypePromptCreated)).Return(nil)
			},
		},
		{
			name:    "empty name",
			in:      promptsvc.CreateInput{Name: "", Content: "x"},
			setup:   func(svcDeps) {},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "whitespace content",
			in:      promptsvc.CreateInput{Name: "greeter", Content: "  \n\t"},
			setup:   func(svcDeps) {},
			wantErr: apperr.ErrValidation,
		},
		{
			name: "duplicate name",
			in:   promptsvc.CreateInput{Name: "greeter", Content: "x"},
			setup: func(d svcDeps) {
				d.repo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(domainprompt.Detail{}, apperr.Conflict("prompt name %q already exists", "greeter"))
			},
			wantErr: apperr.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newPromptSvc(t)
			tt.setup(d)

			got, err := svc.CreatePrompt(context.Background(), tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in.Name, got.Name)
			require.Len(t, got.Versions, 1)
		})
	}
}

func TestCreatePrompt_PublishFailureIsNonFatal(t *testing.T) {
	svc, d := newPromptSvc(t)
	d.repo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p domainprompt.Prompt, v domainprompt.Version) (domainprompt.Detail, error) {
			return domainprompt.Detail{Prompt: p, Versions: []domainprompt.Version{v}}, nil
		})
	d.bus.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("bus down"))

	_, err := svc.CreatePrompt(context.Background(), promptsvc.CreateInput{Name: "greeter", Content: "x"})
	require.NoError(t, err)
}

// ── reads ─────────────────────────────────────────────────────────────────────

func TestGetPrompt_NotFound(t *testing.T) {
	svc, d := newPromptSvc(t)
	id := uuid.New()
	d.repo.EXPECT().GetByID(gomock.Any(), id).Return(domainprompt.Detail{}, apperr.NotFound("prompt %s", id))

	_, err := svc.GetPrompt(context.Background(), id)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, err.Error(), "get prompt")
}

func TestListPrompts(t *testing.T) {
	tests := []struct {
		name      string
		filters   domainprompt.ListFilters
		wantRepo  *domainprompt.ListFilters
		repoOut   []domainprompt.Summary
		wantErr   error
		wantEmpty bool
	}{
		{
			name:     "zero limit uses default",
			filters:  domainprompt.ListFilters{Query: "  greet "},
			wantRepo: &domainprompt.ListFilters{Query: "greet", Limit: 50},
			repoOut:  []domainprompt.Summary{{Prompt: domainprompt.Prompt{Name: "greeter"}}},
		},
		{
			name:      "nil from repo becomes empty slice",
			filters:   domainprompt.ListFilters{Limit: 10, Offset: 20},
			wantRepo:  &domainprompt.ListFilters{Limit: 10, Offset: 20},
			wantEmpty: true,
		},
		{
			name:    "limit above max",
			filters: domainprompt.ListFilters{Limit: 101},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "negative offset",
			filters: domainprompt.ListFilters{Offset: -1},
			wantErr: apperr.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newPromptSvc(t)
			if tt.wantRepo != nil {
				d.repo.EXPECT().List(gomock.Any(), *tt.wantRepo).Return(tt.repoOut, nil)
			}

			got, err := svc.ListPrompts(context.Background(), tt.filters)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)
			if tt.wantEmpty {
				assert.Empty(t, got)
			} else {
				assert.Len(t, got, len(tt.repoOut))
			}
		})
	}
}

func TestUpdatePromptMetadata(t *testing.T) {
	svc, d := newPromptSvc(t)
	id := uuid.New()
	d.repo.EXPECT().UpdateDescription(gomock.Any(), id, (*string)(nil)).
		Return(domainprompt.Prompt{ID: id, Name: "greeter", ActiveVersion: 2}, nil)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypePromptUpdated)).Return(nil)

	p, err := svc.UpdatePromptMetadata(context.Background(), id, promptsvc.MetadataUpdate{})
	require.NoError(t, err)
	assert.Nil(t, p.Description)
	assert.Equal(t, 2, p.ActiveVersion)
}

// ── versions ──────────────────────────────────────────────────────────────────

func TestCreateVersion(t *testing.T) {
	svc, d := newPromptSvc(t)
	syncLocker(d)
	promptID := uuid.New()

	d.repo.EXPECT().AppendVersion(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, v domainprompt.Version) (domainprompt.Version, error) {
			assert.Equal(t, promptID, v.PromptID)
			assert.Zero(t, v.Version, "the number is assigned by storage")
			v.Version = 3
			return v, nil
		})
	d.bus.EXPECT().Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e event.Event) error {
			assert.Equal(t, event.TypePromptVersionCreated, e.Type)
			assert.Equal(t, promptID, e.PromptID)
			assert.Equal(t, 3, e.Version)
			return nil
		})

	v, err := svc.CreateVersion(context.Background(), promptID, "new content", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Version)
}

func TestCreateVersion_Errors(t *testing.T) {
	t.Run("empty content skips the lock", func(t *testing.T) {
		svc, _ := newPromptSvc(t)
		_, err := svc.CreateVersion(context.Background(), uuid.New(), "", nil)
		require.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("unknown prompt", func(t *testing.T) {
		svc, d := newPromptSvc(t)
		syncLocker(d)
		id := uuid.New()
		d.repo.EXPECT().AppendVersion(gomock.Any(), gomock.Any()).Return(domainprompt.Version{}, apperr.NotFound("prompt %s", id))

		_, err := svc.CreateVersion(context.Background(), id, "x", nil)
		require.ErrorIs(t, err, apperr.ErrNotFound)
		assert.Contains(t, err.Error(), "create prompt version")
	})

	t.Run("lock failure", func(t *testing.T) {
		svc, d := newPromptSvc(t)
		d.locker.EXPECT().WithLock(gomock.Any(), gomock.Any(), gomock.Any()).Return(context.DeadlineExceeded)

		_, err := svc.CreateVersion(context.Background(), uuid.New(), "x", nil)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, apperr.IsDomain(err))
	})
}

func TestGetVersion(t *testing.T) {
	svc, d := newPromptSvc(t)
	id := uuid.New()

	_, err := svc.GetVersion(context.Background(), id, 0)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	d.repo.EXPECT().GetVersion(gomock.Any(), id, 2).Return(domainprompt.Version{PromptID: id, Version: 2, Content: "two"}, nil)
	v, err := svc.GetVersion(context.Background(), id, 2)
	require.NoError(t, err)
	assert.Equal(t, "two", v.Content)
}

func TestActivateVersion(t *testing.T) {
	tests := []struct {
		name    string
		version int
		setup   func(d svcDeps, id uuid.UUID)
		wantErr error
	}{
		{
			name:    "success",
			version: 2,
			setup: func(d svcDeps, id uuid.UUID) {
				syncLocker(d)
				d.repo.EXPECT().SetActiveVersion(gomock.Any(), id, 2).Return(domainprompt.Prompt{ID: id, ActiveVersion: 2}, nil)
				d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypePromptActivated)).Return(nil)
			},
		},
		{
			name:    "missing version leaves prompt unchanged",
			version: 9,
			setup: func(d svcDeps, id uuid.UUID) {
				syncLocker(d)
				d.repo.EXPECT().SetActiveVersion(gomock.Any(), id, 9).Return(domainprompt.Prompt{}, apperr.NotFound("prompt %s has no version 9", id))
			},
			wantErr: apperr.ErrNotFound,
		},
		{
			name:    "zero version",
			version: 0,
			setup:   func(svcDeps, uuid.UUID) {},
			wantErr: apperr.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newPromptSvc(t)
			id := uuid.New()
			tt.setup(d, id)

			p, err := svc.ActivateVersion(context.Background(), id, tt.version)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.version, p.ActiveVersion)
		})
	}
}

// ── DeletePrompt / ResolvePrompt ──────────────────────────────────────────────

func TestDeletePrompt(t *testing.T) {
	t.Run("deleted publishes", func(t *testing.T) {
		svc, d := newPromptSvc(t)
		syncLocker(d)
		id := uuid.New()
		d.repo.EXPECT().Delete(gomock.Any(), id).Return(true, nil)
		d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypePromptDeleted)).Return(nil)
		require.NoError(t, svc.DeletePrompt(context.Background(), id))
	})

	t.Run("unknown id is a silent success", func(t *testing.T) {
		svc, d := newPromptSvc(t)
		syncLocker(d)
		id := uuid.New()
		d.repo.EXPECT().Delete(gomock.Any(), id).Return(false, nil)
		require.NoError(t, svc.DeletePrompt(context.Background(), id))
	})

	t.Run("storage failure", func(t *testing.T) {
		svc, d := newPromptSvc(t)
		syncLocker(d)
		d.repo.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(false, errors.New("conn reset"))
		err := svc.DeletePrompt(context.Background(), uuid.New())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "delete prompt")
	})
}

func TestResolvePrompt(t *testing.T) {
	svc, d := newPromptSvc(t)

	_, err := svc.ResolvePrompt(context.Background(), " ")
	require.ErrorIs(t, err, apperr.ErrValidation)

	d.repo.EXPECT().Resolve(gomock.Any(), "ghost").Return(domainprompt.Resolved{}, apperr.NotFound("prompt named %q", "ghost"))
	_, err = svc.ResolvePrompt(context.Background(), "ghost")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	resolved := domainprompt.Resolved{
		Prompt: domainprompt.Prompt{Name: "greeter", ActiveVersion: 2, Description: strPtr("hi")},
		Active: domainprompt.Version{Version: 2, Content: "Hello"},
	}
	d.repo.EXPECT().Resolve(gomock.Any(), "greeter").Return(resolved, nil)
	got, err := svc.ResolvePrompt(context.Background(), "greeter")
	require.NoError(t, err)
	assert.Equal(t, resolved, got)
}
