package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyang/promptledger/internal/domain/apperr"
	"github.com/alanyang/promptledger/internal/domain/event"
	"github.com/alanyang/promptledger/internal/domain/page"
	domainrun "github.com/alanyang/promptledger/internal/domain/run"
	portclock "github.com/alanyang/promptledger/internal/port/clock"
	portdispatcher "github.com/alanyang/promptledger/internal/port/dispatcher"
	portbus "github.com/alanyang/promptledger/internal/port/eventbus"
	portprompt "github.com/alanyang/promptledger/internal/port/prompt"
	portrun "github.com/alanyang/promptledger/internal/port/run"
)

// staleBatch caps how many stuck runs one FailStale call handles.
const staleBatch = 100

// Service is the run ledger. It snapshots a prompt's active version onto each
// new run and drives the queued → running → succeeded|failed state machine.
// Every transition is a CAS in storage, so duplicate worker callbacks fail
// with apperr.ErrInvalidState instead of overwriting a finished run.
type Service struct {
	repo       portrun.Repository
	prompts    portprompt.Resolver
	bus        portbus.EventBus
	dispatcher portdispatcher.RunDispatcher
	clock      portclock.Clock
	ids        portclock.IDGenerator
	limits     page.Limits
}

func NewService(
	repo portrun.Repository,
	prompts portprompt.Resolver,
	bus portbus.EventBus,
	dispatcher portdispatcher.RunDispatcher,
	clock portclock.Clock,
	ids portclock.IDGenerator,
	limits page.Limits,
) *Service {
	return &Service{
		repo:       repo,
		prompts:    prompts,
		bus:        bus,
		dispatcher: dispatcher,
		clock:      clock,
		ids:        ids,
		limits:     limits,
	}
}

// CreateRun queues a run against the prompt's current active version. Later
// activations never change the snapshot.
func (s *Service) CreateRun(ctx context.Context, promptName string, input map[string]any) (domainrun.Run, error) {
	if strings.TrimSpace(promptName) == "" {
		return domainrun.Run{}, apperr.Validation("prompt_name is required")
	}

	resolved, err := s.prompts.ResolvePrompt(ctx, promptName)
	if err != nil {
		return domainrun.Run{}, fmt.Errorf("create run: %w", err)
	}

	r := domainrun.New(s.ids.NewID(), resolved.ID, resolved.ActiveVersion, input, s.clock.Now())
	created, err := s.repo.Create(ctx, r)
	if err != nil {
		return domainrun.Run{}, fmt.Errorf("create run: %w", err)
	}

	slog.InfoContext(ctx, "run queued", "run_id", created.ID, "prompt_id", created.PromptID, "prompt_version", created.PromptVersion)
	s.publish(ctx, created, event.TypeRunQueued, created.CreatedAt)

	if err := s.dispatcher.Dispatch(ctx, created); err != nil {
		slog.ErrorContext(ctx, "failed to dispatch run", "run_id", created.ID, "error", err)
	}
	return created, nil
}

func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (domainrun.Run, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domainrun.Run{}, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns runs newest first, optionally for a single prompt.
func (s *Service) ListRuns(ctx context.Context, filters domainrun.ListFilters) ([]domainrun.Run, error) {
	req, err := page.Request{Limit: filters.Limit, Offset: filters.Offset}.Normalize(s.limits)
	if err != nil {
		return nil, err
	}
	filters.Limit, filters.Offset = req.Limit, req.Offset

	runs, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	if runs == nil {
		runs = []domainrun.Run{}
	}
	return runs, nil
}

func (s *Service) MarkRunning(ctx context.Context, id uuid.UUID) (domainrun.Run, error) {
	return s.transition(ctx, id, domainrun.Transition{From: domainrun.StatusQueued, To: domainrun.StatusRunning})
}

func (s *Service) MarkSucceeded(ctx context.Context, id uuid.UUID, output string) (domainrun.Run, error) {
	return s.transition(ctx, id, domainrun.Transition{
		From:   domainrun.StatusRunning,
		To:     domainrun.StatusSucceeded,
		Output: &output,
	})
}

func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID, message string) (domainrun.Run, error) {
	if strings.TrimSpace(message) == "" {
		return domainrun.Run{}, apperr.Validation("error message is required")
	}
	return s.transition(ctx, id, domainrun.Transition{
		From:  domainrun.StatusRunning,
		To:    domainrun.StatusFailed,
		Error: &message,
	})
}

// ClaimNext moves the oldest queued run to running for a polling worker.
func (s *Service) ClaimNext(ctx context.Context) (domainrun.Run, bool, error) {
	r, ok, err := s.repo.ClaimNext(ctx, s.clock.Now())
	if err != nil {
		return domainrun.Run{}, false, fmt.Errorf("claim run: %w", err)
	}
	if ok {
		s.publish(ctx, r, event.TypeRunStarted, *r.StartedAt)
	}
	return r, ok, nil
}

// FailStale fails runs that have been running for longer than maxAge, a batch
// at a time. It returns how many it failed. Runs that finish concurrently are
// left alone.
func (s *Service) FailStale(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.clock.Now().Add(-maxAge)
	stale, err := s.repo.ListRunningBefore(ctx, cutoff, staleBatch)
	if err != nil {
		return 0, fmt.Errorf("list stale runs: %w", err)
	}

	failed := 0
	for _, r := range stale {
		_, err := s.MarkFailed(ctx, r.ID, fmt.Sprintf("run still running after %s; worker presumed lost", maxAge))
		if errors.Is(err, apperr.ErrInvalidState) {
			continue
		}
		if err != nil {
			return failed, err
		}
		failed++
	}
	return failed, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, t domainrun.Transition) (domainrun.Run, error) {
	if !t.From.CanTransitionTo(t.To) {
		return domainrun.Run{}, apperr.InvalidState("transition %s → %s is not allowed", t.From, t.To)
	}
	t.At = s.clock.Now()

	r, err := s.repo.UpdateStatus(ctx, id, t)
	if err != nil {
		return domainrun.Run{}, fmt.Errorf("mark run %s: %w", t.To, err)
	}

	slog.InfoContext(ctx, "run status changed", "run_id", id, "from", t.From, "to", t.To)
	s.publish(ctx, r, eventFor(t.To), t.At)
	return r, nil
}

func (s *Service) publish(ctx context.Context, r domainrun.Run, typ event.Type, at time.Time) {
	e := event.New(typ, r.ID, at).WithPrompt(r.PromptID, r.PromptVersion)
	if err := s.bus.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "failed to publish run event", "type", typ, "run_id", r.ID, "error", err)
	}
}

func eventFor(s domainrun.Status) event.Type {
	switch s {
	case domainrun.StatusRunning:
		return event.TypeRunStarted
	case domainrun.StatusSucceeded:
		return event.TypeRunSucceeded
	case domainrun.StatusFailed:
		return event.TypeRunFailed
	default:
		return event.TypeRunQueued
	}
}
