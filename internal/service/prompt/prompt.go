package prompt

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/alanyang/promptledger/internal/domain/apperr"
	"github.com/alanyang/promptledger/internal/domain/event"
	"github.com/alanyang/promptledger/internal/domain/page"
	domainprompt "github.com/alanyang/promptledger/internal/domain/prompt"
	portclock "github.com/alanyang/promptledger/internal/port/clock"
	portbus "github.com/alanyang/promptledger/internal/port/eventbus"
	portlocker "github.com/alanyang/promptledger/internal/port/locker"
	portprompt "github.com/alanyang/promptledger/internal/port/prompt"
)

// Service is the prompt registry: the authoritative store for prompts and
// their version history, and the only writer of active_version.
// Version appends, activations and deletes on the same prompt are serialised
// through the advisory locker; different prompts never contend.
type Service struct {
	repo   portprompt.Repository
	locker portlocker.AdvisoryLocker
	bus    portbus.EventBus
	clock  portclock.Clock
	ids    portclock.IDGenerator
	limits page.Limits
}

func NewService(
	repo portprompt.Repository,
	locker portlocker.AdvisoryLocker,
	bus portbus.EventBus,
	clock portclock.Clock,
	ids portclock.IDGenerator,
	limits page.Limits,
) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		bus:    bus,
		clock:  clock,
		ids:    ids,
		limits: limits,
	}
}

type CreateInput struct {
	Name        string
	Description *string
	Content     string
	Parameters  map[string]any
}

// MetadataUpdate replaces the mutable metadata of a prompt. A nil Description
// clears it.
type MetadataUpdate struct {
	Description *string
}

// CreatePrompt stores a new prompt with its content as version 1, active.
func (s *Service) CreatePrompt(ctx context.Context, in CreateInput) (domainprompt.Detail, error) {
	if err := domainprompt.ValidateName(in.Name); err != nil {
		return domainprompt.Detail{}, err
	}
	if err := domainprompt.ValidateContent(in.Content); err != nil {
		return domainprompt.Detail{}, err
	}

	now := s.clock.Now()
	p := domainprompt.New(s.ids.NewID(), in.Name, in.Description, now)
	v := domainprompt.NewVersion(s.ids.NewID(), p.ID, in.Content, in.Parameters, now)

	created, err := s.repo.Create(ctx, p, v)
	if err != nil {
		return domainprompt.Detail{}, fmt.Errorf("create prompt: %w", err)
	}

	slog.InfoContext(ctx, "prompt created", "prompt_id", created.ID, "name", created.Name)
	s.publish(ctx, event.New(event.TypePromptCreated, created.ID, now).WithPrompt(created.ID, 1))
	return created, nil
}

func (s *Service) GetPrompt(ctx context.Context, id uuid.UUID) (domainprompt.Detail, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domainprompt.Detail{}, fmt.Errorf("get prompt: %w", err)
	}
	return d, nil
}

// ListPrompts returns prompt summaries, newest first. An empty result is not
// an error.
func (s *Service) ListPrompts(ctx context.Context, filters domainprompt.ListFilters) ([]domainprompt.Summary, error) {
	req, err := page.Request{Limit: filters.Limit, Offset: filters.Offset}.Normalize(s.limits)
	if err != nil {
		return nil, err
	}
	filters.Limit, filters.Offset = req.Limit, req.Offset
	filters.Query = strings.TrimSpace(filters.Query)

	prompts, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	if prompts == nil {
		prompts = []domainprompt.Summary{}
	}
	return prompts, nil
}

func (s *Service) UpdatePromptMetadata(ctx context.Context, id uuid.UUID, upd MetadataUpdate) (domainprompt.Prompt, error) {
	p, err := s.repo.UpdateDescription(ctx, id, upd.Description)
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("update prompt: %w", err)
	}
	s.publish(ctx, event.New(event.TypePromptUpdated, p.ID, s.clock.Now()))
	return p, nil
}

// CreateVersion appends a new immutable version. The number is assigned by
// storage; the active version is left unchanged.
func (s *Service) CreateVersion(ctx context.Context, promptID uuid.UUID, content string, parameters map[string]any) (domainprompt.Version, error) {
	if err := domainprompt.ValidateContent(content); err != nil {
		return domainprompt.Version{}, err
	}

	var created domainprompt.Version
	err := s.locker.WithLock(ctx, lockKey(promptID), func(ctx context.Context) error {
		now := s.clock.Now()
		v := domainprompt.NewVersion(s.ids.NewID(), promptID, content, parameters, now)

		var err error
		created, err = s.repo.AppendVersion(ctx, v)
		return err
	})
	if err != nil {
		return domainprompt.Version{}, fmt.Errorf("create prompt version: %w", err)
	}

	slog.InfoContext(ctx, "prompt version created", "prompt_id", promptID, "version", created.Version)
	s.publish(ctx, event.New(event.TypePromptVersionCreated, created.ID, created.CreatedAt).WithPrompt(promptID, created.Version))
	return created, nil
}

func (s *Service) GetVersion(ctx context.Context, promptID uuid.UUID, version int) (domainprompt.Version, error) {
	if version < 1 {
		return domainprompt.Version{}, apperr.NotFound("prompt %s has no version %d", promptID, version)
	}
	v, err := s.repo.GetVersion(ctx, promptID, version)
	if err != nil {
		return domainprompt.Version{}, fmt.Errorf("get prompt version: %w", err)
	}
	return v, nil
}

// ActivateVersion points the prompt at an existing version. Activating the
// already-active version succeeds.
func (s *Service) ActivateVersion(ctx context.Context, promptID uuid.UUID, version int) (domainprompt.Prompt, error) {
	if version < 1 {
		return domainprompt.Prompt{}, apperr.NotFound("prompt %s has no version %d", promptID, version)
	}

	var p domainprompt.Prompt
	err := s.locker.WithLock(ctx, lockKey(promptID), func(ctx context.Context) error {
		var err error
		p, err = s.repo.SetActiveVersion(ctx, promptID, version)
		return err
	})
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("activate prompt version: %w", err)
	}

	slog.InfoContext(ctx, "prompt version activated", "prompt_id", promptID, "version", version)
	s.publish(ctx, event.New(event.TypePromptActivated, promptID, s.clock.Now()).WithPrompt(promptID, version))
	return p, nil
}

// DeletePrompt removes a prompt and its versions. Deleting an unknown id
// succeeds.
func (s *Service) DeletePrompt(ctx context.Context, id uuid.UUID) error {
	var deleted bool
	err := s.locker.WithLock(ctx, lockKey(id), func(ctx context.Context) error {
		var err error
		deleted, err = s.repo.Delete(ctx, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	if !deleted {
		return nil
	}

	slog.InfoContext(ctx, "prompt deleted", "prompt_id", id)
	s.publish(ctx, event.New(event.TypePromptDeleted, id, s.clock.Now()))
	return nil
}

// ResolvePrompt returns the named prompt with its active version.
// Implements port/prompt.Resolver.
func (s *Service) ResolvePrompt(ctx context.Context, name string) (domainprompt.Resolved, error) {
	if strings.TrimSpace(name) == "" {
		return domainprompt.Resolved{}, apperr.Validation("prompt name is required")
	}
	r, err := s.repo.Resolve(ctx, name)
	if err != nil {
		return domainprompt.Resolved{}, fmt.Errorf("resolve prompt: %w", err)
	}
	return r, nil
}

func (s *Service) publish(ctx context.Context, e event.Event) {
	if err := s.bus.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "failed to publish prompt event", "type", e.Type, "entity_id", e.EntityID, "error", err)
	}
}

func lockKey(promptID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write([]byte("prompt"))
	h.Write(promptID[:])
	return int64(h.Sum64())
}
