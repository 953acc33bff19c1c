package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/alanyang/promptledger/internal/domain/apperr"
	domainprompt "github.com/alanyang/promptledger/internal/domain/prompt"
)

// PromptRepository implements port/prompt.Repository in process memory.
// A single RWMutex makes every method atomic, which gives the same per-prompt
// serialisation the Postgres adapter gets from row locks.
type PromptRepository struct {
	mu       sync.RWMutex
	prompts  map[uuid.UUID]domainprompt.Prompt
	versions map[uuid.UUID][]domainprompt.Version // ascending by number
	byName   map[string]uuid.UUID
}

func NewPromptRepository() *PromptRepository {
	return &PromptRepository{
		prompts:  make(map[uuid.UUID]domainprompt.Prompt),
		versions: make(map[uuid.UUID][]domainprompt.Version),
		byName:   make(map[string]uuid.UUID),
	}
}

func (r *PromptRepository) Create(_ context.Context, p domainprompt.Prompt, v domainprompt.Version) (domainprompt.Detail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[p.Name]; exists {
		return domainprompt.Detail{}, apperr.Conflict("prompt name %q already exists", p.Name)
	}

	p.ActiveVersion = 1
	v.PromptID = p.ID
	v.Version = 1
	v.Parameters = maps.Clone(v.Parameters)

	r.prompts[p.ID] = p
	r.versions[p.ID] = []domainprompt.Version{v}
	r.byName[p.Name] = p.ID

	return r.detail(p.ID), nil
}

func (r *PromptRepository) GetByID(_ context.Context, id uuid.UUID) (domainprompt.Detail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.prompts[id]; !ok {
		return domainprompt.Detail{}, apperr.NotFound("prompt %s", id)
	}
	return r.detail(id), nil
}

func (r *PromptRepository) Resolve(_ context.Context, name string) (domainprompt.Resolved, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	if !ok {
		return domainprompt.Resolved{}, apperr.NotFound("prompt named %q", name)
	}
	p := r.prompts[id]
	active := r.versions[id][p.ActiveVersion-1]
	return domainprompt.Resolved{Prompt: p, Active: cloneVersion(active)}, nil
}

func (r *PromptRepository) List(_ context.Context, filters domainprompt.ListFilters) ([]domainprompt.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(filters.Query)
	matched := make([]domainprompt.Prompt, 0, len(r.prompts))
	for _, p := range r.prompts {
		if q != "" && !matchesQuery(p, q) {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() > matched[j].ID.String()
	})

	matched = window(matched, filters.Offset, filters.Limit)
	out := make([]domainprompt.Summary, 0, len(matched))
	for _, p := range matched {
		versions := r.versions[p.ID]
		latest := cloneVersion(versions[len(versions)-1])
		out = append(out, domainprompt.Summary{Prompt: p, LatestVersion: &latest})
	}
	return out, nil
}

func (r *PromptRepository) UpdateDescription(_ context.Context, id uuid.UUID, description *string) (domainprompt.Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.prompts[id]
	if !ok {
		return domainprompt.Prompt{}, apperr.NotFound("prompt %s", id)
	}
	p.Description = description
	r.prompts[id] = p
	return p, nil
}

func (r *PromptRepository) AppendVersion(_ context.Context, v domainprompt.Version) (domainprompt.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.prompts[v.PromptID]; !ok {
		return domainprompt.Version{}, apperr.NotFound("prompt %s", v.PromptID)
	}

	v.Version = len(r.versions[v.PromptID]) + 1
	v.Parameters = maps.Clone(v.Parameters)
	r.versions[v.PromptID] = append(r.versions[v.PromptID], v)
	return cloneVersion(v), nil
}

func (r *PromptRepository) GetVersion(_ context.Context, promptID uuid.UUID, version int) (domainprompt.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.versions[promptID]
	if !ok || version < 1 || version > len(versions) {
		return domainprompt.Version{}, apperr.NotFound("prompt %s has no version %d", promptID, version)
	}
	return cloneVersion(versions[version-1]), nil
}

func (r *PromptRepository) SetActiveVersion(_ context.Context, id uuid.UUID, version int) (domainprompt.Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.prompts[id]
	if !ok {
		return domainprompt.Prompt{}, apperr.NotFound("prompt %s", id)
	}
	if version < 1 || version > len(r.versions[id]) {
		return domainprompt.Prompt{}, apperr.NotFound("prompt %s has no version %d", id, version)
	}
	p.ActiveVersion = version
	r.prompts[id] = p
	return p, nil
}

func (r *PromptRepository) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.prompts[id]
	if !ok {
		return false, nil
	}
	delete(r.prompts, id)
	delete(r.versions, id)
	delete(r.byName, p.Name)
	return true, nil
}

// detail must be called with r.mu held.
func (r *PromptRepository) detail(id uuid.UUID) domainprompt.Detail {
	versions := r.versions[id]
	out := make([]domainprompt.Version, 0, len(versions))
	for i := len(versions) - 1; i >= 0; i-- {
		out = append(out, cloneVersion(versions[i]))
	}
	return domainprompt.Detail{Prompt: r.prompts[id], Versions: out}
}

func matchesQuery(p domainprompt.Prompt, q string) bool {
	if strings.Contains(strings.ToLower(p.Name), q) {
		return true
	}
	return p.Description != nil && strings.Contains(strings.ToLower(*p.Description), q)
}

func cloneVersion(v domainprompt.Version) domainprompt.Version {
	v.Parameters = maps.Clone(v.Parameters)
	return v
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
