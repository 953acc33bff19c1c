package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyang/promptledger/internal/domain/apperr"
	domainrun "github.com/alanyang/promptledger/internal/domain/run"
)

// RunRepository implements port/run.Repository in process memory.
type RunRepository struct {
	mu   sync.Mutex
	runs map[uuid.UUID]domainrun.Run
}

func NewRunRepository() *RunRepository {
	return &RunRepository{runs: make(map[uuid.UUID]domainrun.Run)}
}

func (r *RunRepository) Create(_ context.Context, run domainrun.Run) (domainrun.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run.Input = maps.Clone(run.Input)
	r.runs[run.ID] = run
	return cloneRun(run), nil
}

func (r *RunRepository) GetByID(_ context.Context, id uuid.UUID) (domainrun.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return domainrun.Run{}, apperr.NotFound("run %s", id)
	}
	return cloneRun(run), nil
}

func (r *RunRepository) List(_ context.Context, filters domainrun.ListFilters) ([]domainrun.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domainrun.Run, 0, len(r.runs))
	for _, run := range r.runs {
		if filters.PromptID != nil && run.PromptID != *filters.PromptID {
			continue
		}
		out = append(out, cloneRun(run))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return window(out, filters.Offset, filters.Limit), nil
}

func (r *RunRepository) UpdateStatus(_ context.Context, id uuid.UUID, t domainrun.Transition) (domainrun.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return domainrun.Run{}, apperr.NotFound("run %s", id)
	}
	if run.Status != t.From {
		return domainrun.Run{}, apperr.InvalidState("run %s is %s, expected %s", id, run.Status, t.From)
	}
	run = run.Apply(t)
	r.runs[id] = run
	return cloneRun(run), nil
}

func (r *RunRepository) ClaimNext(_ context.Context, at time.Time) (domainrun.Run, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		oldest domainrun.Run
		found  bool
	)
	for _, run := range r.runs {
		if run.Status != domainrun.StatusQueued {
			continue
		}
		if !found || run.CreatedAt.Before(oldest.CreatedAt) {
			oldest, found = run, true
		}
	}
	if !found {
		return domainrun.Run{}, false, nil
	}

	oldest = oldest.Apply(domainrun.Transition{From: domainrun.StatusQueued, To: domainrun.StatusRunning, At: at})
	r.runs[oldest.ID] = oldest
	return cloneRun(oldest), true, nil
}

func (r *RunRepository) ListRunningBefore(_ context.Context, cutoff time.Time, limit int) ([]domainrun.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domainrun.Run
	for _, run := range r.runs {
		if run.Status == domainrun.StatusRunning && run.StartedAt != nil && run.StartedAt.Before(cutoff) {
			out = append(out, cloneRun(run))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(*out[j].StartedAt) })
	return window(out, 0, limit), nil
}

func cloneRun(run domainrun.Run) domainrun.Run {
	run.Input = maps.Clone(run.Input)
	return run
}
