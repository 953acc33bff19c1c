package run

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

var validTransitions = map[Status][]Status{
	StatusQueued:    {StatusRunning},
	StatusRunning:   {StatusSucceeded, StatusFailed},
	StatusSucceeded: {},
	StatusFailed:    {},
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// Run records one execution request against a fixed prompt version.
// PromptVersion is captured at creation and never changes. Output is set only
// when succeeded, Error only when failed.
type Run struct {
	ID            uuid.UUID      `json:"id"`
	PromptID      uuid.UUID      `json:"prompt_id"`
	PromptVersion int            `json:"prompt_version"`
	Status        Status         `json:"status"`
	Input         map[string]any `json:"input"`
	Output        *string        `json:"output"`
	Error         *string        `json:"error"`
	CreatedAt     time.Time      `json:"created_at"`
	StartedAt     *time.Time     `json:"started_at"`
	FinishedAt    *time.Time     `json:"finished_at"`
}

func New(id, promptID uuid.UUID, promptVersion int, input map[string]any, now time.Time) Run {
	return Run{
		ID:            id,
		PromptID:      promptID,
		PromptVersion: promptVersion,
		Status:        StatusQueued,
		Input:         input,
		CreatedAt:     now,
	}
}

// Transition is a conditional status change: it applies only while the run is
// still in From.
type Transition struct {
	From   Status
	To     Status
	At     time.Time
	Output *string
	Error  *string
}

// Apply returns r with t applied. The caller has already checked that
// r.Status == t.From. Timestamps are clamped so that
// created_at <= started_at <= finished_at holds even under clock skew.
func (r Run) Apply(t Transition) Run {
	at := t.At
	r.Status = t.To
	switch t.To {
	case StatusRunning:
		if at.Before(r.CreatedAt) {
			at = r.CreatedAt
		}
		r.StartedAt = &at
		r.Output, r.Error = nil, nil
	case StatusSucceeded, StatusFailed:
		if r.StartedAt != nil && at.Before(*r.StartedAt) {
			at = *r.StartedAt
		}
		r.FinishedAt = &at
		r.Output, r.Error = t.Output, t.Error
	}
	return r
}

type ListFilters struct {
	PromptID *uuid.UUID
	Limit    int
	Offset   int
}
