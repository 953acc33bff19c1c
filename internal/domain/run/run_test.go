package run_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/alanyang/promptledger/internal/domain/run"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		// Forward edges
		{name: "queued→running", from: StatusQueued, to: StatusRunning, want: true},
		{name: "running→succeeded", from: StatusRunning, to: StatusSucceeded, want: true},
		{name: "running→failed", from: StatusRunning, to: StatusFailed, want: true},

		// Queued cannot skip running
		{name: "queued→succeeded invalid", from: StatusQueued, to: StatusSucceeded, want: false},
		{name: "queued→failed invalid", from: StatusQueued, to: StatusFailed, want: false},

		// No way back
		{name: "running→queued invalid", from: StatusRunning, to: StatusQueued, want: false},

		// Terminal states
		{name: "succeeded→running invalid", from: StatusSucceeded, to: StatusRunning, want: false},
		{name: "succeeded→failed invalid", from: StatusSucceeded, to: StatusFailed, want: false},
		{name: "failed→succeeded invalid", from: StatusFailed, to: StatusSucceeded, want: false},
		{name: "failed→queued invalid", from: StatusFailed, to: StatusQueued, want: false},

		// Self-transitions are never valid
		{name: "queued self-transition", from: StatusQueued, to: StatusQueued, want: false},
		{name: "running self-transition", from: StatusRunning, to: StatusRunning, want: false},
		{name: "succeeded self-transition", from: StatusSucceeded, to: StatusSucceeded, want: false},
		{name: "failed self-transition", from: StatusFailed, to: StatusFailed, want: false},

		{name: "unknown→running is false", from: Status("garbage"), to: StatusRunning, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, StatusQueued.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	assert.True(t, StatusSucceeded.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

func TestValid(t *testing.T) {
	for _, s := range []Status{StatusQueued, StatusRunning, StatusSucceeded, StatusFailed} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("cancelled").Valid())
}

func TestNew(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := New(uuid.New(), uuid.New(), 3, map[string]any{"x": 1}, now)

	assert.Equal(t, StatusQueued, r.Status)
	assert.Equal(t, 3, r.PromptVersion)
	assert.Equal(t, now, r.CreatedAt)
	assert.Nil(t, r.StartedAt)
	assert.Nil(t, r.FinishedAt)
	assert.Nil(t, r.Output)
	assert.Nil(t, r.Error)
}

func TestApply(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := New(uuid.New(), uuid.New(), 1, nil, created)

	started := created.Add(time.Second)
	r = r.Apply(Transition{From: StatusQueued, To: StatusRunning, At: started})
	require.NotNil(t, r.StartedAt)
	assert.Equal(t, started, *r.StartedAt)
	assert.Equal(t, StatusRunning, r.Status)

	out := "done"
	finished := started.Add(time.Second)
	r = r.Apply(Transition{From: StatusRunning, To: StatusSucceeded, At: finished, Output: &out})
	require.NotNil(t, r.FinishedAt)
	assert.Equal(t, finished, *r.FinishedAt)
	assert.Equal(t, "done", *r.Output)
	assert.Nil(t, r.Error)
}

func TestApply_ClampsBackwardsClock(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := New(uuid.New(), uuid.New(), 1, nil, created)

	r = r.Apply(Transition{From: StatusQueued, To: StatusRunning, At: created.Add(-time.Minute)})
	require.NotNil(t, r.StartedAt)
	assert.Equal(t, created, *r.StartedAt)

	msg := "boom"
	r = r.Apply(Transition{From: StatusRunning, To: StatusFailed, At: created.Add(-time.Hour), Error: &msg})
	require.NotNil(t, r.FinishedAt)
	assert.Equal(t, created, *r.FinishedAt)
	assert.Equal(t, "boom", *r.Error)
	assert.Nil(t, r.Output)
}
