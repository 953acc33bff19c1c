package testutil

import (
	"sync"
	"time"
)

// StepClock returns Start on the first call and advances by Step on every
// call after that. The zero Step yields a frozen clock.
type StepClock struct {
	mu    sync.Mutex
	Start time.Time
	Step  time.Duration
	calls int
}

func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{Start: start, Step: step}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.Start.Add(time.Duration(c.calls) * c.Step)
	c.calls++
	return now
}

// Set moves the clock so that the next call returns t.
func (c *StepClock) Set(t time.Time) {
	c.mu.Lock()
	c.Start, c.calls = t, 0
	c.mu.Unlock()
}
