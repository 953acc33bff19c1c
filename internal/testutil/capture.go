package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/alanyang/promptledger/internal/domain/event"
	porteventbus "github.com/alanyang/promptledger/internal/port/eventbus"
)

// CaptureBus is an EventBus test-double that records every published event.
// It is safe for concurrent use. Subscribe is a no-op.
type CaptureBus struct {
	mu     sync.Mutex
	Events []event.Event
}

func (c *CaptureBus) Publish(_ context.Context, e event.Event) error {
	c.mu.Lock()
	c.Events = append(c.Events, e)
	c.mu.Unlock()
	return nil
}

func (c *CaptureBus) Subscribe(context.Context, event.Channel, porteventbus.Handler) (porteventbus.Subscription, error) {
	return nopSubscription{}, nil
}

// OfType returns the recorded events of type t, in publish order.
func (c *CaptureBus) OfType(t event.Type) []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []event.Event
	for _, e := range c.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// ForEntity returns the recorded events about one entity.
func (c *CaptureBus) ForEntity(id uuid.UUID) []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []event.Event
	for _, e := range c.Events {
		if e.EntityID == id {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears all recorded events.
func (c *CaptureBus) Reset() {
	c.mu.Lock()
	c.Events = nil
	c.mu.Unlock()
}

type nopSubscription struct{}

func (nopSubscription) Unsubscribe() {}
