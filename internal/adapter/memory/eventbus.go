package memory

import (
	"context"
	"sync"

	"github.com/alanyang/promptledger/internal/domain/event"
	porteventbus "github.com/alanyang/promptledger/internal/port/eventbus"
)

// EventBus implements port/eventbus.EventBus in process. Handlers run
// synchronously on the publishing goroutine.
type EventBus struct {
	mu   sync.RWMutex
	subs map[event.Channel]map[*subscription]porteventbus.Handler
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[event.Channel]map[*subscription]porteventbus.Handler)}
}

func (eb *EventBus) Publish(_ context.Context, e event.Event) error {
	eb.mu.RLock()
	subs := eb.subs[event.ChannelFor(e.Type)]
	handlers := make([]subscriberCall, 0, len(subs))
	for sub, h := range subs {
		handlers = append(handlers, subscriberCall{ctx: sub.ctx, handler: h})
	}
	eb.mu.RUnlock()

	for _, c := range handlers {
		if c.ctx.Err() != nil {
			continue
		}
		c.handler(c.ctx, e)
	}
	return nil
}

func (eb *EventBus) Subscribe(ctx context.Context, ch event.Channel, handler porteventbus.Handler) (porteventbus.Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{ctx: subCtx}
	sub.unsubscribe = func() {
		cancel()
		eb.mu.Lock()
		delete(eb.subs[ch], sub)
		eb.mu.Unlock()
	}

	eb.mu.Lock()
	if eb.subs[ch] == nil {
		eb.subs[ch] = make(map[*subscription]porteventbus.Handler)
	}
	eb.subs[ch][sub] = handler
	eb.mu.Unlock()

	return sub, nil
}

type subscriberCall struct {
	ctx     context.Context
	handler porteventbus.Handler
}

type subscription struct {
	ctx         context.Context
	unsubscribe func()
	once        sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.unsubscribe)
}
