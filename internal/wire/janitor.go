package wire

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyang/promptledger/internal/domain/event"
	porteventbus "github.com/alanyang/promptledger/internal/port/eventbus"
)

// Purger deletes expired idempotency keys and reports how many went.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// startJanitor purges expired idempotency keys on a fixed interval. Every run
// that finishes also nudges it, debounced to at most one extra sweep per
// interval, so bursts of traffic do not leave a backlog for a full period.
// It blocks until ctx is cancelled.
func startJanitor(ctx context.Context, p Purger, bus porteventbus.EventBus, interval time.Duration) {
	nudge := make(chan struct{}, 1)

	if bus != nil {
		if _, err := bus.Subscribe(ctx, event.ChannelRun, func(_ context.Context, e event.Event) {
			if e.Type != event.TypeRunSucceeded && e.Type != event.TypeRunFailed {
				return
			}
			select {
			case nudge <- struct{}{}:
			default:
			}
		}); err != nil {
			slog.Error("janitor: failed to subscribe to run channel", "error", err)
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last time.Time
	sweep := func() {
		last = time.Now()
		n, err := p.Purge(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("janitor: purge failed", "error", err)
			}
			return
		}
		if n > 0 {
			slog.Info("janitor: purged expired idempotency keys", "count", n)
		}
	}

	// Startup sweep: keys that expired while the process was down.
	sweep()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		case <-nudge:
			if time.Since(last) >= interval {
				sweep()
			}
		}
	}
}
