package wire

import (
	"context"
	"log/slog"
	"time"
)

// StaleFailer fails runs stuck in running, typically because the worker
// executing them died.
type StaleFailer interface {
	FailStale(ctx context.Context, maxAge time.Duration) (int, error)
}

// startReaper fails runs that have been running longer than staleAfter. It
// sweeps once at startup, since runs orphaned by a restart are already
// overdue, then every interval. It blocks until ctx is cancelled.
func startReaper(ctx context.Context, f StaleFailer, staleAfter, interval time.Duration) {
	sweep := func() {
		n, err := f.FailStale(ctx, staleAfter)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("reaper: failing stale runs failed", "error", err)
			}
			return
		}
		if n > 0 {
			slog.Warn("reaper: failed stale runs", "count", n, "stale_after", staleAfter)
		}
	}

	sweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
