// Package system provides the production identity, clock and fallback
// dispatch collaborators.
package system

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainrun "github.com/alanyang/promptledger/internal/domain/run"
)

type Clock struct{}

func (Clock) Now() time.Time { return time.Now().UTC() }

type IDGenerator struct{}

func (IDGenerator) NewID() uuid.UUID { return uuid.New() }

// NopDispatcher is used when no queue is configured; workers then find queued
// runs by polling ClaimNext.
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(ctx context.Context, r domainrun.Run) error {
	slog.DebugContext(ctx, "no run dispatcher configured", "run_id", r.ID)
	return nil
}
