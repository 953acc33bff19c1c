package run

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainrun "github.com/alanyang/promptledger/internal/domain/run"
)

type Repository interface {
	Create(ctx context.Context, r domainrun.Run) (domainrun.Run, error)
	GetByID(ctx context.Context, id uuid.UUID) (domainrun.Run, error)
	List(ctx context.Context, filters domainrun.ListFilters) ([]domainrun.Run, error)

	// UpdateStatus performs an atomic CAS: it applies t only if the current
	// status equals t.From. A missing run yields apperr.ErrNotFound, a status
	// mismatch apperr.ErrInvalidState.
	UpdateStatus(ctx context.Context, id uuid.UUID, t domainrun.Transition) (domainrun.Run, error)

	// ClaimNext moves the oldest queued run to running. ok is false when
	// nothing is queued.
	ClaimNext(ctx context.Context, at time.Time) (r domainrun.Run, ok bool, err error)

	// ListRunningBefore returns up to limit runs still running that started
	// before cutoff, oldest first.
	ListRunningBefore(ctx context.Context, cutoff time.Time, limit int) ([]domainrun.Run, error)
}
