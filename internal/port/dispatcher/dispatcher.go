package dispatcher

import (
	"context"

	domainrun "github.com/alanyang/promptledger/internal/domain/run"
)

// RunDispatcher hands a freshly queued run to the external execution worker.
// Dispatch failures never fail run creation: the run stays queued and can
// still be claimed by polling.
type RunDispatcher interface {
	Dispatch(ctx context.Context, r domainrun.Run) error
}
