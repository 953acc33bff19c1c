package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	domainrun "github.com/alanyang/promptledger/internal/domain/run"
)

const (
	runMaxRetry = 3
	runTimeout  = 5 * time.Minute
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Dispatcher implements port/dispatcher.RunDispatcher. The asynq task id is
// the run id, so a run is enqueued at most once.
type Dispatcher struct {
	client enqueuer
}

func NewDispatcher(opt asynq.RedisClientOpt) *Dispatcher {
	return &Dispatcher{client: asynq.NewClient(opt)}
}

func (d *Dispatcher) Dispatch(ctx context.Context, r domainrun.Run) error {
	task, err := NewRunExecuteTask(r.ID)
	if err != nil {
		return err
	}
	info, err := d.client.EnqueueContext(ctx, task,
		asynq.TaskID(r.ID.String()),
		asynq.MaxRetry(runMaxRetry),
		asynq.Timeout(runTimeout),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		slog.DebugContext(ctx, "run already enqueued", "run_id", r.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeRunExecute, err)
	}
	slog.DebugContext(ctx, "run enqueued", "run_id", r.ID, "queue", info.Queue)
	return nil
}

func (d *Dispatcher) Close() error {
	return d.client.Close()
}
