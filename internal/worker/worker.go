// Package worker executes queued runs. Execution itself is a stub: the
// active-at-creation version is rendered with the run input; no model is
// called.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/alanyang/promptledger/internal/adapter/queue"
	"github.com/alanyang/promptledger/internal/domain/apperr"
	domainprompt "github.com/alanyang/promptledger/internal/domain/prompt"
	domainrun "github.com/alanyang/promptledger/internal/domain/run"
)

// Ledger is the part of the run service a worker drives.
type Ledger interface {
	MarkRunning(ctx context.Context, id uuid.UUID) (domainrun.Run, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID, output string) (domainrun.Run, error)
	MarkFailed(ctx context.Context, id uuid.UUID, message string) (domainrun.Run, error)
	ClaimNext(ctx context.Context) (domainrun.Run, bool, error)
	GetRun(ctx context.Context, id uuid.UUID) (domainrun.Run, error)
}

type Versions interface {
	GetVersion(ctx context.Context, promptID uuid.UUID, version int) (domainprompt.Version, error)
}

type Executor interface {
	Execute(ctx context.Context, r domainrun.Run, v domainprompt.Version) (string, error)
}

// RenderExecutor produces the rendered prompt as the run output.
type RenderExecutor struct{}

func (RenderExecutor) Execute(_ context.Context, r domainrun.Run, v domainprompt.Version) (string, error) {
	return domainprompt.Render(v.Content, r.Input)
}

type Worker struct {
	ledger   Ledger
	versions Versions
	exec     Executor
}

func New(ledger Ledger, versions Versions, exec Executor) *Worker {
	return &Worker{ledger: ledger, versions: versions, exec: exec}
}

// ProcessTask is the asynq handler for run:execute tasks.
func (w *Worker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	id, err := queue.ParseRunExecute(t)
	if err != nil {
		return err
	}
	return w.Handle(ctx, id)
}

// Handle starts the run and executes it. A redelivered task whose run is
// still running resumes it, since the earlier delivery failed before
// recording an outcome; a run that already finished is left alone.
func (w *Worker) Handle(ctx context.Context, id uuid.UUID) error {
	r, err := w.ledger.MarkRunning(ctx, id)
	switch {
	case errors.Is(err, apperr.ErrInvalidState):
		r, err = w.ledger.GetRun(ctx, id)
		if err != nil {
			return fmt.Errorf("reload run %s: %w", id, err)
		}
		if r.Status != domainrun.StatusRunning {
			slog.InfoContext(ctx, "run already finished, skipping", "run_id", id, "status", r.Status)
			return nil
		}
		slog.InfoContext(ctx, "resuming started run", "run_id", id)
	case errors.Is(err, apperr.ErrNotFound):
		return fmt.Errorf("start run %s: %v: %w", id, err, asynq.SkipRetry)
	case err != nil:
		return fmt.Errorf("start run %s: %w", id, err)
	}
	return w.Execute(ctx, r)
}

// Execute runs a run that is already running and records the outcome.
// Execution failures are recorded on the run, not returned.
func (w *Worker) Execute(ctx context.Context, r domainrun.Run) error {
	output, execErr := w.execute(ctx, r)

	var err error
	if execErr != nil {
		slog.WarnContext(ctx, "run failed", "run_id", r.ID, "error", execErr)
		_, err = w.ledger.MarkFailed(ctx, r.ID, execErr.Error())
	} else {
		_, err = w.ledger.MarkSucceeded(ctx, r.ID, output)
	}
	if errors.Is(err, apperr.ErrInvalidState) {
		slog.InfoContext(ctx, "run finished elsewhere", "run_id", r.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("finish run %s: %w", r.ID, err)
	}
	return nil
}

func (w *Worker) execute(ctx context.Context, r domainrun.Run) (string, error) {
	v, err := w.versions.GetVersion(ctx, r.PromptID, r.PromptVersion)
	if err != nil {
		return "", fmt.Errorf("load prompt version %d: %w", r.PromptVersion, err)
	}
	return w.exec.Execute(ctx, r, v)
}

// Poll claims and executes queued runs until ctx is cancelled. It drains the
// queue on every tick, executing at most concurrency runs at once.
func (w *Worker) Poll(ctx context.Context, interval time.Duration, concurrency int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		w.drain(ctx, concurrency)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) drain(ctx context.Context, concurrency int) {
	var g errgroup.Group
	g.SetLimit(max(concurrency, 1))
	defer g.Wait()

	for ctx.Err() == nil {
		r, ok, err := w.ledger.ClaimNext(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "claim run failed", "error", err)
			return
		}
		if !ok {
			return
		}
		g.Go(func() error {
			if err := w.Execute(ctx, r); err != nil {
				slog.ErrorContext(ctx, "execute run failed", "run_id", r.ID, "error", err)
			}
			return nil
		})
	}
}

// Mux routes asynq tasks to the worker.
func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeRunExecute, w.ProcessTask)
	return mux
}
