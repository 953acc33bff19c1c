// Package queue dispatches runs to execution workers over asynq (Redis).
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TypeRunExecute = "run:execute"

type RunExecutePayload struct {
	RunID string `json:"run_id"`
}

func NewRunExecuteTask(runID uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(RunExecutePayload{RunID: runID.String()})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeRunExecute, data), nil
}

// ParseRunExecute extracts the run id. A malformed payload can never succeed,
// so the error is marked to skip retries.
func ParseRunExecute(t *asynq.Task) (uuid.UUID, error) {
	var p RunExecutePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return uuid.Nil, fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	id, err := uuid.Parse(p.RunID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse run id: %v: %w", err, asynq.SkipRetry)
	}
	return id, nil
}
