package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/alanyang/promptledger/internal/domain/event"
)

const notificationMethod = "notifications/message"

// Notifier is the slice of the mcp-go server the registry needs.
type Notifier interface {
	SendNotificationToSpecificClient(sessionID string, method string, params map[string]any) error
}

// WatchRegistry tracks which MCP sessions asked to be told when a run
// finishes. A watch fires once and is then dropped.
type WatchRegistry struct {
	mu        sync.Mutex
	bySession map[string]map[uuid.UUID]struct{}
	byRun     map[uuid.UUID]map[string]struct{}

	// notifier is set after the MCP server is constructed.
	notifyMu sync.RWMutex
	notifier Notifier
}

func NewWatchRegistry() *WatchRegistry {
	return &WatchRegistry{
		bySession: make(map[string]map[uuid.UUID]struct{}),
		byRun:     make(map[uuid.UUID]map[string]struct{}),
	}
}

func (r *WatchRegistry) SetMCPServer(s *mcpserver.MCPServer) {
	r.SetNotifier(s)
}

func (r *WatchRegistry) SetNotifier(n Notifier) {
	r.notifyMu.Lock()
	r.notifier = n
	r.notifyMu.Unlock()
}

// Watch registers sessionID for the completion of runID.
func (r *WatchRegistry) Watch(sessionID string, runID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bySession[sessionID] == nil {
		r.bySession[sessionID] = make(map[uuid.UUID]struct{})
	}
	r.bySession[sessionID][runID] = struct{}{}
	if r.byRun[runID] == nil {
		r.byRun[runID] = make(map[string]struct{})
	}
	r.byRun[runID][sessionID] = struct{}{}
}

// Unwatch removes a single watch.
func (r *WatchRegistry) Unwatch(sessionID string, runID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.bySession[sessionID], runID)
	if len(r.bySession[sessionID]) == 0 {
		delete(r.bySession, sessionID)
	}
	delete(r.byRun[runID], sessionID)
	if len(r.byRun[runID]) == 0 {
		delete(r.byRun, runID)
	}
}

// Unregister drops every watch held by a closed session and returns how many
// there were.
func (r *WatchRegistry) Unregister(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	runs := r.bySession[sessionID]
	for runID := range runs {
		delete(r.byRun[runID], sessionID)
		if len(r.byRun[runID]) == 0 {
			delete(r.byRun, runID)
		}
	}
	delete(r.bySession, sessionID)
	return len(runs)
}

// Watching reports whether any session watches runID.
func (r *WatchRegistry) Watching(runID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byRun[runID]) > 0
}

// HandleEvent notifies the sessions watching a run once it reaches a
// terminal state. Other events are ignored.
func (r *WatchRegistry) HandleEvent(ctx context.Context, e event.Event) error {
	if e.Type != event.TypeRunSucceeded && e.Type != event.TypeRunFailed {
		return nil
	}

	r.mu.Lock()
	sessions := r.byRun[e.EntityID]
	delete(r.byRun, e.EntityID)
	targets := make([]string, 0, len(sessions))
	for sessionID := range sessions {
		targets = append(targets, sessionID)
		delete(r.bySession[sessionID], e.EntityID)
		if len(r.bySession[sessionID]) == 0 {
			delete(r.bySession, sessionID)
		}
	}
	r.mu.Unlock()

	if len(targets) == 0 {
		return nil
	}

	r.notifyMu.RLock()
	n := r.notifier
	r.notifyMu.RUnlock()
	if n == nil {
		return fmt.Errorf("mcp server not initialized")
	}

	params := map[string]any{
		"type":      string(e.Type),
		"run_id":    e.EntityID.String(),
		"prompt_id": e.PromptID.String(),
		"timestamp": e.Timestamp,
	}
	var lastErr error
	for _, sessionID := range targets {
		if err := n.SendNotificationToSpecificClient(sessionID, notificationMethod, params); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
