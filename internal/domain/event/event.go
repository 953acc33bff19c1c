package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypePromptCreated        Type = "prompt_created"
	TypePromptUpdated        Type = "prompt_updated"
	TypePromptVersionCreated Type = "prompt_version_created"
	TypePromptActivated      Type = "prompt_activated"
	TypePromptDeleted        Type = "prompt_deleted"
	TypeRunQueued            Type = "run_queued"
	TypeRunStarted           Type = "run_started"
	TypeRunSucceeded         Type = "run_succeeded"
	TypeRunFailed            Type = "run_failed"
)

// Channel is a domain-scoped Postgres NOTIFY channel.
// All event types within a domain share one LISTEN connection.
type Channel string

const (
	ChannelPrompt Channel = "prompt"
	ChannelRun    Channel = "run"
)

// Channels lists every channel, in subscription order.
var Channels = []Channel{ChannelPrompt, ChannelRun}

var typeToChannel = map[Type]Channel{
	TypePromptCreated:        ChannelPrompt,
	TypePromptUpdated:        ChannelPrompt,
	TypePromptVersionCreated: ChannelPrompt,
	TypePromptActivated:      ChannelPrompt,
	TypePromptDeleted:        ChannelPrompt,
	TypeRunQueued:            ChannelRun,
	TypeRunStarted:           ChannelRun,
	TypeRunSucceeded:         ChannelRun,
	TypeRunFailed:            ChannelRun,
}

// ChannelFor returns the domain channel for a given event type.
func ChannelFor(t Type) Channel { return typeToChannel[t] }

// Event carries identifiers only, not full state.
// Subscribers fetch fresh state from the registry or the ledger.
type Event struct {
	Type      Type      `json:"type"`
	EntityID  uuid.UUID `json:"entity_id"`
	PromptID  uuid.UUID `json:"prompt_id,omitempty"`
	Version   int       `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func New(eventType Type, entityID uuid.UUID, at time.Time) Event {
	return Event{
		Type:      eventType,
		EntityID:  entityID,
		Timestamp: at,
	}
}

// WithPrompt attaches the owning prompt and version number, for run and
// version events.
func (e Event) WithPrompt(promptID uuid.UUID, version int) Event {
	e.PromptID = promptID
	e.Version = version
	return e
}
