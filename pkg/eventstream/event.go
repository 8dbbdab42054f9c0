package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMemoryStored is emitted after a memory row is inserted.
	EventTypeMemoryStored = "worklog.memory.stored"

	// EventTypeMemoryUpdated is emitted after a memory row is updated.
	EventTypeMemoryUpdated = "worklog.memory.updated"

	// EventTypeEntryLogged is emitted after a work entry is logged.
	EventTypeEntryLogged = "worklog.entry.logged"

	// EventTypeKnowledgeStored is emitted after a knowledge base entry is stored.
	EventTypeKnowledgeStored = "worklog.knowledge.stored"

	// EventTypeChatSent is emitted after an agent chat message is sent.
	EventTypeChatSent = "worklog.chat.sent"

	// EventTypeCurationCompleted is emitted after a curation run is recorded.
	EventTypeCurationCompleted = "worklog.curation.completed"
)

// ChangeEvent is a transport-neutral event describing one mutation of the
// shared knowledge store.
type ChangeEvent struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	EventID       string         `json:"event_id"`
	EmittedAt     time.Time      `json:"emitted_at"`
	Source        EventSource    `json:"source"`
	Table         string         `json:"table"`
	RowID         int64          `json:"row_id,omitempty"`
	Key           string         `json:"key,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// EventSource identifies where the change originated.
type EventSource struct {
	Agent  string `json:"agent,omitempty"`
	System string `json:"system,omitempty"`
}

// NewChangeEvent creates a ChangeEvent with the schema version, a fresh
// event id, and the emission timestamp filled in.
func NewChangeEvent(eventType, table string, source EventSource) *ChangeEvent {
	return &ChangeEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Table:         table,
	}
}
