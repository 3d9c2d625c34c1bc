package eventbus

import (
	"encoding/json"
	"time"
)

// EventType identifies an event flowing through the bus.
type EventType string

const (
	// Issue lifecycle events from the tracker's trigger wiring.
	EventIssueChanged EventType = "issue.changed"
	EventIssueCreated EventType = "issue.created"
	EventIssueDeleted EventType = "issue.deleted"

	// Config events from the admin surface.
	EventConfigUpdated EventType = "config.updated"
)

// Event is a single change notification flowing through the bus.
type Event struct {
	Type EventType `json:"type"`

	// Key is the changed record's identity key.
	Key string `json:"key"`

	// ReceivedAt is stamped by the bus when the event is dispatched.
	ReceivedAt time.Time `json:"receivedAt,omitempty"`

	// Raw is the original payload, kept for handlers that need fields
	// the bus does not model.
	Raw json.RawMessage `json:"-"`
}

// Result aggregates the outcome of one dispatch across handlers.
type Result struct {
	// Recomputed lists the keys whose metrics were recomputed.
	Recomputed []string

	// Skipped lists the keys suppressed by the debounce window.
	Skipped []string
}
