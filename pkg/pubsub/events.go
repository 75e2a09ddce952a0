package pubsub

import "time"

// EventType names the kind of change being published.
type EventType string

const (
	// SettledEvent is published when a debounced value settles.
	SettledEvent EventType = "settled"
	// CommittedEvent is published when a query commits a new snapshot.
	CommittedEvent EventType = "committed"
	// ClosedEvent is published once when the publisher shuts down.
	ClosedEvent EventType = "closed"
)

// Event wraps a payload with its type and publish time.
type Event[T any] struct {
	Type      EventType `json:"type"`
	Payload   T         `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}
