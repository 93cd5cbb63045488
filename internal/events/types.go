// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Submission lifecycle events
	PhaseChanged EventType = "tx.phase_changed"
	TxSubmitted  EventType = "tx.submitted"
	TxConfirmed  EventType = "tx.confirmed"
	TxFailed     EventType = "tx.failed"
	TxRebuilt    EventType = "tx.rebuilt"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// Publisher is the write side of the bus, as seen by producers.
type Publisher interface {
	Publish(event Event) error
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// NewBase stamps an event of the given type with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// PhaseChangedEvent is emitted on every phase transition of a sender.
type PhaseChangedEvent struct {
	BaseEvent
	Sender string
	From   string
	To     string
}

// TxSubmittedEvent is emitted after a transaction was accepted by the RPC node.
type TxSubmittedEvent struct {
	BaseEvent
	Sender    string
	Label     string
	Signature string
	Attempt   int
}

// TxConfirmedEvent is emitted when a submission finished successfully.
type TxConfirmedEvent struct {
	BaseEvent
	Sender    string
	Label     string
	Signature string
	Duration  time.Duration
}

// TxFailedEvent is emitted when a submission ended with a classified error.
type TxFailedEvent struct {
	BaseEvent
	Sender  string
	Label   string
	Code    string
	Message string
}

// TxRebuiltEvent is emitted when an expired blockhash forces a rebuild.
type TxRebuiltEvent struct {
	BaseEvent
	Sender  string
	Label   string
	Attempt int
}
