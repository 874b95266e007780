package broker

import "time"

// Kind identifies an event type on the wire.
type Kind string

const (
	KindNewMessage   Kind = "new-message"
	KindStatusUpdate Kind = "message-status-update"
)

// Event is a conversation-scoped fan-out event.
type Event struct {
	Kind           Kind
	ConversationID string
	Timestamp      time.Time
	Payload        any
}
