package store

import "fmt"

// Status represents a message delivery state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

// statusRank orders the delivery states. Transitions must strictly
// advance along this ordering; read and failed are terminal.
var statusRank = map[Status]int{
	StatusPending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// ParseStatus validates a status name from the wire.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return Status(s), nil
	}
	return "", &ValidationError{Reason: fmt.Sprintf("invalid status %q", s)}
}

// CheckTransition returns InvalidTransitionError unless to strictly
// advances from, or to is failed and from is non-terminal.
func CheckTransition(from, to Status) error {
	if from == StatusRead || from == StatusFailed {
		return &InvalidTransitionError{From: from, To: to}
	}
	if to == StatusFailed {
		return nil
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return &InvalidTransitionError{From: from, To: to}
	}
	toRank, ok := statusRank[to]
	if !ok || toRank <= fromRank {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}
