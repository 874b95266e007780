package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a message or conversation does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError is returned for malformed input. It is always raised
// before any mutation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// InvalidTransitionError is returned when a status change would move a
// message backward or out of a terminal state.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}
