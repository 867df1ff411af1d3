package appointments

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no appointment row matches the id.
	ErrNotFound = errors.New("appointments: appointment not found")

	// ErrSlotUnavailable is returned when the requested slot is not open at
	// validation time. The caller should re-fetch slots.
	ErrSlotUnavailable = errors.New("appointments: slot unavailable")

	// ErrSlotTaken is returned when the insert loses the race on the slot's
	// unique index. Retryable by the caller against a fresh slot list.
	ErrSlotTaken = errors.New("appointments: slot already taken")

	// ErrReasonRequired is returned by cancel when no reason is given.
	ErrReasonRequired = errors.New("appointments: cancellation reason required")
)

// InvalidTransitionError reports an illegal lifecycle move.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("appointments: illegal transition %s -> %s", e.From, e.To)
}

// ValidationError reports a request rejected before any mutation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("appointments: invalid %s: %s", e.Field, e.Msg)
}
