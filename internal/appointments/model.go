package appointments

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the appointment lifecycle state. Values round-trip exactly on the
// wire and in the database.
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusScheduled      Status = "scheduled"
	StatusConfirmed      Status = "confirmed"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
	StatusRescheduled    Status = "rescheduled"
	StatusNoShow         Status = "no_show"
)

// allowedTransitions is the lifecycle table. A status missing from the map is
// terminal. no_show is reachable from every non-terminal status.
var allowedTransitions = map[Status]map[Status]struct{}{
	StatusPendingPayment: statusSet(StatusScheduled, StatusCancelled, StatusNoShow),
	StatusScheduled:      statusSet(StatusConfirmed, StatusCancelled, StatusNoShow),
	StatusConfirmed:      statusSet(StatusRescheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow),
	StatusRescheduled:    statusSet(StatusConfirmed, StatusRescheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow),
	StatusInProgress:     statusSet(StatusCompleted, StatusNoShow),
}

func statusSet(statuses ...Status) map[Status]struct{} {
	set := make(map[Status]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return set
}

// OccupyingStatuses are the statuses that block a slot. Cancelled and no-show
// appointments free theirs.
var OccupyingStatuses = []Status{
	StatusPendingPayment,
	StatusScheduled,
	StatusConfirmed,
	StatusRescheduled,
	StatusInProgress,
}

// ParseStatus validates a wire-level status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPendingPayment, StatusScheduled, StatusConfirmed, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusRescheduled, StatusNoShow:
		return Status(s), nil
	}
	return "", fmt.Errorf("appointments: unknown status %q", s)
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to Status) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(s Status) bool {
	_, ok := allowedTransitions[s]
	return !ok
}

// Occupies reports whether an appointment in this status blocks its slot.
func (s Status) Occupies() bool {
	for _, o := range OccupyingStatuses {
		if s == o {
			return true
		}
	}
	return false
}

// Mode is the consultation mode.
type Mode string

const (
	ModeInPerson Mode = "in-person"
	ModeVideo    Mode = "video"
	ModePhone    Mode = "phone"
)

// ParseMode validates a wire-level mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeInPerson, ModeVideo, ModePhone:
		return Mode(s), nil
	}
	return "", fmt.Errorf("appointments: unknown mode %q", s)
}

// Appointment is a time-boxed consultation between a doctor and a patient.
// The interval is half-open: [StartAt, EndAt). Rows are never hard-deleted;
// cancellation is a status.
type Appointment struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	PatientID   uuid.UUID `json:"patient_id"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Status      Status    `json:"status"`
	Mode        Mode      `json:"mode"`
	MeetingLink string    `json:"meeting_link,omitempty"`
	Symptoms    string    `json:"symptoms,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
