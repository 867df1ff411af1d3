package notify

import (
	"fmt"

	"github.com/google/uuid"
)

// Event identifies a patient-communication trigger. The wire names are fixed:
// they key notification records and idempotency keys.
type Event string

const (
	EventBooked       Event = "booked"
	EventConfirmed    Event = "confirmed"
	EventRescheduled  Event = "rescheduled"
	EventCancelled    Event = "cancelled"
	EventReminder24h  Event = "reminder24h"
	EventReminder3h   Event = "reminder3h"
	EventReceipt      Event = "receipt"
	EventDailySummary Event = "dailySummary"
)

// Valid reports whether e is a known event.
func (e Event) Valid() bool {
	switch e {
	case EventBooked, EventConfirmed, EventRescheduled, EventCancelled,
		EventReminder24h, EventReminder3h, EventReceipt, EventDailySummary:
		return true
	}
	return false
}

// Channel is one delivery mechanism.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

// AppointmentContext carries everything a template needs, pre-resolved by the
// caller. Date and Time are already formatted in the clinic timezone.
type AppointmentContext struct {
	AppointmentID uuid.UUID
	PatientName   string
	PatientEmail  string
	PatientPhone  string
	DoctorName    string
	DoctorEmail   string
	DoctorPhone   string
	ClinicName    string
	ClinicPhone   string
	Date          string // e.g. "Monday, March 10"
	Time          string // e.g. "09:00"
	ModeLabel     string // e.g. "Video consultation"
	MeetingLink   string
	Reason        string   // cancellation reason, when applicable
	AmountPaid    string   // formatted, receipt only
	SummaryLines  []string // daily summary only: one line per appointment
}

// IdempotencyKey dedupes delivery attempts per event, appointment and channel.
func IdempotencyKey(event Event, appointmentID uuid.UUID, channel Channel) string {
	return fmt.Sprintf("%s:%s:%s", event, appointmentID, channel)
}
