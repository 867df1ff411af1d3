package availability

import (
	"time"

	"github.com/google/uuid"
)

// Template is a doctor's recurring weekly availability for one weekday.
// Times are clock times in the clinic's timezone, "15:04" formatted.
type Template struct {
	ID              uuid.UUID `json:"id"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	Weekday         int       `json:"weekday"` // 0=Sunday .. 6=Saturday, matching time.Weekday
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	SlotDurationMin int       `json:"slot_duration_minutes"`
	BufferMin       int       `json:"buffer_minutes"`
	IsActive        bool      `json:"is_active"`
}

// Slot is a computed candidate start time for one day. Never persisted.
type Slot struct {
	Time      string `json:"time"` // "15:04"
	Available bool   `json:"available"`
}

// Step returns the spacing between consecutive slot starts.
func (t *Template) Step() time.Duration {
	return time.Duration(t.SlotDurationMin+t.BufferMin) * time.Minute
}
