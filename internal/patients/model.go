package patients

import (
	"time"

	"github.com/google/uuid"
)

// Patient is the contact-facing view of a patient profile. Profile CRUD is
// owned elsewhere; the core only reads it to resolve recipients.
type Patient struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Doctor carries the contact and meeting details the core needs for
// notifications and video confirmations.
type Doctor struct {
	ID          uuid.UUID `json:"id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	MeetingLink string    `json:"meeting_link"`
}
