package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/clinic-platform/internal/appointments"
	"github.com/carebook/clinic-platform/internal/patients"
	"github.com/carebook/clinic-platform/pkg/logging"
)

// Directory resolves contact details for template rendering.
type Directory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patients.Patient, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*patients.Doctor, error)
}

// ClinicInfo is the static clinic identity stamped on every message.
type ClinicInfo struct {
	Name  string
	Phone string
}

// AppointmentNotifier bridges the booking coordinator to the dispatcher: it
// resolves contacts, formats the appointment for templates, and fans out.
// It satisfies the coordinator's notifier contract.
type AppointmentNotifier struct {
	dispatcher *Dispatcher
	directory  Directory
	clinic     ClinicInfo
	loc        *time.Location
	logger     *logging.Logger
}

// NewAppointmentNotifier constructs the bridge. loc is the clinic timezone
// used to render dates and times.
func NewAppointmentNotifier(dispatcher *Dispatcher, directory Directory, clinic ClinicInfo, loc *time.Location, logger *logging.Logger) *AppointmentNotifier {
	if dispatcher == nil {
		panic("notify: dispatcher required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentNotifier{
		dispatcher: dispatcher,
		directory:  directory,
		clinic:     clinic,
		loc:        loc,
		logger:     logger,
	}
}

// AppointmentEvent receives a lifecycle event from the booking coordinator.
// Delivery is best-effort: failures are logged and audited, never returned.
func (n *AppointmentNotifier) AppointmentEvent(ctx context.Context, event string, appt *appointments.Appointment) {
	n.Notify(ctx, Event(event), appt)
}

// PaymentRecorded sends the patient a receipt for a recorded payment.
func (n *AppointmentNotifier) PaymentRecorded(ctx context.Context, appt *appointments.Appointment, amount string) {
	c, err := n.BuildContext(ctx, appt)
	if err != nil {
		n.logger.Error("failed to build receipt context", "error", err, "appointment_id", appt.ID)
		return
	}
	c.AmountPaid = amount
	n.dispatcher.Dispatch(ctx, EventReceipt, c)
}

// Notify resolves contacts and dispatches one event for an appointment.
func (n *AppointmentNotifier) Notify(ctx context.Context, event Event, appt *appointments.Appointment) DispatchResult {
	c, err := n.BuildContext(ctx, appt)
	if err != nil {
		n.logger.Error("failed to build notification context", "error", err, "event", event, "appointment_id", appt.ID)
		return DispatchResult{
			Email:    ChannelResult{Err: err},
			WhatsApp: ChannelResult{Err: err},
		}
	}
	return n.dispatcher.Dispatch(ctx, event, c)
}

// BuildContext resolves patient and doctor records into a template context.
func (n *AppointmentNotifier) BuildContext(ctx context.Context, appt *appointments.Appointment) (AppointmentContext, error) {
	patient, err := n.directory.GetPatient(ctx, appt.PatientID)
	if err != nil {
		return AppointmentContext{}, fmt.Errorf("notify: resolve patient: %w", err)
	}
	doctor, err := n.directory.GetDoctor(ctx, appt.DoctorID)
	if err != nil {
		return AppointmentContext{}, fmt.Errorf("notify: resolve doctor: %w", err)
	}

	start := appt.StartAt.In(n.loc)
	return AppointmentContext{
		AppointmentID: appt.ID,
		PatientName:   patient.FullName,
		PatientEmail:  patient.Email,
		PatientPhone:  patient.Phone,
		DoctorName:    doctor.FullName,
		DoctorEmail:   doctor.Email,
		DoctorPhone:   doctor.Phone,
		ClinicName:    n.clinic.Name,
		ClinicPhone:   n.clinic.Phone,
		Date:          start.Format("Monday, January 2"),
		Time:          start.Format("15:04"),
		ModeLabel:     ModeLabel(appt.Mode),
		MeetingLink:   appt.MeetingLink,
		Reason:        appt.Reason,
	}, nil
}

// ModeLabel renders a consultation mode for patient-facing messages.
func ModeLabel(mode appointments.Mode) string {
	switch mode {
	case appointments.ModeVideo:
		return "Video consultation"
	case appointments.ModePhone:
		return "Phone consultation"
	default:
		return "In-person visit"
	}
}

var _ appointments.Notifier = (*AppointmentNotifier)(nil)
