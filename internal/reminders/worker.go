package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/clinic-platform/internal/appointments"
	"github.com/carebook/clinic-platform/internal/notify"
	"github.com/carebook/clinic-platform/internal/patients"
	"github.com/carebook/clinic-platform/pkg/logging"
)

// AppointmentSource lists upcoming occupying appointments.
type AppointmentSource interface {
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]appointments.Appointment, error)
	ListForDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]appointments.Appointment, error)
}

// DoctorSource lists doctors for the daily summary pass.
type DoctorSource interface {
	ListDoctors(ctx context.Context) ([]patients.Doctor, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*patients.Doctor, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*patients.Patient, error)
}

// EventSink delivers events. The dispatcher's idempotency keys make repeated
// worker passes over the same window safe.
type EventSink interface {
	Notify(ctx context.Context, event notify.Event, appt *appointments.Appointment) notify.DispatchResult
	Dispatch(ctx context.Context, event notify.Event, c notify.AppointmentContext) notify.DispatchResult
}

// Worker periodically sends appointment reminders and doctor daily summaries.
type Worker struct {
	appts        AppointmentSource
	directory    DoctorSource
	sink         EventSink
	clinic       notify.ClinicInfo
	loc          *time.Location
	pollInterval time.Duration
	summaryHour  int
	logger       *logging.Logger
	now          func() time.Time
}

// Config tunes the worker.
type Config struct {
	PollInterval time.Duration // defaults to 5m
	SummaryHour  int           // local hour for the daily summary; defaults to 18
}

// NewWorker creates a reminder worker.
func NewWorker(appts AppointmentSource, directory DoctorSource, sink EventSink, clinic notify.ClinicInfo, loc *time.Location, cfg Config, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	if cfg.SummaryHour <= 0 {
		cfg.SummaryHour = 18
	}
	return &Worker{
		appts:        appts,
		directory:    directory,
		sink:         sink,
		clinic:       clinic,
		loc:          loc,
		pollInterval: cfg.PollInterval,
		summaryHour:  cfg.SummaryHour,
		logger:       logger,
		now:          time.Now,
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("reminder worker started", "poll_interval", w.pollInterval, "summary_hour", w.summaryHour)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopped")
			return
		case <-ticker.C:
			if _, err := w.ProcessDue(ctx); err != nil {
				w.logger.Error("reminder pass failed", "error", err)
			}
			if w.now().In(w.loc).Hour() == w.summaryHour {
				if _, err := w.SendDailySummaries(ctx); err != nil {
					w.logger.Error("daily summary pass failed", "error", err)
				}
			}
		}
	}
}

// ProcessDue sends 24-hour and 3-hour reminders for appointments entering the
// respective windows. Returns the number of appointments processed.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	now := w.now()
	processed := 0

	passes := []struct {
		event notify.Event
		lead  time.Duration
	}{
		{notify.EventReminder24h, 24 * time.Hour},
		{notify.EventReminder3h, 3 * time.Hour},
	}
	for _, pass := range passes {
		// The window trails the lead time by one hour; overlapping passes are
		// deduplicated by the dispatcher's idempotency keys.
		from := now.Add(pass.lead - time.Hour)
		to := now.Add(pass.lead)
		appts, err := w.appts.ListStartingBetween(ctx, from, to)
		if err != nil {
			return processed, fmt.Errorf("reminders: list window: %w", err)
		}
		for i := range appts {
			appt := &appts[i]
			if !remindable(appt.Status) {
				continue
			}
			res := w.sink.Notify(ctx, pass.event, appt)
			if res.Email.Err != nil && res.WhatsApp.Err != nil {
				w.logger.Error("reminder delivery failed on all channels",
					"appointment_id", appt.ID, "event", pass.event)
				continue
			}
			processed++
		}
	}
	return processed, nil
}

// remindable excludes bookings still awaiting payment: chasing a reminder for
// an unpaid hold reads as a confirmation the clinic never gave.
func remindable(s appointments.Status) bool {
	switch s {
	case appointments.StatusScheduled, appointments.StatusConfirmed, appointments.StatusRescheduled:
		return true
	}
	return false
}

// SendDailySummaries sends every doctor their schedule for tomorrow. Returns
// the number of summaries dispatched.
func (w *Worker) SendDailySummaries(ctx context.Context) (int, error) {
	doctors, err := w.directory.ListDoctors(ctx)
	if err != nil {
		return 0, fmt.Errorf("reminders: list doctors: %w", err)
	}

	now := w.now().In(w.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, w.loc).AddDate(0, 0, 1)
	dayEnd := dayStart.AddDate(0, 0, 1)

	sent := 0
	for i := range doctors {
		doctor := &doctors[i]
		appts, err := w.appts.ListForDoctorBetween(ctx, doctor.ID, dayStart, dayEnd)
		if err != nil {
			w.logger.Error("failed to list schedule", "error", err, "doctor_id", doctor.ID)
			continue
		}
		if len(appts) == 0 {
			continue
		}

		lines := make([]string, 0, len(appts))
		for j := range appts {
			lines = append(lines, w.summaryLine(ctx, &appts[j]))
		}

		res := w.sink.Dispatch(ctx, notify.EventDailySummary, notify.AppointmentContext{
			AppointmentID: summaryID(doctor.ID, dayStart),
			DoctorName:    doctor.FullName,
			DoctorEmail:   doctor.Email,
			DoctorPhone:   doctor.Phone,
			ClinicName:    w.clinic.Name,
			ClinicPhone:   w.clinic.Phone,
			Date:          dayStart.Format("Monday, January 2"),
			SummaryLines:  lines,
		})
		if res.Email.Sent || res.WhatsApp.Sent {
			sent++
		}
	}
	return sent, nil
}

func (w *Worker) summaryLine(ctx context.Context, appt *appointments.Appointment) string {
	name := "(unknown patient)"
	if patient, err := w.directory.GetPatient(ctx, appt.PatientID); err == nil {
		name = patient.FullName
	}
	return fmt.Sprintf("%s - %s (%s)", appt.StartAt.In(w.loc).Format("15:04"), name, notify.ModeLabel(appt.Mode))
}

// summaryID derives a stable pseudo-appointment id per doctor and day so the
// dispatcher's idempotency key dedupes repeated summary passes.
func summaryID(doctorID uuid.UUID, day time.Time) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("daily-summary:"+doctorID.String()+":"+day.Format("2006-01-02")))
}
