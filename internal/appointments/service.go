package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carebook/clinic-platform/internal/observability/metrics"
	"github.com/carebook/clinic-platform/internal/patients"
	"github.com/carebook/clinic-platform/pkg/logging"
)

var bookingTracer = otel.Tracer("clinic.internal.appointments")

// Lifecycle events handed to the notifier. Best-effort: a delivery failure
// never rolls back the booking mutation that produced it.
const (
	EventBooked      = "booked"
	EventConfirmed   = "confirmed"
	EventRescheduled = "rescheduled"
	EventCancelled   = "cancelled"
)

// SlotSource validates slot choices against the doctor's availability.
type SlotSource interface {
	IsSlotOpen(ctx context.Context, doctorID uuid.UUID, date time.Time, hhmm string) (bool, error)
	SlotInterval(ctx context.Context, doctorID uuid.UUID, date time.Time, hhmm string) (time.Time, time.Time, error)
}

// DirectorySource resolves patient and doctor profiles.
type DirectorySource interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patients.Patient, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*patients.Doctor, error)
}

// Notifier receives lifecycle events for fan-out to delivery channels.
type Notifier interface {
	AppointmentEvent(ctx context.Context, event string, appt *Appointment)
	PaymentRecorded(ctx context.Context, appt *Appointment, amount string)
}

// Store is the persistence surface the coordinator drives.
type Store interface {
	Insert(ctx context.Context, appt *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, meetingLink, reason string) (*Appointment, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, startAt, endAt time.Time) (*Appointment, error)
	OccupantAt(ctx context.Context, doctorID uuid.UUID, startAt time.Time) (uuid.UUID, bool, error)
}

// Service is the booking coordinator: it validates slot choices, owns the
// appointment lifecycle and emits notification events.
type Service struct {
	store     Store
	slots     SlotSource
	directory DirectorySource
	notifier  Notifier
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
}

// NewService constructs a booking coordinator.
func NewService(store Store, slots SlotSource, directory DirectorySource, notifier Notifier, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if store == nil {
		panic("appointments: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:     store,
		slots:     slots,
		directory: directory,
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
	}
}

// BookRequest carries a booking attempt.
type BookRequest struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      time.Time
	Time      string // "15:04" slot start
	Mode      Mode
	Symptoms  string
	Reason    string
	Notes     string
	// ByStaff bookings start confirmed instead of scheduled.
	ByStaff bool
	// RequiresPayment bookings start pending_payment and hold the slot until
	// the front desk records the payment.
	RequiresPayment bool
}

// Book validates the slot choice and creates the appointment. A lost race on
// the slot surfaces as ErrSlotTaken; callers retry against fresh slots.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "appointments.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.doctor_id", req.DoctorID.String()),
		attribute.String("clinic.patient_id", req.PatientID.String()),
	)

	if err := validateBookRequest(&req); err != nil {
		s.metrics.Observe("book", "invalid")
		return nil, err
	}

	if _, err := s.directory.GetPatient(ctx, req.PatientID); err != nil {
		if errors.Is(err, patients.ErrPatientNotFound) {
			s.metrics.Observe("book", "invalid")
			return nil, &ValidationError{Field: "patient_id", Msg: "no such patient"}
		}
		return nil, fmt.Errorf("appointments: resolve patient: %w", err)
	}

	open, err := s.slots.IsSlotOpen(ctx, req.DoctorID, req.Date, req.Time)
	if err != nil {
		return nil, fmt.Errorf("appointments: validate slot: %w", err)
	}
	if !open {
		s.metrics.Observe("book", "slot_unavailable")
		return nil, ErrSlotUnavailable
	}

	startAt, endAt, err := s.slots.SlotInterval(ctx, req.DoctorID, req.Date, req.Time)
	if err != nil {
		return nil, fmt.Errorf("appointments: resolve interval: %w", err)
	}

	status := StatusScheduled
	switch {
	case req.ByStaff:
		status = StatusConfirmed
	case req.RequiresPayment:
		status = StatusPendingPayment
	}
	appt := &Appointment{
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		StartAt:   startAt,
		EndAt:     endAt,
		Status:    status,
		Mode:      req.Mode,
		Symptoms:  req.Symptoms,
		Reason:    req.Reason,
		Notes:     req.Notes,
	}
	if err := s.store.Insert(ctx, appt); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.Observe("book", "slot_taken")
			span.RecordError(err)
			return nil, ErrSlotTaken
		}
		span.RecordError(err)
		return nil, err
	}

	s.metrics.Observe("book", "ok")
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"doctor_id", appt.DoctorID,
		"patient_id", appt.PatientID,
		"start_at", appt.StartAt,
		"status", appt.Status,
	)
	s.emit(ctx, EventBooked, appt)
	return appt, nil
}

// Confirm flips a scheduled appointment to confirmed. Video consultations
// without a meeting link get the doctor's standing link attached first.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "appointments.confirm")
	defer span.End()

	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusScheduled {
		s.metrics.Observe("confirm", "illegal_transition")
		return nil, &InvalidTransitionError{From: appt.Status, To: StatusConfirmed}
	}

	meetingLink := ""
	if appt.Mode == ModeVideo && appt.MeetingLink == "" {
		doctor, err := s.directory.GetDoctor(ctx, appt.DoctorID)
		if err != nil {
			return nil, fmt.Errorf("appointments: resolve doctor link: %w", err)
		}
		meetingLink = doctor.MeetingLink
	}

	updated, err := s.store.UpdateStatus(ctx, id, StatusScheduled, StatusConfirmed, meetingLink, "")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.metrics.Observe("confirm", "ok")
	s.logger.Info("appointment confirmed", "appointment_id", id, "mode", updated.Mode)
	s.emit(ctx, EventConfirmed, updated)
	return updated, nil
}

// Reschedule moves an appointment to a new slot, re-validated exactly as a
// booking except the appointment being moved does not block itself.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time, newTime string) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "appointments.reschedule")
	defer span.End()

	if !validClock(newTime) {
		return nil, &ValidationError{Field: "time", Msg: "expected HH:MM"}
	}

	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(appt.Status, StatusRescheduled) {
		s.metrics.Observe("reschedule", "illegal_transition")
		return nil, &InvalidTransitionError{From: appt.Status, To: StatusRescheduled}
	}

	startAt, endAt, err := s.slots.SlotInterval(ctx, appt.DoctorID, newDate, newTime)
	if err != nil {
		return nil, fmt.Errorf("appointments: resolve interval: %w", err)
	}

	open, err := s.slots.IsSlotOpen(ctx, appt.DoctorID, newDate, newTime)
	if err != nil {
		return nil, fmt.Errorf("appointments: validate slot: %w", err)
	}
	if !open {
		// The target may be occupied by the appointment being moved.
		occupant, found, err := s.store.OccupantAt(ctx, appt.DoctorID, startAt)
		if err != nil {
			return nil, err
		}
		if !found || occupant != id {
			s.metrics.Observe("reschedule", "slot_unavailable")
			return nil, ErrSlotUnavailable
		}
	}

	updated, err := s.store.UpdateSchedule(ctx, id, startAt, endAt)
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.Observe("reschedule", "slot_taken")
			return nil, ErrSlotTaken
		}
		span.RecordError(err)
		return nil, err
	}
	s.metrics.Observe("reschedule", "ok")
	s.logger.Info("appointment rescheduled", "appointment_id", id, "start_at", updated.StartAt)
	s.emit(ctx, EventRescheduled, updated)
	return updated, nil
}

// Cancel marks an appointment cancelled. The reason is mandatory and the row
// is kept; cancellation is a status, not a deletion.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "appointments.cancel")
	defer span.End()

	if strings.TrimSpace(reason) == "" {
		s.metrics.Observe("cancel", "invalid")
		return nil, ErrReasonRequired
	}

	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(appt.Status, StatusCancelled) {
		s.metrics.Observe("cancel", "illegal_transition")
		return nil, &InvalidTransitionError{From: appt.Status, To: StatusCancelled}
	}

	updated, err := s.store.UpdateStatus(ctx, id, appt.Status, StatusCancelled, "", reason)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.metrics.Observe("cancel", "ok")
	s.logger.Info("appointment cancelled", "appointment_id", id, "reason", reason)
	s.emit(ctx, EventCancelled, updated)
	return updated, nil
}

// RecordPayment flips a pending_payment booking to scheduled and sends the
// patient a receipt. Amount is a display string; payment processing itself
// happens outside this system.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, amount string) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "appointments.record_payment")
	defer span.End()

	if strings.TrimSpace(amount) == "" {
		s.metrics.Observe("payment", "invalid")
		return nil, &ValidationError{Field: "amount", Msg: "required"}
	}

	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusPendingPayment {
		s.metrics.Observe("payment", "illegal_transition")
		return nil, &InvalidTransitionError{From: appt.Status, To: StatusScheduled}
	}

	updated, err := s.store.UpdateStatus(ctx, id, StatusPendingPayment, StatusScheduled, "", "")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.metrics.Observe("payment", "ok")
	s.logger.Info("payment recorded", "appointment_id", id, "amount", amount)
	if s.notifier != nil {
		s.notifier.PaymentRecorded(ctx, updated, amount)
	}
	return updated, nil
}

// Start marks a confirmed appointment in progress.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusInProgress, "start")
}

// Complete marks an appointment finished.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCompleted, "complete")
}

// MarkNoShow marks a missed appointment. Legal from any non-terminal status.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusNoShow, "no_show")
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status, op string) (*Appointment, error) {
	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(appt.Status, to) {
		s.metrics.Observe(op, "illegal_transition")
		return nil, &InvalidTransitionError{From: appt.Status, To: to}
	}
	updated, err := s.store.UpdateStatus(ctx, id, appt.Status, to, "", "")
	if err != nil {
		return nil, err
	}
	s.metrics.Observe(op, "ok")
	s.logger.Info("appointment status changed", "appointment_id", id, "status", to)
	return updated, nil
}

func (s *Service) emit(ctx context.Context, event string, appt *Appointment) {
	if s.notifier == nil {
		return
	}
	s.notifier.AppointmentEvent(ctx, event, appt)
}

func validateBookRequest(req *BookRequest) error {
	if req.DoctorID == uuid.Nil {
		return &ValidationError{Field: "doctor_id", Msg: "required"}
	}
	if req.PatientID == uuid.Nil {
		return &ValidationError{Field: "patient_id", Msg: "required"}
	}
	if !validClock(req.Time) {
		return &ValidationError{Field: "time", Msg: "expected HH:MM"}
	}
	if req.Mode == "" {
		req.Mode = ModeInPerson
	}
	if _, err := ParseMode(string(req.Mode)); err != nil {
		return &ValidationError{Field: "mode", Msg: "expected in-person, video or phone"}
	}
	return nil
}

func validClock(hhmm string) bool {
	_, err := time.Parse("15:04", hhmm)
	return err == nil
}
