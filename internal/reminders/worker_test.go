package reminders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/clinic-platform/internal/appointments"
	"github.com/carebook/clinic-platform/internal/notify"
	"github.com/carebook/clinic-platform/internal/patients"
)

type fakeAppointments struct {
	upcoming []appointments.Appointment
}

func (f *fakeAppointments) ListStartingBetween(ctx context.Context, from, to time.Time) ([]appointments.Appointment, error) {
	var out []appointments.Appointment
	for _, appt := range f.upcoming {
		if !appt.StartAt.Before(from) && appt.StartAt.Before(to) {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (f *fakeAppointments) ListForDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]appointments.Appointment, error) {
	var out []appointments.Appointment
	for _, appt := range f.upcoming {
		if appt.DoctorID == doctorID && !appt.StartAt.Before(from) && appt.StartAt.Before(to) {
			out = append(out, appt)
		}
	}
	return out, nil
}

type fakeDirectory struct {
	doctors  []patients.Doctor
	patients map[uuid.UUID]*patients.Patient
}

func (f *fakeDirectory) ListDoctors(ctx context.Context) ([]patients.Doctor, error) {
	return f.doctors, nil
}

func (f *fakeDirectory) GetDoctor(ctx context.Context, id uuid.UUID) (*patients.Doctor, error) {
	for i := range f.doctors {
		if f.doctors[i].ID == id {
			return &f.doctors[i], nil
		}
	}
	return nil, patients.ErrDoctorNotFound
}

func (f *fakeDirectory) GetPatient(ctx context.Context, id uuid.UUID) (*patients.Patient, error) {
	if p, ok := f.patients[id]; ok {
		return p, nil
	}
	return nil, patients.ErrPatientNotFound
}

type sinkCall struct {
	event notify.Event
	appt  *appointments.Appointment
	ctx   notify.AppointmentContext
}

type recordingSink struct {
	mu    sync.Mutex
	calls []sinkCall
}

func (r *recordingSink) Notify(ctx context.Context, event notify.Event, appt *appointments.Appointment) notify.DispatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, sinkCall{event: event, appt: appt})
	return notify.DispatchResult{Email: notify.ChannelResult{Sent: true}}
}

func (r *recordingSink) Dispatch(ctx context.Context, event notify.Event, c notify.AppointmentContext) notify.DispatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, sinkCall{event: event, ctx: c})
	return notify.DispatchResult{Email: notify.ChannelResult{Sent: true}}
}

func newWorkerFixture(appts *fakeAppointments, dir *fakeDirectory, now time.Time) (*Worker, *recordingSink) {
	sink := &recordingSink{}
	w := NewWorker(appts, dir, sink, notify.ClinicInfo{Name: "Sunrise Family Clinic"}, time.UTC, Config{}, nil)
	w.now = func() time.Time { return now }
	return w, sink
}

func appointmentAt(doctorID uuid.UUID, start time.Time, status appointments.Status) appointments.Appointment {
	return appointments.Appointment{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		PatientID: uuid.New(),
		StartAt:   start,
		EndAt:     start.Add(30 * time.Minute),
		Status:    status,
		Mode:      appointments.ModeInPerson,
	}
}

func TestProcessDueSendsBothWindows(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	doctorID := uuid.New()
	appts := &fakeAppointments{upcoming: []appointments.Appointment{
		appointmentAt(doctorID, now.Add(24*time.Hour-10*time.Minute), appointments.StatusConfirmed),
		appointmentAt(doctorID, now.Add(3*time.Hour-10*time.Minute), appointments.StatusScheduled),
		// Too far out for either window.
		appointmentAt(doctorID, now.Add(48*time.Hour), appointments.StatusConfirmed),
	}}
	w, sink := newWorkerFixture(appts, &fakeDirectory{}, now)

	processed, err := w.ProcessDue(context.Background())
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if processed != 2 {
		t.Fatalf("processed = %d, want 2", processed)
	}

	events := map[notify.Event]int{}
	for _, call := range sink.calls {
		events[call.event]++
	}
	if events[notify.EventReminder24h] != 1 || events[notify.EventReminder3h] != 1 {
		t.Fatalf("events = %v", events)
	}
}

func TestProcessDueSkipsUnpaidBookings(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	appts := &fakeAppointments{upcoming: []appointments.Appointment{
		appointmentAt(uuid.New(), now.Add(24*time.Hour-10*time.Minute), appointments.StatusPendingPayment),
	}}
	w, sink := newWorkerFixture(appts, &fakeDirectory{}, now)

	processed, err := w.ProcessDue(context.Background())
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if processed != 0 || len(sink.calls) != 0 {
		t.Fatalf("processed = %d, calls = %d; want none", processed, len(sink.calls))
	}
}

func TestSendDailySummariesPerDoctor(t *testing.T) {
	now := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	busy := uuid.New()
	idle := uuid.New()
	patientID := uuid.New()

	tomorrow := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)
	appt := appointmentAt(busy, tomorrow, appointments.StatusConfirmed)
	appt.PatientID = patientID

	appts := &fakeAppointments{upcoming: []appointments.Appointment{appt}}
	dir := &fakeDirectory{
		doctors: []patients.Doctor{
			{ID: busy, FullName: "Dr. Mensah", Email: "mensah@clinic.example"},
			{ID: idle, FullName: "Dr. Boateng", Email: "boateng@clinic.example"},
		},
		patients: map[uuid.UUID]*patients.Patient{
			patientID: {ID: patientID, FullName: "Ada Osei"},
		},
	}
	w, sink := newWorkerFixture(appts, dir, now)

	sent, err := w.SendDailySummaries(context.Background())
	if err != nil {
		t.Fatalf("SendDailySummaries: %v", err)
	}
	if sent != 1 {
		t.Fatalf("sent = %d, want 1 (idle doctor skipped)", sent)
	}

	call := sink.calls[0]
	if call.event != notify.EventDailySummary {
		t.Fatalf("event = %s", call.event)
	}
	if call.ctx.DoctorEmail != "mensah@clinic.example" {
		t.Fatalf("summary addressed to %s", call.ctx.DoctorEmail)
	}
	if len(call.ctx.SummaryLines) != 1 {
		t.Fatalf("summary lines = %v", call.ctx.SummaryLines)
	}
	if want := "09:00 - Ada Osei (In-person visit)"; call.ctx.SummaryLines[0] != want {
		t.Fatalf("line = %q, want %q", call.ctx.SummaryLines[0], want)
	}
}

func TestSummaryIDStablePerDoctorAndDay(t *testing.T) {
	doctorID := uuid.New()
	day := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)

	if summaryID(doctorID, day) != summaryID(doctorID, day) {
		t.Fatal("summary id must be deterministic")
	}
	if summaryID(doctorID, day) == summaryID(doctorID, day.AddDate(0, 0, 1)) {
		t.Fatal("summary id must vary by day")
	}
	if summaryID(doctorID, day) == summaryID(uuid.New(), day) {
		t.Fatal("summary id must vary by doctor")
	}
}
