package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// Querier is the pgx pool surface the repository uses; pgxmock satisfies it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists appointments in Postgres.
type Repository struct {
	pool Querier
	loc  *time.Location
}

// NewRepository creates a repository backed by a pgx pool. loc is the clinic
// timezone used to derive slot clock times from stored instants.
func NewRepository(pool Querier, loc *time.Location) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Repository{pool: pool, loc: loc}
}

const apptColumns = `id, doctor_id, patient_id, start_at, end_at, status, mode,
		COALESCE(meeting_link, ''), COALESCE(symptoms, ''), COALESCE(reason, ''), COALESCE(notes, ''),
		created_at, updated_at`

// Insert creates a new appointment row. A unique-index conflict on
// (doctor_id, start_at) for occupying statuses is mapped to ErrSlotTaken so
// concurrent bookings of the same slot produce exactly one row.
func (r *Repository) Insert(ctx context.Context, appt *Appointment) error {
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	query := `
		INSERT INTO appointments (
			id, doctor_id, patient_id, start_at, end_at, status, mode,
			meeting_link, symptoms, reason, notes
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),NULLIF($9,''),NULLIF($10,''),NULLIF($11,''))
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		appt.ID,
		appt.DoctorID,
		appt.PatientID,
		appt.StartAt,
		appt.EndAt,
		string(appt.Status),
		string(appt.Mode),
		appt.MeetingLink,
		appt.Symptoms,
		appt.Reason,
		appt.Notes,
	).Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

// GetByID fetches one appointment.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	query := `SELECT ` + apptColumns + ` FROM appointments WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	appt, err := scanAppointment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select: %w", err)
	}
	return appt, nil
}

// UpdateStatus flips an appointment's status, guarded by the expected current
// status so concurrent mutations cannot skip lifecycle steps. Optional fields
// keep their value when the argument is empty.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, meetingLink, reason string) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $3,
			meeting_link = COALESCE(NULLIF($4, ''), meeting_link),
			reason = COALESCE(NULLIF($5, ''), reason),
			updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING ` + apptColumns
	row := r.pool.QueryRow(ctx, query, id, string(from), string(to), meetingLink, reason)
	appt, err := scanAppointment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: update status: %w", err)
	}
	return appt, nil
}

// UpdateSchedule moves an appointment to a new interval and marks it
// rescheduled. The occupying unique index also guards this write.
func (r *Repository) UpdateSchedule(ctx context.Context, id uuid.UUID, startAt, endAt time.Time) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET start_at = $2, end_at = $3, status = $4, updated_at = now()
		WHERE id = $1
		RETURNING ` + apptColumns
	row := r.pool.QueryRow(ctx, query, id, startAt, endAt, string(StatusRescheduled))
	appt, err := scanAppointment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("appointments: update schedule: %w", err)
	}
	return appt, nil
}

// TakenStartTimes returns the "15:04" start times of occupying appointments
// for a doctor within [dayStart, dayEnd). Implements the slot generator's
// occupancy source.
func (r *Repository) TakenStartTimes(ctx context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time) (map[string]struct{}, error) {
	query := `
		SELECT start_at
		FROM appointments
		WHERE doctor_id = $1
			AND start_at >= $2 AND start_at < $3
			AND status = ANY($4)
	`
	rows, err := r.pool.Query(ctx, query, doctorID, dayStart, dayEnd, occupyingStatusStrings())
	if err != nil {
		return nil, fmt.Errorf("appointments: taken start times: %w", err)
	}
	defer rows.Close()
	taken := make(map[string]struct{})
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("appointments: scan start time: %w", err)
		}
		taken[at.In(r.loc).Format("15:04")] = struct{}{}
	}
	return taken, rows.Err()
}

// OccupantAt returns the id of the occupying appointment at an exact start
// instant, if any. Used by reschedule to let an appointment keep its own slot.
func (r *Repository) OccupantAt(ctx context.Context, doctorID uuid.UUID, startAt time.Time) (uuid.UUID, bool, error) {
	query := `
		SELECT id
		FROM appointments
		WHERE doctor_id = $1 AND start_at = $2 AND status = ANY($3)
		LIMIT 1
	`
	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, query, doctorID, startAt, occupyingStatusStrings()).Scan(&id); err != nil {
		if err == pgx.ErrNoRows {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("appointments: occupant lookup: %w", err)
	}
	return id, true, nil
}

// ListForDoctorBetween returns a doctor's occupying appointments within
// [from, to) ordered by start, for schedules and daily summaries.
func (r *Repository) ListForDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	query := `SELECT ` + apptColumns + `
		FROM appointments
		WHERE doctor_id = $1 AND start_at >= $2 AND start_at < $3 AND status = ANY($4)
		ORDER BY start_at`
	rows, err := r.pool.Query(ctx, query, doctorID, from, to, occupyingStatusStrings())
	if err != nil {
		return nil, fmt.Errorf("appointments: list for doctor: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ListStartingBetween returns every occupying appointment across doctors that
// starts within [from, to), for the reminder worker.
func (r *Repository) ListStartingBetween(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	query := `SELECT ` + apptColumns + `
		FROM appointments
		WHERE start_at >= $1 AND start_at < $2 AND status = ANY($3)
		ORDER BY start_at`
	rows, err := r.pool.Query(ctx, query, from, to, occupyingStatusStrings())
	if err != nil {
		return nil, fmt.Errorf("appointments: list starting between: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan row: %w", err)
		}
		out = append(out, *appt)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var appt Appointment
	var status, mode string
	if err := row.Scan(
		&appt.ID,
		&appt.DoctorID,
		&appt.PatientID,
		&appt.StartAt,
		&appt.EndAt,
		&status,
		&mode,
		&appt.MeetingLink,
		&appt.Symptoms,
		&appt.Reason,
		&appt.Notes,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	appt.Status = Status(status)
	appt.Mode = Mode(mode)
	return &appt, nil
}

func occupyingStatusStrings() []string {
	out := make([]string, len(OccupyingStatuses))
	for i, s := range OccupyingStatuses {
		out[i] = string(s)
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
