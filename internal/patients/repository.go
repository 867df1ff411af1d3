package patients

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the pgx pool surface the repository uses; pgxmock satisfies it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads patient and doctor profiles.
type Repository struct {
	pool Querier
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool Querier) *Repository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &Repository{pool: pool}
}

// GetPatient fetches a patient by id.
func (r *Repository) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	query := `
		SELECT id, full_name, COALESCE(email, ''), COALESCE(phone, ''), created_at
		FROM patients
		WHERE id = $1
	`
	var p Patient
	if err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("patients: select patient: %w", err)
	}
	return &p, nil
}

// FindPatientByIdentifier resolves a patient by email or phone. Used after a
// successful OTP verification to attach the identifier to a profile.
func (r *Repository) FindPatientByIdentifier(ctx context.Context, identifier string) (*Patient, error) {
	query := `
		SELECT id, full_name, COALESCE(email, ''), COALESCE(phone, ''), created_at
		FROM patients
		WHERE email = $1 OR phone = $1
		LIMIT 1
	`
	var p Patient
	if err := r.pool.QueryRow(ctx, query, identifier).Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("patients: select patient by identifier: %w", err)
	}
	return &p, nil
}

// GetDoctor fetches a doctor's contact and meeting details.
func (r *Repository) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	query := `
		SELECT id, full_name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(meeting_link, '')
		FROM doctors
		WHERE id = $1
	`
	var d Doctor
	if err := r.pool.QueryRow(ctx, query, id).Scan(&d.ID, &d.FullName, &d.Email, &d.Phone, &d.MeetingLink); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("patients: select doctor: %w", err)
	}
	return &d, nil
}

// ListDoctors returns every doctor, used by the daily summary job.
func (r *Repository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	query := `
		SELECT id, full_name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(meeting_link, '')
		FROM doctors
		ORDER BY full_name
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("patients: list doctors: %w", err)
	}
	defer rows.Close()
	var out []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.FullName, &d.Email, &d.Phone, &d.MeetingLink); err != nil {
			return nil, fmt.Errorf("patients: scan doctor: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
