package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the repository needs, so tests can
// substitute a pgxmock pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads doctor availability templates.
type Repository struct {
	pool Querier
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool Querier) *Repository {
	if pool == nil {
		panic("availability: pgx pool required")
	}
	return &Repository{pool: pool}
}

// templateColumns is the select list for doctor_availability rows; it must
// stay in step with the 000002 migration.
const templateColumns = `id, doctor_id, weekday, start_time, end_time,
			slot_duration_minutes, buffer_minutes, is_active`

// GetForWeekday returns the active template for a doctor on a weekday, or
// (nil, nil) when none is configured.
func (r *Repository) GetForWeekday(ctx context.Context, doctorID uuid.UUID, weekday int) (*Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM doctor_availability
		WHERE doctor_id = $1 AND weekday = $2
		LIMIT 1
	`
	var tpl Template
	err := r.pool.QueryRow(ctx, query, doctorID, weekday).Scan(
		&tpl.ID,
		&tpl.DoctorID,
		&tpl.Weekday,
		&tpl.StartTime,
		&tpl.EndTime,
		&tpl.SlotDurationMin,
		&tpl.BufferMin,
		&tpl.IsActive,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("availability: select template: %w", err)
	}
	return &tpl, nil
}

// ListForDoctor returns all templates for a doctor ordered by weekday.
func (r *Repository) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM doctor_availability
		WHERE doctor_id = $1
		ORDER BY weekday
	`
	rows, err := r.pool.Query(ctx, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("availability: list templates: %w", err)
	}
	defer rows.Close()
	var out []Template
	for rows.Next() {
		var tpl Template
		if err := rows.Scan(
			&tpl.ID,
			&tpl.DoctorID,
			&tpl.Weekday,
			&tpl.StartTime,
			&tpl.EndTime,
			&tpl.SlotDurationMin,
			&tpl.BufferMin,
			&tpl.IsActive,
		); err != nil {
			return nil, fmt.Errorf("availability: scan template: %w", err)
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}
