package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	// RecordSent and RecordFailed are the two terminal states of an attempt.
	RecordSent   = "sent"
	RecordFailed = "failed"
)

// Record is one delivery attempt in the append-only audit log. Records are
// never updated: retries append new rows.
type Record struct {
	ID             uuid.UUID
	AppointmentID  uuid.UUID
	Event          Event
	Channel        Channel
	Recipient      string
	TemplateID     string // email subject or whatsapp template name
	Payload        string // snapshot of the rendered content or variables
	Status         string // sent | failed
	MessageID      string
	ErrorText      string
	IdempotencyKey string
	CreatedAt      time.Time
}

// RecordStore persists the audit log and answers idempotency lookups.
type RecordStore interface {
	Append(ctx context.Context, rec *Record) error
	// Delivered reports whether a sent record already exists for the key.
	// Failed attempts do not count: the same event may be retried.
	Delivered(ctx context.Context, idempotencyKey string) (bool, error)
}

// Querier is the pgx pool surface the store uses; pgxmock satisfies it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgRecordStore stores notification records in Postgres.
type PgRecordStore struct {
	pool Querier
}

// NewPgRecordStore creates a Postgres-backed record store.
func NewPgRecordStore(pool Querier) *PgRecordStore {
	if pool == nil {
		panic("notify: pgx pool required")
	}
	return &PgRecordStore{pool: pool}
}

// Append inserts one attempt row.
func (s *PgRecordStore) Append(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	query := `
		INSERT INTO notification_records (
			id, appointment_id, event, channel, recipient, template_id,
			payload, status, message_id, error_text, idempotency_key
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),NULLIF($10,''),$11)
		RETURNING created_at
	`
	err := s.pool.QueryRow(ctx, query,
		rec.ID,
		rec.AppointmentID,
		string(rec.Event),
		string(rec.Channel),
		rec.Recipient,
		rec.TemplateID,
		rec.Payload,
		rec.Status,
		rec.MessageID,
		rec.ErrorText,
		rec.IdempotencyKey,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("notify: append record: %w", err)
	}
	return nil
}

// Delivered reports whether a sent record exists for the idempotency key.
func (s *PgRecordStore) Delivered(ctx context.Context, idempotencyKey string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notification_records
			WHERE idempotency_key = $1 AND status = $2
		)
	`
	var delivered bool
	if err := s.pool.QueryRow(ctx, query, idempotencyKey, RecordSent).Scan(&delivered); err != nil {
		return false, fmt.Errorf("notify: delivered lookup: %w", err)
	}
	return delivered, nil
}

// ListForAppointment returns the audit trail for one appointment, oldest first.
func (s *PgRecordStore) ListForAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Record, error) {
	query := `
		SELECT id, appointment_id, event, channel, recipient, template_id,
			payload, status, COALESCE(message_id, ''), COALESCE(error_text, ''),
			idempotency_key, created_at
		FROM notification_records
		WHERE appointment_id = $1
		ORDER BY created_at
	`
	rows, err := s.pool.Query(ctx, query, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("notify: list records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var event, channel string
		if err := rows.Scan(
			&rec.ID, &rec.AppointmentID, &event, &channel, &rec.Recipient,
			&rec.TemplateID, &rec.Payload, &rec.Status, &rec.MessageID,
			&rec.ErrorText, &rec.IdempotencyKey, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("notify: scan record: %w", err)
		}
		rec.Event = Event(event)
		rec.Channel = Channel(channel)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MemoryRecordStore is an in-process record store for tests.
type MemoryRecordStore struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryRecordStore creates an empty in-memory store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{}
}

// Append stores one attempt row.
func (s *MemoryRecordStore) Append(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now()
	s.records = append(s.records, *rec)
	return nil
}

// Delivered reports whether a sent record exists for the idempotency key.
func (s *MemoryRecordStore) Delivered(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.IdempotencyKey == idempotencyKey && rec.Status == RecordSent {
			return true, nil
		}
	}
	return false, nil
}

// Records returns a copy of everything appended so far.
func (s *MemoryRecordStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

var _ RecordStore = (*PgRecordStore)(nil)
var _ RecordStore = (*MemoryRecordStore)(nil)
