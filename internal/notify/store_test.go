package notify

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
)

func TestPgRecordStoreAppend(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	store := NewPgRecordStore(mock)

	appointmentID := uuid.New()
	rec := &Record{
		AppointmentID:  appointmentID,
		Event:          EventConfirmed,
		Channel:        ChannelEmail,
		Recipient:      "ada@example.com",
		TemplateID:     "Appointment confirmed - Monday, March 10 at 09:00",
		Payload:        "Hi Ada...",
		Status:         RecordSent,
		MessageID:      "sg-123",
		IdempotencyKey: IdempotencyKey(EventConfirmed, appointmentID, ChannelEmail),
	}

	mock.ExpectQuery(`INSERT INTO notification_records`).
		WithArgs(pgxmock.AnyArg(), rec.AppointmentID, "confirmed", "email", rec.Recipient,
			rec.TemplateID, rec.Payload, "sent", "sg-123", "", rec.IdempotencyKey).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	if err := store.Append(context.Background(), rec); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if rec.ID == uuid.Nil {
		t.Fatal("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPgRecordStoreDelivered(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	store := NewPgRecordStore(mock)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("confirmed:abc:email", RecordSent).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	delivered, err := store.Delivered(context.Background(), "confirmed:abc:email")
	if err != nil {
		t.Fatalf("Delivered: %v", err)
	}
	if !delivered {
		t.Fatal("expected delivered = true")
	}
}

func TestMemoryRecordStoreDelivered(t *testing.T) {
	store := NewMemoryRecordStore()
	ctx := context.Background()

	key := IdempotencyKey(EventReminder24h, uuid.New(), ChannelWhatsApp)

	// A failed attempt does not mark the key delivered.
	if err := store.Append(ctx, &Record{Status: RecordFailed, IdempotencyKey: key}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	delivered, err := store.Delivered(ctx, key)
	if err != nil || delivered {
		t.Fatalf("delivered = %v, err = %v; want false, nil", delivered, err)
	}

	if err := store.Append(ctx, &Record{Status: RecordSent, IdempotencyKey: key}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	delivered, err = store.Delivered(ctx, key)
	if err != nil || !delivered {
		t.Fatalf("delivered = %v, err = %v; want true, nil", delivered, err)
	}
}
