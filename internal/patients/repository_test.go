package patients

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestGetPatient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := &Repository{pool: mock}
	id := uuid.New()
	mock.ExpectQuery("SELECT id, full_name").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "full_name", "email", "phone", "created_at"}).
			AddRow(id, "Ada Osei", "ada@example.com", "+2335550001", time.Now()))

	p, err := repo.GetPatient(context.Background(), id)
	if err != nil {
		t.Fatalf("get patient: %v", err)
	}
	if p.FullName != "Ada Osei" || p.Phone != "+2335550001" {
		t.Fatalf("unexpected patient: %+v", p)
	}
}

func TestGetPatientNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := &Repository{pool: mock}
	id := uuid.New()
	mock.ExpectQuery("SELECT id, full_name").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "full_name", "email", "phone", "created_at"}))

	if _, err := repo.GetPatient(context.Background(), id); !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestFindPatientByIdentifier(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := &Repository{pool: mock}
	mock.ExpectQuery("SELECT id, full_name").
		WithArgs("ada@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "full_name", "email", "phone", "created_at"}).
			AddRow(uuid.New(), "Ada Osei", "ada@example.com", "+2335550001", time.Now()))

	p, err := repo.FindPatientByIdentifier(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("find by identifier: %v", err)
	}
	if p.Email != "ada@example.com" {
		t.Fatalf("unexpected patient: %+v", p)
	}
}

func TestGetDoctor(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := &Repository{pool: mock}
	id := uuid.New()
	mock.ExpectQuery("SELECT id, full_name").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "full_name", "email", "phone", "meeting_link"}).
			AddRow(id, "Dr. Mensah", "mensah@clinic.example", "+2335550100", "https://meet.example/dr-mensah"))

	d, err := repo.GetDoctor(context.Background(), id)
	if err != nil {
		t.Fatalf("get doctor: %v", err)
	}
	if d.MeetingLink == "" {
		t.Fatalf("expected meeting link, got %+v", d)
	}
}
