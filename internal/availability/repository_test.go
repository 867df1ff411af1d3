package availability

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/carebook/clinic-platform/migrations"
)

func TestGetForWeekday(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := &Repository{pool: mock}
	doctorID := uuid.New()
	mock.ExpectQuery("SELECT id, doctor_id, weekday").
		WithArgs(doctorID, 1).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "doctor_id", "weekday", "start_time", "end_time",
			"slot_duration_minutes", "buffer_minutes", "is_active",
		}).AddRow(uuid.New(), doctorID, 1, "09:00", "17:00", 30, 10, true))

	tpl, err := repo.GetForWeekday(context.Background(), doctorID, 1)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if tpl == nil || tpl.StartTime != "09:00" || tpl.SlotDurationMin != 30 {
		t.Fatalf("unexpected template: %+v", tpl)
	}
}

func TestGetForWeekdayMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := &Repository{pool: mock}
	doctorID := uuid.New()
	mock.ExpectQuery("SELECT id, doctor_id, weekday").
		WithArgs(doctorID, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "doctor_id", "weekday", "start_time", "end_time",
			"slot_duration_minutes", "buffer_minutes", "is_active",
		}))

	tpl, err := repo.GetForWeekday(context.Background(), doctorID, 0)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if tpl != nil {
		t.Fatalf("expected nil template for missing weekday, got %+v", tpl)
	}
}

func TestListForDoctor(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := &Repository{pool: mock}
	doctorID := uuid.New()
	mock.ExpectQuery("SELECT id, doctor_id, weekday").
		WithArgs(doctorID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "doctor_id", "weekday", "start_time", "end_time",
			"slot_duration_minutes", "buffer_minutes", "is_active",
		}).
			AddRow(uuid.New(), doctorID, 1, "09:00", "13:00", 30, 0, true).
			AddRow(uuid.New(), doctorID, 3, "14:00", "18:00", 20, 5, true))

	tpls, err := repo.ListForDoctor(context.Background(), doctorID)
	if err != nil {
		t.Fatalf("list templates: %v", err)
	}
	if len(tpls) != 2 || tpls[1].Weekday != 3 {
		t.Fatalf("unexpected templates: %+v", tpls)
	}
}

// The mock-based tests above assert the repository's own query string, so a
// rename on either side would slip through. This pins the select list to the
// columns the migration actually creates.
func TestTemplateColumnsMatchMigration(t *testing.T) {
	ddl, err := migrations.FS.ReadFile("000002_doctor_availability.up.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, col := range strings.Split(templateColumns, ",") {
		col = strings.TrimSpace(col)
		if !strings.Contains(string(ddl), col+" ") {
			t.Errorf("repository selects column %q but the migration does not define it", col)
		}
	}
}
