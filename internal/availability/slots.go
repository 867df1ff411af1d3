package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/clinic-platform/pkg/logging"
)

// TemplateSource looks up the availability template for a doctor and weekday.
type TemplateSource interface {
	GetForWeekday(ctx context.Context, doctorID uuid.UUID, weekday int) (*Template, error)
}

// OccupancySource reports which start times are already taken for a doctor on
// a given day. Keys are "15:04" clock times. Only occupying statuses count;
// cancelled and no-show appointments free their slot.
type OccupancySource interface {
	TakenStartTimes(ctx context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time) (map[string]struct{}, error)
}

// Generator computes bookable slots from templates and current bookings.
type Generator struct {
	templates TemplateSource
	occupancy OccupancySource
	loc       *time.Location
	logger    *logging.Logger
}

// NewGenerator creates a slot generator. loc is the clinic timezone; nil
// defaults to UTC.
func NewGenerator(templates TemplateSource, occupancy OccupancySource, loc *time.Location, logger *logging.Logger) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Generator{templates: templates, occupancy: occupancy, loc: loc, logger: logger}
}

// GenerateSlots returns the candidate slots for a doctor on the given date.
// Slots step by slot_duration+buffer from the template's start time and none
// starts at or after the template's end time. A day without an active
// template yields no slots.
func (g *Generator) GenerateSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	date = date.In(g.loc)
	tpl, err := g.templates.GetForWeekday(ctx, doctorID, int(date.Weekday()))
	if err != nil {
		return nil, fmt.Errorf("availability: generate slots: %w", err)
	}
	if tpl == nil || !tpl.IsActive {
		return []Slot{}, nil
	}
	if tpl.SlotDurationMin <= 0 {
		return []Slot{}, nil
	}

	start, err := clockOn(date, tpl.StartTime, g.loc)
	if err != nil {
		return nil, fmt.Errorf("availability: template start time: %w", err)
	}
	end, err := clockOn(date, tpl.EndTime, g.loc)
	if err != nil {
		return nil, fmt.Errorf("availability: template end time: %w", err)
	}
	if !start.Before(end) {
		return []Slot{}, nil
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, g.loc)
	dayEnd := dayStart.Add(24 * time.Hour)
	taken, err := g.occupancy.TakenStartTimes(ctx, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("availability: load occupancy: %w", err)
	}

	step := tpl.Step()
	var slots []Slot
	for cur := start; cur.Before(end); cur = cur.Add(step) {
		hhmm := cur.Format("15:04")
		_, booked := taken[hhmm]
		slots = append(slots, Slot{Time: hhmm, Available: !booked})
	}
	return slots, nil
}

// IsSlotOpen reports whether the given "15:04" time is a currently-available
// slot for the doctor on the date.
func (g *Generator) IsSlotOpen(ctx context.Context, doctorID uuid.UUID, date time.Time, hhmm string) (bool, error) {
	slots, err := g.GenerateSlots(ctx, doctorID, date)
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if s.Time == hhmm {
			return s.Available, nil
		}
	}
	return false, nil
}

// SlotStart resolves a "15:04" slot time on a date to an absolute instant in
// the clinic timezone.
func (g *Generator) SlotStart(date time.Time, hhmm string) (time.Time, error) {
	return clockOn(date.In(g.loc), hhmm, g.loc)
}

// SlotInterval resolves a slot to its half-open [start, end) interval. The
// end excludes the buffer; it is the consultation length only.
func (g *Generator) SlotInterval(ctx context.Context, doctorID uuid.UUID, date time.Time, hhmm string) (time.Time, time.Time, error) {
	tpl, err := g.templates.GetForWeekday(ctx, doctorID, int(date.In(g.loc).Weekday()))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("availability: slot interval: %w", err)
	}
	if tpl == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("availability: no template for doctor %s on %s", doctorID, date.Weekday())
	}
	start, err := clockOn(date.In(g.loc), hhmm, g.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("availability: slot interval: %w", err)
	}
	return start, start.Add(time.Duration(tpl.SlotDurationMin) * time.Minute), nil
}

// Location exposes the clinic timezone the generator operates in.
func (g *Generator) Location() *time.Location {
	return g.loc
}

func clockOn(day time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("15:04", hhmm, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", hhmm, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}
