package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carebook/clinic-platform/internal/availability"
	"github.com/carebook/clinic-platform/pkg/logging"
)

// SlotLister computes bookable slots for the slots endpoint.
type SlotLister interface {
	GenerateSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]availability.Slot, error)
}

// Handler handles HTTP requests for appointments and slots.
type Handler struct {
	service *Service
	slots   SlotLister
	logger  *logging.Logger
}

// NewHandler creates an appointments handler.
func NewHandler(service *Service, slots SlotLister, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, slots: slots, logger: logger}
}

// ListSlots handles GET /doctors/{doctorID}/slots?date=YYYY-MM-DD
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		http.Error(w, "invalid doctor id", http.StatusBadRequest)
		return
	}
	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "invalid or missing date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	slots, err := h.slots.GenerateSlots(r.Context(), doctorID, date)
	if err != nil {
		h.logger.Error("failed to generate slots", "error", err, "doctor_id", doctorID)
		http.Error(w, "failed to generate slots", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doctor_id": doctorID,
		"date":      date.Format("2006-01-02"),
		"slots":     slots,
	})
}

type bookPayload struct {
	DoctorID  uuid.UUID `json:"doctor_id"`
	PatientID uuid.UUID `json:"patient_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Mode      string    `json:"mode"`
	Symptoms  string    `json:"symptoms"`
	Reason    string    `json:"reason"`
	Notes     string    `json:"notes"`

	RequiresPayment bool `json:"requires_payment"`
}

// Book handles POST /appointments
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	h.book(w, r, false)
}

// BookAsStaff handles POST /staff/appointments; the booking starts confirmed.
func (h *Handler) BookAsStaff(w http.ResponseWriter, r *http.Request) {
	h.book(w, r, true)
}

func (h *Handler) book(w http.ResponseWriter, r *http.Request, byStaff bool) {
	var payload bookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	date, err := time.Parse("2006-01-02", payload.Date)
	if err != nil {
		http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	appt, err := h.service.Book(r.Context(), BookRequest{
		DoctorID:  payload.DoctorID,
		PatientID: payload.PatientID,
		Date:      date,
		Time:      payload.Time,
		Mode:      Mode(payload.Mode),
		Symptoms:  payload.Symptoms,
		Reason:    payload.Reason,
		Notes:     payload.Notes,
		ByStaff:   byStaff,

		RequiresPayment: payload.RequiresPayment,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// Get handles GET /appointments/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apptID(w, r)
	if !ok {
		return
	}
	appt, err := h.service.store.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Confirm handles POST /appointments/{id}/confirm
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apptID(w, r)
	if !ok {
		return
	}
	appt, err := h.service.Confirm(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Reschedule handles POST /appointments/{id}/reschedule
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apptID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Date string `json:"date"`
		Time string `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	date, err := time.Parse("2006-01-02", payload.Date)
	if err != nil {
		http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	appt, err := h.service.Reschedule(r.Context(), id, date, payload.Time)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Cancel handles POST /appointments/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apptID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	appt, err := h.service.Cancel(r.Context(), id, payload.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// RecordPayment handles POST /staff/appointments/{id}/payment
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.apptID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	appt, err := h.service.RecordPayment(r.Context(), id, payload.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Start handles POST /staff/appointments/{id}/start
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.Start)
}

// Complete handles POST /staff/appointments/{id}/complete
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.Complete)
}

// MarkNoShow handles POST /staff/appointments/{id}/no-show
func (h *Handler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.service.MarkNoShow)
}

func (h *Handler) simpleTransition(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID) (*Appointment, error)) {
	id, ok := h.apptID(w, r)
	if !ok {
		return
	}
	appt, err := fn(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) apptID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var validation *ValidationError
	var transition *InvalidTransitionError
	switch {
	case errors.As(err, &validation), errors.Is(err, ErrReasonRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrSlotUnavailable), errors.Is(err, ErrSlotTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &transition):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error("appointment request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
