package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carebook/clinic-platform/pkg/logging"
)

// RecordLister reads the audit trail for display.
type RecordLister interface {
	ListForAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Record, error)
}

// Handler serves the notification audit trail to staff.
type Handler struct {
	records RecordLister
	logger  *logging.Logger
}

// NewHandler creates the audit-trail handler.
func NewHandler(records RecordLister, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{records: records, logger: logger}
}

type recordView struct {
	ID         uuid.UUID `json:"id"`
	Event      Event     `json:"event"`
	Channel    Channel   `json:"channel"`
	Recipient  string    `json:"recipient"`
	TemplateID string    `json:"template_id"`
	Status     string    `json:"status"`
	MessageID  string    `json:"message_id,omitempty"`
	ErrorText  string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListForAppointment handles GET /staff/appointments/{id}/notifications
func (h *Handler) ListForAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return
	}

	records, err := h.records.ListForAppointment(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list notification records", "error", err, "appointment_id", id)
		http.Error(w, "failed to list notifications", http.StatusInternalServerError)
		return
	}

	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, recordView{
			ID:         rec.ID,
			Event:      rec.Event,
			Channel:    rec.Channel,
			Recipient:  rec.Recipient,
			TemplateID: rec.TemplateID,
			Status:     rec.Status,
			MessageID:  rec.MessageID,
			ErrorText:  rec.ErrorText,
			CreatedAt:  rec.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"appointment_id": id,
		"records":        views,
	})
}
