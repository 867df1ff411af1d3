package otp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carebook/clinic-platform/pkg/logging"
)

// Handler handles HTTP requests for issuing and verifying codes.
type Handler struct {
	registry *Registry
	logger   *logging.Logger
}

// NewHandler creates an OTP handler.
func NewHandler(registry *Registry, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{registry: registry, logger: logger}
}

type issuePayload struct {
	Identifier string `json:"identifier"`
}

// Issue handles POST /otp/issue
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	var payload issuePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if payload.Identifier == "" {
		http.Error(w, "identifier required", http.StatusBadRequest)
		return
	}

	if err := h.registry.Issue(r.Context(), payload.Identifier); err != nil {
		h.logger.Error("otp issue failed", "error", err)
		http.Error(w, "failed to issue code", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"issued": true})
}

type verifyPayload struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
}

// Verify handles POST /otp/verify
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var payload verifyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if payload.Identifier == "" || payload.Code == "" {
		http.Error(w, "identifier and code required", http.StatusBadRequest)
		return
	}

	patient, err := h.registry.Verify(r.Context(), payload.Identifier, payload.Code)
	if err != nil {
		h.writeVerifyError(w, err)
		return
	}

	resp := map[string]any{"verified": true}
	if patient != nil {
		resp["patient_id"] = patient.ID
		resp["patient_name"] = patient.FullName
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeVerifyError(w http.ResponseWriter, err error) {
	var invalid *InvalidCodeError
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "no pending code for identifier", http.StatusNotFound)
	case errors.Is(err, ErrExpired):
		http.Error(w, "code expired, request a new one", http.StatusGone)
	case errors.Is(err, ErrTooManyAttempts):
		http.Error(w, "too many attempts, request a new code", http.StatusTooManyRequests)
	case errors.As(err, &invalid):
		http.Error(w, invalid.Error(), http.StatusUnauthorized)
	default:
		h.logger.Error("otp verify failed", "error", err)
		http.Error(w, "verification failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
