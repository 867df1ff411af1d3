package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/carebook/clinic-platform/internal/appointments"
	httpmiddleware "github.com/carebook/clinic-platform/internal/http/middleware"
	"github.com/carebook/clinic-platform/internal/notify"
	"github.com/carebook/clinic-platform/internal/otp"
	"github.com/carebook/clinic-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger               *logging.Logger
	AppointmentsHandler  *appointments.Handler
	NotificationsHandler *notify.Handler
	OTPHandler           *otp.Handler
	StaffAuthSecret      string
	MetricsHandler       http.Handler
	CORSAllowedOrigins   []string

	// OTP issue rate limit, requests/sec per IP. 0 disables limiting.
	OTPIssueRate  float64
	OTPIssueBurst int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints.
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		if cfg.OTPHandler != nil {
			public.Route("/otp", func(r chi.Router) {
				if cfg.OTPIssueRate > 0 {
					r.With(httpmiddleware.RateLimit(cfg.OTPIssueRate, cfg.OTPIssueBurst)).Post("/issue", cfg.OTPHandler.Issue)
				} else {
					r.Post("/issue", cfg.OTPHandler.Issue)
				}
				r.Post("/verify", cfg.OTPHandler.Verify)
			})
		}

		if cfg.AppointmentsHandler != nil {
			public.Get("/doctors/{doctorID}/slots", cfg.AppointmentsHandler.ListSlots)
			public.Route("/appointments", func(r chi.Router) {
				r.Post("/", cfg.AppointmentsHandler.Book)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.AppointmentsHandler.Get)
					r.Post("/reschedule", cfg.AppointmentsHandler.Reschedule)
					r.Post("/cancel", cfg.AppointmentsHandler.Cancel)
				})
			})
		}
	})

	// Staff endpoints: immediate-confirm booking and lifecycle transitions.
	if cfg.AppointmentsHandler != nil && cfg.StaffAuthSecret != "" {
		r.Route("/staff", func(staff chi.Router) {
			staff.Use(httpmiddleware.StaffJWT(cfg.StaffAuthSecret))
			staff.Post("/appointments", cfg.AppointmentsHandler.BookAsStaff)
			staff.Route("/appointments/{id}", func(r chi.Router) {
				r.Post("/confirm", cfg.AppointmentsHandler.Confirm)
				r.Post("/payment", cfg.AppointmentsHandler.RecordPayment)
				r.Post("/start", cfg.AppointmentsHandler.Start)
				r.Post("/complete", cfg.AppointmentsHandler.Complete)
				r.Post("/no-show", cfg.AppointmentsHandler.MarkNoShow)
				if cfg.NotificationsHandler != nil {
					r.Get("/notifications", cfg.NotificationsHandler.ListForAppointment)
				}
			})
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
