package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/carebook/clinic-platform/internal/api/router"
	"github.com/carebook/clinic-platform/internal/appointments"
	"github.com/carebook/clinic-platform/internal/availability"
	appconfig "github.com/carebook/clinic-platform/internal/config"
	"github.com/carebook/clinic-platform/internal/notify"
	"github.com/carebook/clinic-platform/internal/observability/metrics"
	"github.com/carebook/clinic-platform/internal/otp"
	"github.com/carebook/clinic-platform/internal/patients"
	"github.com/carebook/clinic-platform/internal/reminders"
	"github.com/carebook/clinic-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	loc, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		logger.Error("invalid clinic timezone", "error", err, "tz", cfg.ClinicTimezone)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// Delivery channels.
	emailSender := buildEmailSender(ctx, cfg, logger)
	whatsappSender := buildWhatsAppSender(cfg, logger)

	// Metrics.
	bookingMetrics := metrics.NewBookingMetrics(nil)
	dispatchMetrics := metrics.NewDispatchMetrics(nil)

	// Repositories.
	directory := patients.NewRepository(pool)
	availabilityRepo := availability.NewRepository(pool)
	apptRepo := appointments.NewRepository(pool, loc)

	// Notification pipeline.
	recordStore := notify.NewPgRecordStore(pool)
	dispatcher := notify.NewDispatcher(emailSender, whatsappSender, recordStore, notify.DispatcherConfig{
		ProviderTimeout: cfg.ProviderTimeout,
		TemplateLang:    cfg.WhatsAppTemplateLang,
	}, dispatchMetrics, logger)
	clinic := notify.ClinicInfo{Name: cfg.ClinicName, Phone: cfg.ClinicPhone}
	notifier := notify.NewAppointmentNotifier(dispatcher, directory, clinic, loc, logger)

	// Booking coordinator.
	slotGen := availability.NewGenerator(availabilityRepo, apptRepo, loc, logger)
	bookingService := appointments.NewService(apptRepo, slotGen, directory, notifier, bookingMetrics, logger)

	// OTP registry.
	otpStore := otp.NewRedisStore(redisClient)
	otpRegistry := otp.NewRegistry(otpStore, emailSender, whatsappSender, directory, otp.Config{
		ClinicName:   cfg.ClinicName,
		TTL:          cfg.OTPTTL,
		MaxAttempts:  cfg.OTPMaxAttempts,
		TemplateLang: cfg.WhatsAppTemplateLang,
	}, logger)

	// Reminder worker.
	worker := reminders.NewWorker(apptRepo, directory, workerSink{notifier, dispatcher}, clinic, loc, reminders.Config{
		PollInterval: cfg.ReminderPollInterval,
		SummaryHour:  cfg.DailySummaryHour,
	}, logger)
	go worker.Run(ctx)

	r := router.New(&router.Config{
		Logger:               logger,
		AppointmentsHandler:  appointments.NewHandler(bookingService, slotGen, logger),
		NotificationsHandler: notify.NewHandler(recordStore, logger),
		OTPHandler:           otp.NewHandler(otpRegistry, logger),
		StaffAuthSecret:      cfg.StaffJWTSecret,
		MetricsHandler:       promhttp.Handler(),
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		OTPIssueRate:         0.2,
		OTPIssueBurst:        3,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel() // stops the reminder worker

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// workerSink feeds the reminder worker's two delivery paths from the shared
// notifier and dispatcher.
type workerSink struct {
	notifier   *notify.AppointmentNotifier
	dispatcher *notify.Dispatcher
}

func (s workerSink) Notify(ctx context.Context, event notify.Event, appt *appointments.Appointment) notify.DispatchResult {
	return s.notifier.Notify(ctx, event, appt)
}

func (s workerSink) Dispatch(ctx context.Context, event notify.Event, c notify.AppointmentContext) notify.DispatchResult {
	return s.dispatcher.Dispatch(ctx, event, c)
}

func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config, email disabled", "error", err)
			return nil
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender == nil {
			return nil
		}
		return sender
	default:
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			logger.Warn("sendgrid not configured, email channel disabled")
			return nil
		}
		return sender
	}
}

func buildWhatsAppSender(cfg *appconfig.Config, logger *logging.Logger) notify.WhatsAppSender {
	sender := notify.NewWhatsAppCloudSender(notify.WhatsAppConfig{
		AccessToken:   cfg.WhatsAppAccessToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		BaseURL:       cfg.WhatsAppBaseURL,
	}, logger)
	if sender == nil {
		logger.Warn("whatsapp not configured, messaging channel disabled")
		return nil
	}
	return sender
}
