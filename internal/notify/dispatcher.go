package notify

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carebook/clinic-platform/internal/observability/metrics"
	"github.com/carebook/clinic-platform/pkg/logging"
)

var dispatchTracer = otel.Tracer("clinic.internal.notify")

// ChannelResult is the outcome of one channel's delivery attempt.
type ChannelResult struct {
	Sent      bool
	MessageID string
	Err       error
	Skipped   bool // no contact for this channel, or channel disabled
	Deduped   bool // a sent record already existed for the idempotency key
}

// DispatchResult combines both channel outcomes. A failure on one channel
// never affects the other.
type DispatchResult struct {
	Email    ChannelResult
	WhatsApp ChannelResult
}

// PartialFailure reports whether at least one attempted channel failed while
// another succeeded.
func (r DispatchResult) PartialFailure() bool {
	emailFailed := !r.Email.Skipped && !r.Email.Sent
	waFailed := !r.WhatsApp.Skipped && !r.WhatsApp.Sent
	return (emailFailed && r.WhatsApp.Sent) || (waFailed && r.Email.Sent)
}

// Dispatcher fans one event out to email and WhatsApp concurrently. Every
// attempt is appended to the audit log; an already-delivered idempotency key
// short-circuits the channel without a provider call.
type Dispatcher struct {
	email           EmailSender
	whatsapp        WhatsAppSender
	records         RecordStore
	metrics         *metrics.DispatchMetrics
	logger          *logging.Logger
	providerTimeout time.Duration
	templateLang    string
}

// DispatcherConfig tunes provider behavior.
type DispatcherConfig struct {
	ProviderTimeout time.Duration // per provider call; defaults to 15s
	TemplateLang    string        // WhatsApp template language; defaults to en_US
}

// NewDispatcher constructs the dispatcher. Either sender may be nil; its
// channel is then skipped.
func NewDispatcher(email EmailSender, whatsapp WhatsAppSender, records RecordStore, cfg DispatcherConfig, m *metrics.DispatchMetrics, logger *logging.Logger) *Dispatcher {
	if records == nil {
		panic("notify: record store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 15 * time.Second
	}
	if cfg.TemplateLang == "" {
		cfg.TemplateLang = "en_US"
	}
	return &Dispatcher{
		email:           email,
		whatsapp:        whatsapp,
		records:         records,
		metrics:         m,
		logger:          logger,
		providerTimeout: cfg.ProviderTimeout,
		templateLang:    cfg.TemplateLang,
	}
}

// Dispatch delivers one event over both channels. Channels run concurrently
// and independently; a missing contact degrades to single-channel delivery.
// The returned result reflects both channels; Dispatch itself never returns
// an error because notifications are best-effort relative to the booking.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event, c AppointmentContext) DispatchResult {
	ctx, span := dispatchTracer.Start(ctx, "notify.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.event", string(event)),
		attribute.String("clinic.appointment_id", c.AppointmentID.String()),
	)

	if !event.Valid() {
		d.logger.Error("unknown notification event", "event", event)
		return DispatchResult{
			Email:    ChannelResult{Skipped: true},
			WhatsApp: ChannelResult{Skipped: true},
		}
	}

	emailAddr, emailName, phone := d.recipients(event, c)

	var res DispatchResult
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.Email = d.dispatchEmail(ctx, event, c, emailAddr, emailName)
	}()
	go func() {
		defer wg.Done()
		res.WhatsApp = d.dispatchWhatsApp(ctx, event, c, phone)
	}()
	wg.Wait()

	if res.Email.Skipped && res.WhatsApp.Skipped {
		d.logger.Warn("event had no reachable channel", "event", event, "appointment_id", c.AppointmentID)
	}
	return res
}

// recipients picks the contact pair for the event. The daily summary goes to
// the doctor; every other event goes to the patient.
func (d *Dispatcher) recipients(event Event, c AppointmentContext) (emailAddr, emailName, phone string) {
	if event == EventDailySummary {
		return c.DoctorEmail, c.DoctorName, c.DoctorPhone
	}
	return c.PatientEmail, c.PatientName, c.PatientPhone
}

func (d *Dispatcher) dispatchEmail(ctx context.Context, event Event, c AppointmentContext, to, toName string) ChannelResult {
	if d.email == nil || strings.TrimSpace(to) == "" {
		return ChannelResult{Skipped: true}
	}

	key := IdempotencyKey(event, c.AppointmentID, ChannelEmail)
	if delivered, err := d.records.Delivered(ctx, key); err != nil {
		d.logger.Error("idempotency lookup failed", "error", err, "key", key)
	} else if delivered {
		d.logger.Info("skipping duplicate delivery", "key", key)
		return ChannelResult{Sent: true, Deduped: true}
	}

	subject, body, html, err := emailContent(event, c)
	if err != nil {
		return ChannelResult{Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, d.providerTimeout)
	defer cancel()
	start := time.Now()
	messageID, err := d.email.Send(callCtx, EmailMessage{
		To:      to,
		ToName:  toName,
		Subject: subject,
		Body:    body,
		HTML:    html,
	})
	d.metrics.ObserveProviderLatency(string(ChannelEmail), time.Since(start).Seconds())

	return d.finish(ctx, event, c, ChannelEmail, to, subject, body, key, messageID, err)
}

func (d *Dispatcher) dispatchWhatsApp(ctx context.Context, event Event, c AppointmentContext, to string) ChannelResult {
	if d.whatsapp == nil || strings.TrimSpace(to) == "" {
		return ChannelResult{Skipped: true}
	}

	key := IdempotencyKey(event, c.AppointmentID, ChannelWhatsApp)
	if delivered, err := d.records.Delivered(ctx, key); err != nil {
		d.logger.Error("idempotency lookup failed", "error", err, "key", key)
	} else if delivered {
		d.logger.Info("skipping duplicate delivery", "key", key)
		return ChannelResult{Sent: true, Deduped: true}
	}

	tmpl, err := whatsAppTemplate(event, c)
	if err != nil {
		return ChannelResult{Err: err}
	}
	vars := tmpl.Vars()
	payload, _ := json.Marshal(vars)

	callCtx, cancel := context.WithTimeout(ctx, d.providerTimeout)
	defer cancel()
	start := time.Now()
	messageID, err := d.whatsapp.SendTemplate(callCtx, to, tmpl.TemplateName(), d.templateLang, vars)
	d.metrics.ObserveProviderLatency(string(ChannelWhatsApp), time.Since(start).Seconds())

	return d.finish(ctx, event, c, ChannelWhatsApp, to, tmpl.TemplateName(), string(payload), key, messageID, err)
}

// finish appends the audit record and counts the attempt. The record write is
// itself best-effort: a failed append must not turn a delivered message into
// a reported failure.
func (d *Dispatcher) finish(ctx context.Context, event Event, c AppointmentContext, channel Channel, recipient, templateID, payload, key, messageID string, sendErr error) ChannelResult {
	rec := &Record{
		AppointmentID:  c.AppointmentID,
		Event:          event,
		Channel:        channel,
		Recipient:      recipient,
		TemplateID:     templateID,
		Payload:        payload,
		Status:         RecordSent,
		MessageID:      messageID,
		IdempotencyKey: key,
	}
	if sendErr != nil {
		rec.Status = RecordFailed
		rec.ErrorText = sendErr.Error()
	}

	if err := d.records.Append(ctx, rec); err != nil {
		d.logger.Error("failed to append notification record", "error", err, "key", key)
	}
	d.metrics.ObserveAttempt(string(event), string(channel), rec.Status)

	if sendErr != nil {
		d.logger.Error("channel delivery failed", "event", event, "channel", channel, "recipient", recipient, "error", sendErr)
		return ChannelResult{Err: sendErr}
	}
	d.logger.Info("channel delivery succeeded", "event", event, "channel", channel, "recipient", recipient, "message_id", messageID)
	return ChannelResult{Sent: true, MessageID: messageID}
}
