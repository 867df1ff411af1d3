package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/carebook/clinic-platform/internal/notify"
	"github.com/carebook/clinic-platform/internal/patients"
	"github.com/carebook/clinic-platform/pkg/logging"
)

// Verification failure modes. All are terminal for the stored code except
// InvalidCodeError within the attempt budget.
var (
	ErrNotFound        = errors.New("otp: no pending code for identifier")
	ErrExpired         = errors.New("otp: code expired")
	ErrTooManyAttempts = errors.New("otp: too many attempts")
)

// InvalidCodeError is a mismatch with attempts still remaining.
type InvalidCodeError struct {
	Remaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("otp: invalid code, %d attempt(s) remaining", e.Remaining)
}

// PatientResolver optionally maps a verified identifier to a patient profile.
type PatientResolver interface {
	FindPatientByIdentifier(ctx context.Context, identifier string) (*patients.Patient, error)
}

// storeGrace is how long a stored code is kept past its expiry.
const storeGrace = time.Minute

// Registry issues and verifies one-time codes. Codes live in a TTL store and
// are delivered over email or WhatsApp depending on the identifier shape.
type Registry struct {
	store       Store
	email       notify.EmailSender
	whatsapp    notify.WhatsAppSender
	resolver    PatientResolver
	clinicName  string
	ttl         time.Duration
	maxAttempts int
	lang        string
	logger      *logging.Logger
	now         func() time.Time
}

// Config tunes the registry.
type Config struct {
	ClinicName   string
	TTL          time.Duration // defaults to 10m
	MaxAttempts  int           // defaults to 3
	TemplateLang string        // defaults to en_US
}

// NewRegistry constructs the registry. resolver may be nil; verification then
// succeeds without a patient profile.
func NewRegistry(store Store, email notify.EmailSender, whatsapp notify.WhatsAppSender, resolver PatientResolver, cfg Config, logger *logging.Logger) *Registry {
	if store == nil {
		panic("otp: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.TemplateLang == "" {
		cfg.TemplateLang = "en_US"
	}
	return &Registry{
		store:       store,
		email:       email,
		whatsapp:    whatsapp,
		resolver:    resolver,
		clinicName:  cfg.ClinicName,
		ttl:         cfg.TTL,
		maxAttempts: cfg.MaxAttempts,
		lang:        cfg.TemplateLang,
		logger:      logger,
		now:         time.Now,
	}
}

// Issue generates a fresh 6-digit code for the identifier, stores it with the
// configured TTL and delivers it. Re-issuing replaces any pending code.
func (r *Registry) Issue(ctx context.Context, identifier string) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return fmt.Errorf("otp: identifier required")
	}

	code, err := generateCode()
	if err != nil {
		return err
	}

	entry := Entry{
		Code:      code,
		ExpiresAt: r.now().Add(r.ttl),
		Attempts:  0,
	}
	// The store key outlives the logical expiry by a grace period so a
	// just-late Verify answers Expired rather than NotFound.
	if err := r.store.Put(ctx, identifier, entry, r.ttl+storeGrace); err != nil {
		return err
	}

	if err := r.deliver(ctx, identifier, code); err != nil {
		// The code stays stored: the caller may retry delivery by re-issuing.
		r.logger.Error("otp delivery failed", "error", err, "identifier", identifier)
		return err
	}
	r.logger.Info("otp issued", "identifier", identifier, "expires_at", entry.ExpiresAt)
	return nil
}

// Verify checks a submitted code. On success the entry is deleted and the
// matching patient profile is returned when a resolver is configured.
func (r *Registry) Verify(ctx context.Context, identifier, code string) (*patients.Patient, error) {
	identifier = strings.TrimSpace(identifier)

	entry, err := r.store.Get(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound
	}

	if r.now().After(entry.ExpiresAt) {
		if err := r.store.Delete(ctx, identifier); err != nil {
			r.logger.Error("failed to delete expired otp", "error", err, "identifier", identifier)
		}
		return nil, ErrExpired
	}

	if entry.Attempts >= r.maxAttempts {
		if err := r.store.Delete(ctx, identifier); err != nil {
			r.logger.Error("failed to delete exhausted otp", "error", err, "identifier", identifier)
		}
		return nil, ErrTooManyAttempts
	}

	if code != entry.Code {
		entry.Attempts++
		if entry.Attempts >= r.maxAttempts {
			if err := r.store.Delete(ctx, identifier); err != nil {
				r.logger.Error("failed to delete exhausted otp", "error", err, "identifier", identifier)
			}
			return nil, ErrTooManyAttempts
		}
		if err := r.store.Update(ctx, identifier, *entry); err != nil {
			return nil, err
		}
		return nil, &InvalidCodeError{Remaining: r.maxAttempts - entry.Attempts}
	}

	if err := r.store.Delete(ctx, identifier); err != nil {
		r.logger.Error("failed to delete verified otp", "error", err, "identifier", identifier)
	}
	r.logger.Info("otp verified", "identifier", identifier)

	if r.resolver == nil {
		return nil, nil
	}
	patient, err := r.resolver.FindPatientByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, patients.ErrPatientNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return patient, nil
}

// deliver routes the code by identifier shape: an address with "@" goes to
// email, anything else is treated as a phone number.
func (r *Registry) deliver(ctx context.Context, identifier, code string) error {
	minutes := fmt.Sprintf("%d", int(r.ttl.Minutes()))

	if strings.Contains(identifier, "@") {
		if r.email == nil {
			return fmt.Errorf("otp: email channel not configured")
		}
		subject := fmt.Sprintf("Your %s verification code", r.clinicName)
		body := fmt.Sprintf(`Your verification code is %s.

It expires in %s minutes. If you did not request it, ignore this message.

— %s`, code, minutes, r.clinicName)
		html := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #3b82f6;">Verification code</h2>
<p style="font-size: 32px; letter-spacing: 8px; font-weight: bold;">%s</p>
<p>It expires in %s minutes. If you did not request it, ignore this message.</p>
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">— %s</p>
</div>`, code, minutes, r.clinicName)
		_, err := r.email.Send(ctx, notify.EmailMessage{
			To:      identifier,
			Subject: subject,
			Body:    body,
			HTML:    html,
		})
		return err
	}

	if r.whatsapp == nil {
		return fmt.Errorf("otp: whatsapp channel not configured")
	}
	_, err := r.whatsapp.SendTemplate(ctx, identifier, "otp_code", r.lang, []string{code, minutes})
	return err
}

func generateCode() (string, error) {
	// Uniform over [100000, 999999]: always 6 digits.
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}
	return fmt.Sprintf("%d", 100000+n.Int64()), nil
}
