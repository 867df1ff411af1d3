package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/carebook/clinic-platform/pkg/logging"
)

// WhatsAppSender delivers a provider-registered template message.
type WhatsAppSender interface {
	SendTemplate(ctx context.Context, to, templateName, languageCode string, parameters []string) (messageID string, err error)
}

// WhatsAppCloudSender sends template messages via the WhatsApp Cloud API.
type WhatsAppCloudSender struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	httpClient    *http.Client
	logger        *logging.Logger
}

// WhatsAppConfig holds configuration for the Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string // defaults to the Graph API v18.0 endpoint
}

// NewWhatsAppCloudSender creates a Cloud API sender. Returns nil when no
// access token is configured.
func NewWhatsAppCloudSender(cfg WhatsAppConfig, logger *logging.Logger) *WhatsAppCloudSender {
	if cfg.AccessToken == "" || cfg.PhoneNumberID == "" {
		return nil
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://graph.facebook.com/v18.0"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WhatsAppCloudSender{
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		baseURL:       cfg.BaseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        logger,
	}
}

type waTemplatePayload struct {
	MessagingProduct string         `json:"messaging_product"`
	RecipientType    string         `json:"recipient_type"`
	To               string         `json:"to"`
	Type             string         `json:"type"`
	Template         waTemplateBody `json:"template"`
}

type waTemplateBody struct {
	Name       string        `json:"name"`
	Language   waLanguage    `json:"language"`
	Components []waComponent `json:"components,omitempty"`
}

type waLanguage struct {
	Code string `json:"code"`
}

type waComponent struct {
	Type       string        `json:"type"`
	Parameters []waParameter `json:"parameters"`
}

type waParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type waResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendTemplate sends one template message. parameters fill the template body
// positionally, so their order must match the registered template signature.
func (w *WhatsAppCloudSender) SendTemplate(ctx context.Context, to, templateName, languageCode string, parameters []string) (string, error) {
	var components []waComponent
	if len(parameters) > 0 {
		params := make([]waParameter, len(parameters))
		for i, p := range parameters {
			params[i] = waParameter{Type: "text", Text: p}
		}
		components = append(components, waComponent{Type: "body", Parameters: params})
	}

	payload := waTemplatePayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "template",
		Template: waTemplateBody{
			Name:       templateName,
			Language:   waLanguage{Code: languageCode},
			Components: components,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("notify: marshal whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", w.baseURL, w.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("notify: build whatsapp request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.logger.Error("whatsapp send failed", "error", err, "to", to, "template", templateName)
		return "", fmt.Errorf("notify: whatsapp send failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("notify: read whatsapp response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		w.logger.Error("whatsapp returned error status", "status", resp.StatusCode, "body", string(respBody), "to", to)
		return "", fmt.Errorf("notify: whatsapp api status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed waResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("notify: unmarshal whatsapp response: %w", err)
	}
	if len(parsed.Messages) == 0 {
		return "", fmt.Errorf("notify: no message id in whatsapp response")
	}

	w.logger.Info("whatsapp template sent", "to", to, "template", templateName, "message_id", parsed.Messages[0].ID)
	return parsed.Messages[0].ID, nil
}

// StubWhatsAppSender records template sends instead of making provider calls.
type StubWhatsAppSender struct {
	mu     sync.Mutex
	sent   []StubWhatsAppMessage
	Err    error // returned from SendTemplate when set
	logger *logging.Logger
}

// StubWhatsAppMessage is one recorded template send.
type StubWhatsAppMessage struct {
	To           string
	TemplateName string
	LanguageCode string
	Parameters   []string
}

// NewStubWhatsAppSender creates a stub sender that logs but doesn't send.
func NewStubWhatsAppSender(logger *logging.Logger) *StubWhatsAppSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubWhatsAppSender{logger: logger}
}

// SendTemplate records the message and returns a synthetic id.
func (s *StubWhatsAppSender) SendTemplate(ctx context.Context, to, templateName, languageCode string, parameters []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	s.sent = append(s.sent, StubWhatsAppMessage{To: to, TemplateName: templateName, LanguageCode: languageCode, Parameters: parameters})
	s.logger.Info("stub whatsapp sender: would send template", "to", to, "template", templateName)
	return fmt.Sprintf("stub-wa-%d", len(s.sent)), nil
}

// Sent returns a copy of the recorded messages.
func (s *StubWhatsAppSender) Sent() []StubWhatsAppMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StubWhatsAppMessage, len(s.sent))
	copy(out, s.sent)
	return out
}

var _ WhatsAppSender = (*WhatsAppCloudSender)(nil)
var _ WhatsAppSender = (*StubWhatsAppSender)(nil)
