package notify

import (
	"context"
	"testing"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "clinic@example.com",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "clinic@example.com",
		FromName:  "",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "CareBook Clinic" {
		t.Errorf("expected default from name 'CareBook Clinic', got %q", sender.fromName)
	}
}

func TestNewSendGridSender_CustomFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "clinic@example.com",
		FromName:  "Sunrise Family Clinic",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Sunrise Family Clinic" {
		t.Errorf("expected from name 'Sunrise Family Clinic', got %q", sender.fromName)
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{
		client: nil,
	}

	_, err := sender.Send(context.Background(), EmailMessage{
		To:      "patient@example.com",
		Subject: "Appointment confirmed",
		Body:    "See you soon",
	})

	if err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestStubEmailSender_RecordsMessages(t *testing.T) {
	sender := NewStubEmailSender(nil)

	id, err := sender.Send(context.Background(), EmailMessage{
		To:      "patient@example.com",
		Subject: "Appointment confirmed",
		Body:    "See you soon",
	})
	if err != nil {
		t.Fatalf("stub sender should not return error, got: %v", err)
	}
	if id == "" {
		t.Error("expected synthetic message id")
	}

	sent := sender.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 recorded message, got %d", len(sent))
	}
	if sent[0].To != "patient@example.com" {
		t.Errorf("unexpected recipient: %s", sent[0].To)
	}
}
