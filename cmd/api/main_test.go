package main

import (
	"context"
	"testing"

	appconfig "github.com/carebook/clinic-platform/internal/config"
	"github.com/carebook/clinic-platform/pkg/logging"
)

func TestBuildEmailSenderUnconfiguredReturnsNil(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{EmailProvider: "sendgrid"}

	if sender := buildEmailSender(context.Background(), cfg, logger); sender != nil {
		t.Fatalf("expected nil sender without an API key")
	}
}

func TestBuildWhatsAppSenderUnconfiguredReturnsNil(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{}

	if sender := buildWhatsAppSender(cfg, logger); sender != nil {
		t.Fatalf("expected nil sender without credentials")
	}
}
