package notify

import (
	"strings"
	"testing"
)

func TestConfirmationVarsOrderIsStable(t *testing.T) {
	tmpl, err := whatsAppTemplate(EventConfirmed, testContext())
	if err != nil {
		t.Fatalf("whatsAppTemplate: %v", err)
	}
	if tmpl.TemplateName() != "appointment_confirmation" {
		t.Fatalf("template name = %s", tmpl.TemplateName())
	}

	// Positional contract with the provider-registered template: patient,
	// date, time, doctor, clinic, mode, link, fallback contact.
	want := []string{"Ada Osei", "Monday, March 10", "09:00", "Dr. Mensah", "Sunrise Family Clinic", "In-person visit", "-", "+2335550000"}
	got := tmpl.Vars()
	if len(got) != len(want) {
		t.Fatalf("vars length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("vars[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCancellationVarsCarryReason(t *testing.T) {
	c := testContext()
	c.Reason = "doctor unavailable"

	tmpl, err := whatsAppTemplate(EventCancelled, c)
	if err != nil {
		t.Fatalf("whatsAppTemplate: %v", err)
	}
	if tmpl.TemplateName() != "appointment_cancelled" {
		t.Fatalf("template name = %s", tmpl.TemplateName())
	}
	vars := tmpl.Vars()
	if vars[4] != "doctor unavailable" {
		t.Fatalf("vars[4] = %q, want reason", vars[4])
	}
}

func TestReminderTemplatesDifferByLead(t *testing.T) {
	c := testContext()

	t24, err := whatsAppTemplate(EventReminder24h, c)
	if err != nil {
		t.Fatalf("whatsAppTemplate: %v", err)
	}
	t3, err := whatsAppTemplate(EventReminder3h, c)
	if err != nil {
		t.Fatalf("whatsAppTemplate: %v", err)
	}

	if t24.TemplateName() == t3.TemplateName() {
		t.Fatal("reminder templates must have distinct provider names")
	}
	if t24.Vars()[1] != "tomorrow" {
		t.Errorf("24h lead = %q", t24.Vars()[1])
	}
	if t3.Vars()[1] != "in 3 hours" {
		t.Errorf("3h lead = %q", t3.Vars()[1])
	}
}

func TestEmailContentPerEvent(t *testing.T) {
	c := testContext()
	c.MeetingLink = "https://meet.example/room"
	c.Reason = "patient request"
	c.AmountPaid = "GHS 150.00"
	c.SummaryLines = []string{"09:00 - Ada Osei", "09:40 - Kwame Asante"}

	for _, event := range []Event{
		EventBooked, EventConfirmed, EventRescheduled, EventCancelled,
		EventReminder24h, EventReminder3h, EventReceipt, EventDailySummary,
	} {
		subject, body, html, err := emailContent(event, c)
		if err != nil {
			t.Fatalf("emailContent(%s): %v", event, err)
		}
		if subject == "" || body == "" || html == "" {
			t.Errorf("%s: empty content", event)
		}
		if !strings.Contains(html, c.ClinicName) {
			t.Errorf("%s: html missing clinic name", event)
		}
	}
}

func TestConfirmationEmailIncludesMeetingLink(t *testing.T) {
	c := testContext()
	c.ModeLabel = "Video consultation"
	c.MeetingLink = "https://meet.example/room"

	_, body, html, err := emailContent(EventConfirmed, c)
	if err != nil {
		t.Fatalf("emailContent: %v", err)
	}
	if !strings.Contains(body, "https://meet.example/room") {
		t.Error("plain body missing meeting link")
	}
	if !strings.Contains(html, `href="https://meet.example/room"`) {
		t.Error("html missing meeting link anchor")
	}
}

func TestDailySummaryEmailListsAppointments(t *testing.T) {
	c := testContext()
	c.SummaryLines = []string{"09:00 - Ada Osei (In-person visit)", "09:40 - Kwame Asante (Video consultation)"}

	subject, body, _, err := emailContent(EventDailySummary, c)
	if err != nil {
		t.Fatalf("emailContent: %v", err)
	}
	if !strings.Contains(subject, "2 appointment(s)") {
		t.Errorf("subject = %q", subject)
	}
	for _, line := range c.SummaryLines {
		if !strings.Contains(body, line) {
			t.Errorf("body missing line %q", line)
		}
	}
}

func TestUnknownEventHasNoTemplates(t *testing.T) {
	if _, err := whatsAppTemplate(Event("bogus"), testContext()); err == nil {
		t.Error("expected whatsapp template error")
	}
	if _, _, _, err := emailContent(Event("bogus"), testContext()); err == nil {
		t.Error("expected email template error")
	}
}
