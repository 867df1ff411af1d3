package notify

import (
	"fmt"
	"strings"
)

// WATemplate is a provider-registered WhatsApp template: a fixed name plus an
// ordered variable list. Variable order is a wire contract, so each event gets
// its own struct and arguments cannot silently drift between event types.
type WATemplate interface {
	TemplateName() string
	Vars() []string
}

// BookingVars backs the booked and confirmed templates.
type BookingVars struct {
	PatientName     string
	Date            string
	Time            string
	DoctorName      string
	ClinicName      string
	ModeLabel       string
	MeetingLink     string
	FallbackContact string
}

func (v BookingVars) Vars() []string {
	return []string{v.PatientName, v.Date, v.Time, v.DoctorName, v.ClinicName, v.ModeLabel, v.MeetingLink, v.FallbackContact}
}

type bookedVars struct{ BookingVars }

func (bookedVars) TemplateName() string { return "appointment_booked" }

type confirmedVars struct{ BookingVars }

func (confirmedVars) TemplateName() string { return "appointment_confirmation" }

type rescheduledVars struct{ BookingVars }

func (rescheduledVars) TemplateName() string { return "appointment_rescheduled" }

// CancellationVars backs the cancelled template.
type CancellationVars struct {
	PatientName     string
	Date            string
	Time            string
	DoctorName      string
	Reason          string
	ClinicName      string
	FallbackContact string
}

func (CancellationVars) TemplateName() string { return "appointment_cancelled" }

func (v CancellationVars) Vars() []string {
	return []string{v.PatientName, v.Date, v.Time, v.DoctorName, v.Reason, v.ClinicName, v.FallbackContact}
}

// ReminderVars backs the 24-hour and 3-hour reminder templates.
type ReminderVars struct {
	PatientName string
	Lead        string // "tomorrow" or "in 3 hours"
	Date        string
	Time        string
	DoctorName  string
	ModeLabel   string
	MeetingLink string
}

func (v ReminderVars) Vars() []string {
	return []string{v.PatientName, v.Lead, v.Date, v.Time, v.DoctorName, v.ModeLabel, v.MeetingLink}
}

type reminder24hVars struct{ ReminderVars }

func (reminder24hVars) TemplateName() string { return "appointment_reminder_24h" }

type reminder3hVars struct{ ReminderVars }

func (reminder3hVars) TemplateName() string { return "appointment_reminder_3h" }

// ReceiptVars backs the payment receipt template.
type ReceiptVars struct {
	PatientName string
	Amount      string
	Date        string
	Time        string
	ClinicName  string
}

func (ReceiptVars) TemplateName() string { return "payment_receipt" }

func (v ReceiptVars) Vars() []string {
	return []string{v.PatientName, v.Amount, v.Date, v.Time, v.ClinicName}
}

// DailySummaryVars backs the doctor-facing daily schedule template.
type DailySummaryVars struct {
	DoctorName       string
	Date             string
	AppointmentCount string
	ClinicName       string
}

func (DailySummaryVars) TemplateName() string { return "doctor_daily_summary" }

func (v DailySummaryVars) Vars() []string {
	return []string{v.DoctorName, v.Date, v.AppointmentCount, v.ClinicName}
}

func whatsAppTemplate(event Event, c AppointmentContext) (WATemplate, error) {
	booking := BookingVars{
		PatientName:     c.PatientName,
		Date:            c.Date,
		Time:            c.Time,
		DoctorName:      c.DoctorName,
		ClinicName:      c.ClinicName,
		ModeLabel:       c.ModeLabel,
		MeetingLink:     orDash(c.MeetingLink),
		FallbackContact: orDash(c.ClinicPhone),
	}
	switch event {
	case EventBooked:
		return bookedVars{booking}, nil
	case EventConfirmed:
		return confirmedVars{booking}, nil
	case EventRescheduled:
		return rescheduledVars{booking}, nil
	case EventCancelled:
		return CancellationVars{
			PatientName:     c.PatientName,
			Date:            c.Date,
			Time:            c.Time,
			DoctorName:      c.DoctorName,
			Reason:          orDash(c.Reason),
			ClinicName:      c.ClinicName,
			FallbackContact: orDash(c.ClinicPhone),
		}, nil
	case EventReminder24h, EventReminder3h:
		vars := ReminderVars{
			PatientName: c.PatientName,
			Lead:        "tomorrow",
			Date:        c.Date,
			Time:        c.Time,
			DoctorName:  c.DoctorName,
			ModeLabel:   c.ModeLabel,
			MeetingLink: orDash(c.MeetingLink),
		}
		if event == EventReminder3h {
			vars.Lead = "in 3 hours"
			return reminder3hVars{vars}, nil
		}
		return reminder24hVars{vars}, nil
	case EventReceipt:
		return ReceiptVars{
			PatientName: c.PatientName,
			Amount:      orDash(c.AmountPaid),
			Date:        c.Date,
			Time:        c.Time,
			ClinicName:  c.ClinicName,
		}, nil
	case EventDailySummary:
		return DailySummaryVars{
			DoctorName:       c.DoctorName,
			Date:             c.Date,
			AppointmentCount: fmt.Sprintf("%d", len(c.SummaryLines)),
			ClinicName:       c.ClinicName,
		}, nil
	}
	return nil, fmt.Errorf("notify: no whatsapp template for event %q", event)
}

func emailContent(event Event, c AppointmentContext) (subject, body, html string, err error) {
	switch event {
	case EventBooked:
		subject = fmt.Sprintf("Appointment request received - %s", c.Date)
		body = fmt.Sprintf(`Hi %s,

We received your appointment request with %s on %s at %s (%s).
You will get another message once the clinic confirms it.

— %s`, c.PatientName, c.DoctorName, c.Date, c.Time, c.ModeLabel, c.ClinicName)
		html = appointmentCardHTML("Appointment request received", "#3b82f6",
			fmt.Sprintf("Hi <strong>%s</strong>, we received your appointment request. You will get another message once the clinic confirms it.", c.PatientName), c)
	case EventConfirmed:
		subject = fmt.Sprintf("Appointment confirmed - %s at %s", c.Date, c.Time)
		body = fmt.Sprintf(`Hi %s,

Your appointment with %s is confirmed for %s at %s (%s).%s

— %s`, c.PatientName, c.DoctorName, c.Date, c.Time, c.ModeLabel, meetingLinkText(c.MeetingLink), c.ClinicName)
		html = appointmentCardHTML("Appointment confirmed", "#10b981",
			fmt.Sprintf("Hi <strong>%s</strong>, your appointment is confirmed.", c.PatientName), c)
	case EventRescheduled:
		subject = fmt.Sprintf("Appointment rescheduled - now %s at %s", c.Date, c.Time)
		body = fmt.Sprintf(`Hi %s,

Your appointment with %s has been moved to %s at %s (%s).%s

— %s`, c.PatientName, c.DoctorName, c.Date, c.Time, c.ModeLabel, meetingLinkText(c.MeetingLink), c.ClinicName)
		html = appointmentCardHTML("Appointment rescheduled", "#f59e0b",
			fmt.Sprintf("Hi <strong>%s</strong>, your appointment has been moved to a new time.", c.PatientName), c)
	case EventCancelled:
		subject = fmt.Sprintf("Appointment cancelled - %s at %s", c.Date, c.Time)
		body = fmt.Sprintf(`Hi %s,

Your appointment with %s on %s at %s has been cancelled.
Reason: %s

If this was unexpected, contact us at %s.

— %s`, c.PatientName, c.DoctorName, c.Date, c.Time, orDash(c.Reason), orDash(c.ClinicPhone), c.ClinicName)
		html = appointmentCardHTML("Appointment cancelled", "#ef4444",
			fmt.Sprintf("Hi <strong>%s</strong>, your appointment has been cancelled. Reason: <strong>%s</strong>.", c.PatientName, orDash(c.Reason)), c)
	case EventReminder24h, EventReminder3h:
		lead := "tomorrow"
		if event == EventReminder3h {
			lead = "in 3 hours"
		}
		subject = fmt.Sprintf("Reminder: appointment %s at %s", lead, c.Time)
		body = fmt.Sprintf(`Hi %s,

This is a reminder that your appointment with %s is %s: %s at %s (%s).%s

— %s`, c.PatientName, c.DoctorName, lead, c.Date, c.Time, c.ModeLabel, meetingLinkText(c.MeetingLink), c.ClinicName)
		html = appointmentCardHTML("Appointment reminder", "#3b82f6",
			fmt.Sprintf("Hi <strong>%s</strong>, your appointment is <strong>%s</strong>.", c.PatientName, lead), c)
	case EventReceipt:
		subject = fmt.Sprintf("Payment receipt - %s", c.ClinicName)
		body = fmt.Sprintf(`Hi %s,

We received your payment of %s for the appointment on %s at %s.

— %s`, c.PatientName, orDash(c.AmountPaid), c.Date, c.Time, c.ClinicName)
		html = appointmentCardHTML("Payment received", "#10b981",
			fmt.Sprintf("Hi <strong>%s</strong>, we received your payment of <strong>%s</strong>.", c.PatientName, orDash(c.AmountPaid)), c)
	case EventDailySummary:
		subject = fmt.Sprintf("Your schedule for %s - %d appointment(s)", c.Date, len(c.SummaryLines))
		body = fmt.Sprintf(`Hi %s,

Your schedule for %s:

%s

— %s`, c.DoctorName, c.Date, strings.Join(c.SummaryLines, "\n"), c.ClinicName)
		var rows strings.Builder
		for _, line := range c.SummaryLines {
			fmt.Fprintf(&rows, `<li style="padding: 4px 0;">%s</li>`, line)
		}
		html = fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #3b82f6;">Schedule for %s</h2>
<p>Hi <strong>%s</strong>, you have <strong>%d</strong> appointment(s):</p>
<ul style="list-style: none; padding: 0;">%s</ul>
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">— %s</p>
</div>`, c.Date, c.DoctorName, len(c.SummaryLines), rows.String(), c.ClinicName)
	default:
		return "", "", "", fmt.Errorf("notify: no email template for event %q", event)
	}
	return subject, body, html, nil
}

func appointmentCardHTML(title, accent, intro string, c AppointmentContext) string {
	linkRow := ""
	if c.MeetingLink != "" {
		linkRow = fmt.Sprintf(`<tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Join link:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><a href="%s">%s</a></td></tr>`, c.MeetingLink, c.MeetingLink)
	}
	return fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: %s;">%s</h2>
<p>%s</p>
<table style="border-collapse: collapse; margin: 20px 0;">
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Doctor:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Date:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Time:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Mode:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  %s
</table>
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">— %s</p>
</div>`, accent, title, intro, c.DoctorName, c.Date, c.Time, c.ModeLabel, linkRow, c.ClinicName)
}

func meetingLinkText(link string) string {
	if link == "" {
		return ""
	}
	return fmt.Sprintf("\nJoin link: %s", link)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
