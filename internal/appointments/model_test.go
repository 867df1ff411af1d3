package appointments

import "testing"

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from  Status
		to    Status
		legal bool
	}{
		{StatusScheduled, StatusConfirmed, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusCompleted, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusRescheduled, true},
		{StatusConfirmed, StatusInProgress, true},
		{StatusRescheduled, StatusRescheduled, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusScheduled, false},
		{StatusPendingPayment, StatusScheduled, true},
		{StatusCompleted, StatusScheduled, false},
		{StatusCancelled, StatusScheduled, false},
		{StatusNoShow, StatusConfirmed, false},
		{StatusScheduled, StatusNoShow, true},
		{StatusConfirmed, StatusNoShow, true},
		{StatusInProgress, StatusNoShow, true},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.legal {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.legal)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusNoShow} {
		if !IsTerminal(s) {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Status{StatusScheduled, StatusConfirmed, StatusRescheduled, StatusInProgress, StatusPendingPayment} {
		if IsTerminal(s) {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestOccupyingStatuses(t *testing.T) {
	if !StatusScheduled.Occupies() || !StatusConfirmed.Occupies() || !StatusPendingPayment.Occupies() {
		t.Fatal("expected scheduled/confirmed/pending_payment to occupy slots")
	}
	if StatusCancelled.Occupies() || StatusNoShow.Occupies() || StatusCompleted.Occupies() {
		t.Fatal("expected cancelled/no_show/completed to free slots")
	}
}

func TestStatusRoundTrip(t *testing.T) {
	wire := []string{
		"scheduled", "confirmed", "completed", "cancelled",
		"rescheduled", "no_show", "in_progress", "pending_payment",
	}
	for _, s := range wire {
		parsed, err := ParseStatus(s)
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", s, err)
		}
		if string(parsed) != s {
			t.Fatalf("status %q did not round-trip, got %q", s, parsed)
		}
	}
	if _, err := ParseStatus("booked"); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestModeRoundTrip(t *testing.T) {
	for _, m := range []string{"in-person", "video", "phone"} {
		parsed, err := ParseMode(m)
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", m, err)
		}
		if string(parsed) != m {
			t.Fatalf("mode %q did not round-trip, got %q", m, parsed)
		}
	}
	if _, err := ParseMode("telepathy"); err == nil {
		t.Fatal("expected unknown mode to be rejected")
	}
}
