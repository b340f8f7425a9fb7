package evaluator

import (
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want domain.TicketStatus
	}{
		{"open", domain.TicketStatusOpen},
		{"OPEN", domain.TicketStatusOpen},
		{"in_progress", domain.TicketStatusInProgress},
		{"In Progress", domain.TicketStatusInProgress},
		{" IN_PROGRESS ", domain.TicketStatusInProgress},
		{"resolved", domain.TicketStatusClosed},
		{"Closed", domain.TicketStatusClosed},
		{"waiting", domain.TicketStatusOpen},
		{"Ended", domain.TicketStatusClosed},
		{"", domain.TicketStatusOpen},
		{"on-hold", domain.TicketStatusOpen},
	}
	for _, tt := range cases {
		if got := NormalizeStatus(tt.raw); got != tt.want {
			t.Fatalf("NormalizeStatus(%q)=%s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizePriority(t *testing.T) {
	cases := []struct {
		raw  string
		want domain.TicketPriority
	}{
		{"low", domain.TicketPriorityLow},
		{"Medium", domain.TicketPriorityMedium},
		{"HIGH", domain.TicketPriorityHigh},
		{"urgent", domain.TicketPriorityHigh},
		{"", domain.TicketPriorityMedium},
		{"p0", domain.TicketPriorityMedium},
	}
	for _, tt := range cases {
		if got := NormalizePriority(tt.raw); got != tt.want {
			t.Fatalf("NormalizePriority(%q)=%s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizationIsTotal(t *testing.T) {
	statuses := map[domain.TicketStatus]bool{
		domain.TicketStatusOpen: true, domain.TicketStatusInProgress: true,
		domain.TicketStatusResolved: true, domain.TicketStatusClosed: true,
	}
	priorities := map[domain.TicketPriority]bool{
		domain.TicketPriorityLow: true, domain.TicketPriorityMedium: true, domain.TicketPriorityHigh: true,
	}
	inputs := []string{"", " ", "\x00", "ÜRGENT", "in\nprogress", "NULL", "🙂", string(make([]byte, 1024))}
	for _, raw := range inputs {
		if !statuses[NormalizeStatus(raw)] {
			t.Fatalf("NormalizeStatus(%q) left the enumeration", raw)
		}
		if !priorities[NormalizePriority(raw)] {
			t.Fatalf("NormalizePriority(%q) left the enumeration", raw)
		}
	}
}

func TestNormalizeSessionStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want domain.SessionStatus
	}{
		{"Waiting", domain.SessionStatusWaiting},
		{"active", domain.SessionStatusActive},
		{"Open", domain.SessionStatusActive},
		{"In Progress", domain.SessionStatusActive},
		{"Closed", domain.SessionStatusClosed},
		{"Ended", domain.SessionStatusClosed},
		{"", domain.SessionStatusWaiting},
	}
	for _, tt := range cases {
		if got := NormalizeSessionStatus(tt.raw); got != tt.want {
			t.Fatalf("NormalizeSessionStatus(%q)=%s, want %s", tt.raw, got, tt.want)
		}
	}
	if NormalizeSender("user") != domain.SenderCustomer || NormalizeSender("BOT") != domain.SenderBot || NormalizeSender("x") != domain.SenderSystem {
		t.Fatalf("NormalizeSender mapping mismatch")
	}
}

func TestParseTimestamp(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	got := ParseTimestamp("2024-02-29T10:30:00Z", now)
	if !got.Equal(time.Date(2024, 2, 29, 10, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected parse result %v", got)
	}
	if got := ParseTimestamp("2024-02-29 10:30:00", now); got.Hour() != 10 {
		t.Fatalf("space separated layout not parsed: %v", got)
	}
	for _, raw := range []string{"", "yesterday", "29/02/2024"} {
		if got := ParseTimestamp(raw, now); !got.Equal(now) {
			t.Fatalf("ParseTimestamp(%q)=%v, want now", raw, got)
		}
	}
}

func TestStatusAliases(t *testing.T) {
	closed := StatusAliases(domain.TicketStatusClosed)
	want := []string{"closed", "ended", "resolved"}
	if len(closed) != len(want) {
		t.Fatalf("got %v, want %v", closed, want)
	}
	for i := range want {
		if closed[i] != want[i] {
			t.Fatalf("got %v, want %v", closed, want)
		}
	}
	for _, raw := range StatusAliases(domain.TicketStatusInProgress) {
		if NormalizeStatus(raw) != domain.TicketStatusInProgress {
			t.Fatalf("alias %q does not normalize back", raw)
		}
	}
	if len(StatusAliases(domain.TicketStatusResolved)) != 0 {
		t.Fatalf("resolved is folded into closed and has no aliases of its own")
	}
}

func TestParseStatusInput(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.TicketStatus
		ok   bool
	}{
		{"OPEN", domain.TicketStatusOpen, true},
		{"In Progress", domain.TicketStatusInProgress, true},
		{"RESOLVED", domain.TicketStatusResolved, true},
		{"closed", domain.TicketStatusClosed, true},
		{"archived", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStatusInput(tt.raw)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseStatusInput(%q)=(%q,%v), want (%q,%v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
	if _, ok := ParsePriorityInput("critical"); ok {
		t.Fatalf("unknown priority accepted")
	}
	if got, ok := ParsePriorityInput("Urgent"); !ok || got != domain.TicketPriorityHigh {
		t.Fatalf("urgent should parse as high, got %q", got)
	}
}
