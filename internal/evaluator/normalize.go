// Package evaluator holds the helpdesk business rules: status and priority
// normalization, SLA rule selection and breach evaluation, chat inbox
// ordering, ticket volume bucketing and agent presence. Every function is
// pure and works on already-fetched records.
package evaluator

import (
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var ticketStatusByRaw = map[string]domain.TicketStatus{
	"open":        domain.TicketStatusOpen,
	"in_progress": domain.TicketStatusInProgress,
	"in progress": domain.TicketStatusInProgress,
	"in-progress": domain.TicketStatusInProgress,
	"inprogress":  domain.TicketStatusInProgress,
	// resolved tickets share the Closed column on the board
	"resolved": domain.TicketStatusClosed,
	"closed":   domain.TicketStatusClosed,
	"waiting":  domain.TicketStatusOpen,
	"ended":    domain.TicketStatusClosed,
}

var priorityByRaw = map[string]domain.TicketPriority{
	"low":    domain.TicketPriorityLow,
	"medium": domain.TicketPriorityMedium,
	"high":   domain.TicketPriorityHigh,
	"urgent": domain.TicketPriorityHigh,
}

var sessionStatusByRaw = map[string]domain.SessionStatus{
	"waiting":     domain.SessionStatusWaiting,
	"active":      domain.SessionStatusActive,
	"open":        domain.SessionStatusActive,
	"in_progress": domain.SessionStatusActive,
	"in progress": domain.SessionStatusActive,
	"closed":      domain.SessionStatusClosed,
	"ended":       domain.SessionStatusClosed,
	"resolved":    domain.SessionStatusClosed,
}

var senderByRaw = map[string]domain.SenderType{
	"customer": domain.SenderCustomer,
	"user":     domain.SenderCustomer,
	"agent":    domain.SenderAgent,
	"system":   domain.SenderSystem,
	"bot":      domain.SenderBot,
}

func key(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeStatus maps a stored ticket status onto the closed enumeration.
// Unknown or empty values become Open.
func NormalizeStatus(raw string) domain.TicketStatus {
	if status, ok := ticketStatusByRaw[key(raw)]; ok {
		return status
	}
	return domain.TicketStatusOpen
}

// StatusAliases lists the stored spellings that normalize to status, sorted.
// Open is also the fallback for unknown spellings, which a list cannot express;
// callers filtering on Open should exclude the aliases of the other statuses.
func StatusAliases(status domain.TicketStatus) []string {
	var out []string
	for raw, s := range ticketStatusByRaw {
		if s == status {
			out = append(out, raw)
		}
	}
	sort.Strings(out)
	return out
}

// PriorityAliases lists the stored spellings that normalize to priority, sorted.
func PriorityAliases(priority domain.TicketPriority) []string {
	var out []string
	for raw, p := range priorityByRaw {
		if p == priority {
			out = append(out, raw)
		}
	}
	sort.Strings(out)
	return out
}

// NormalizePriority maps a stored priority onto Low, Medium or High.
// Unknown or empty values become Medium.
func NormalizePriority(raw string) domain.TicketPriority {
	if priority, ok := priorityByRaw[key(raw)]; ok {
		return priority
	}
	return domain.TicketPriorityMedium
}

// ParseStatusInput validates a status supplied by a caller. Unlike
// NormalizeStatus it rejects unknown values and keeps Resolved distinct.
func ParseStatusInput(raw string) (domain.TicketStatus, bool) {
	k := key(raw)
	if k == "resolved" {
		return domain.TicketStatusResolved, true
	}
	status, ok := ticketStatusByRaw[k]
	return status, ok
}

// ParsePriorityInput validates a priority supplied by a caller.
func ParsePriorityInput(raw string) (domain.TicketPriority, bool) {
	priority, ok := priorityByRaw[key(raw)]
	return priority, ok
}

// NormalizeSessionStatus maps current and legacy chat session statuses.
// Unknown or empty values become Waiting so the session surfaces in the queue.
func NormalizeSessionStatus(raw string) domain.SessionStatus {
	if status, ok := sessionStatusByRaw[key(raw)]; ok {
		return status
	}
	return domain.SessionStatusWaiting
}

// NormalizeSender maps a stored sender type. Unknown values become system.
func NormalizeSender(raw string) domain.SenderType {
	if sender, ok := senderByRaw[key(raw)]; ok {
		return sender
	}
	return domain.SenderSystem
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a stored timestamp. Unparsable input yields now,
// which never produces a spurious breach.
func ParseTimestamp(raw string, now time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return now
}
