package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// StorageValue returns the value persisted in the support_cases table.
func (s TicketStatus) StorageValue() string {
	switch s {
	case TicketStatusInProgress:
		return "in_progress"
	case TicketStatusResolved:
		return "resolved"
	case TicketStatusClosed:
		return "closed"
	default:
		return "open"
	}
}

// Label is the board column name.
func (s TicketStatus) Label() string {
	switch s {
	case TicketStatusInProgress:
		return "In Progress"
	case TicketStatusResolved:
		return "Resolved"
	case TicketStatusClosed:
		return "Closed"
	default:
		return "Open"
	}
}

// IsTerminal reports whether the SLA clock is frozen for the status.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// StorageValue returns the value persisted in the support_cases table.
func (p TicketPriority) StorageValue() string {
	switch p {
	case TicketPriorityLow:
		return "low"
	case TicketPriorityHigh:
		return "high"
	default:
		return "medium"
	}
}

// Label is the display name, also used when matching SLA rule names.
func (p TicketPriority) Label() string {
	switch p {
	case TicketPriorityLow:
		return "Low"
	case TicketPriorityHigh:
		return "High"
	default:
		return "Medium"
	}
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	CaseNumber  string
	Title       string
	Description string
	CustomerID  string
	AssigneeID  *string
	Status      TicketStatus
	Priority    TicketPriority
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time
	Notes       []Note
}

// Note is an agent annotation on a ticket.
type Note struct {
	ID       string
	TicketID string
	Text     string
	At       time.Time
	Internal bool
	AuthorID *string
}
