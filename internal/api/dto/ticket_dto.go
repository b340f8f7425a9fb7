package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CustomerID  string  `json:"customer_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	AssigneeID  *string `json:"assignee_id"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// AssignRequest payload. A null assignee unassigns the ticket.
type AssignRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority string `json:"priority"`
}

// CreateNoteRequest payload.
type CreateNoteRequest struct {
	Text     string `json:"text"`
	Internal bool   `json:"internal"`
}

// TicketSummary response.
type TicketSummary struct {
	ID          string                `json:"id"`
	CaseNumber  string                `json:"case_number"`
	Title       string                `json:"title"`
	CustomerID  string                `json:"customer_id"`
	AssigneeID  *string               `json:"assignee_id"`
	Status      domain.TicketStatus   `json:"status"`
	StatusLabel string                `json:"status_label"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	ResolvedAt  *time.Time            `json:"resolved_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description string         `json:"description"`
	Notes       []NoteResponse `json:"notes"`
}

// NoteResponse represents a ticket note.
type NoteResponse struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	Internal bool      `json:"internal"`
	AuthorID *string   `json:"author_id"`
	At       time.Time `json:"at"`
}

// SLAStatusResponse is the live countdown for a ticket or session.
type SLAStatusResponse struct {
	RuleID            string    `json:"rule_id"`
	RuleName          string    `json:"rule_name"`
	Clock             string    `json:"clock"`
	BudgetMinutes     int       `json:"budget_minutes"`
	ResolutionMinutes int       `json:"resolution_minutes"`
	IsBreached        bool      `json:"is_breached"`
	DiffMinutes       int       `json:"diff_minutes"`
	Deadline          time.Time `json:"deadline"`
}
