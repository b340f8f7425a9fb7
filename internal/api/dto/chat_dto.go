package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// SendMessageRequest payload.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SubmitIssueRequest payload for the support widget.
type SubmitIssueRequest struct {
	Description string `json:"description"`
	Email       string `json:"email"`
}

// ChatSessionResponse represents a session in the inbox.
type ChatSessionResponse struct {
	ID                string               `json:"id"`
	CustomerID        string               `json:"customer_id"`
	AgentID           *string              `json:"agent_id"`
	TicketID          *string              `json:"ticket_id"`
	Status            domain.SessionStatus `json:"status"`
	StartedAt         time.Time            `json:"started_at"`
	EndedAt           *time.Time           `json:"ended_at"`
	LastMessage       string               `json:"last_message"`
	LastMessageAt     *time.Time           `json:"last_message_at"`
	LastMessageSender domain.SenderType    `json:"last_message_sender,omitempty"`
	Unreplied         bool                 `json:"unreplied"`
}

// ChatMessageResponse represents one transcript entry.
type ChatMessageResponse struct {
	ID         string            `json:"id"`
	SessionID  string            `json:"session_id"`
	SenderType domain.SenderType `json:"sender_type"`
	Content    string            `json:"content"`
	CreatedAt  time.Time         `json:"created_at"`
}

// SendMessageResponse reports an appended message.
type SendMessageResponse struct {
	Message   ChatMessageResponse  `json:"message"`
	Session   *ChatSessionResponse `json:"session,omitempty"`
	Persisted bool                 `json:"persisted"`
}

// IssueReceiptResponse is returned once the widget filed a ticket.
type IssueReceiptResponse struct {
	Message  string              `json:"message"`
	TicketID string              `json:"ticket_id"`
	Ticket   TicketSummary       `json:"ticket"`
	Session  ChatSessionResponse `json:"session"`
}

// TicketStatusResponse is the customer view of a ticket.
type TicketStatusResponse struct {
	Ticket     TicketSummary         `json:"ticket"`
	SessionID  string                `json:"session_id,omitempty"`
	Transcript []ChatMessageResponse `json:"transcript"`
}
