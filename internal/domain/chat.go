package domain

import "time"

// SessionStatus enumerates chat session states.
type SessionStatus string

const (
	SessionStatusWaiting SessionStatus = "WAITING"
	SessionStatusActive  SessionStatus = "ACTIVE"
	SessionStatusClosed  SessionStatus = "CLOSED"
)

// StorageValue returns the value persisted in the chat_sessions table.
func (s SessionStatus) StorageValue() string {
	switch s {
	case SessionStatusActive:
		return "Active"
	case SessionStatusClosed:
		return "Closed"
	default:
		return "Waiting"
	}
}

// SenderType indicates who authored a chat message.
type SenderType string

const (
	SenderCustomer SenderType = "customer"
	SenderAgent    SenderType = "agent"
	SenderSystem   SenderType = "system"
	SenderBot      SenderType = "bot"
)

// ChatSession is a conversation between a customer and an agent.
type ChatSession struct {
	ID string
	// CustomerID is empty until an anonymous visitor identifies themselves.
	CustomerID        string
	AgentID           *string
	Status            SessionStatus
	StartedAt         time.Time
	EndedAt           *time.Time
	LastMessage       string
	LastMessageAt     *time.Time
	LastMessageSender SenderType
	// TicketID links the session to a ticket; when nil the customer's most
	// recent open ticket is used.
	TicketID *string
}

// ChatMessage is an append-only entry in a session transcript.
type ChatMessage struct {
	ID         string
	SessionID  string
	SenderType SenderType
	Content    string
	CreatedAt  time.Time
}
