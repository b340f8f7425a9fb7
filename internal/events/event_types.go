package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates record change notifications.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketUpdated  EventType = "ticket_updated"
	EventTicketDeleted  EventType = "ticket_deleted"
	EventNoteAdded      EventType = "note_added"
	EventSessionCreated EventType = "session_created"
	EventSessionUpdated EventType = "session_updated"
	EventSessionDeleted EventType = "session_deleted"
	EventMessageAdded   EventType = "message_added"
	EventRuleCreated    EventType = "sla_rule_created"
	EventAgentChanged   EventType = "agent_changed"
	EventArticleChanged EventType = "article_changed"
	EventSLABreached    EventType = "sla_breached"
)

// TicketEvents are the types that change the ticket table.
var TicketEvents = []EventType{EventTicketCreated, EventTicketUpdated, EventTicketDeleted}

// SessionEvents are the types that change the chat tables.
var SessionEvents = []EventType{EventSessionCreated, EventSessionUpdated, EventSessionDeleted, EventMessageAdded}

// Actor identifies who caused a change.
type Actor struct {
	Type domain.SubjectType `json:"type,omitempty"`
	ID   *string            `json:"id,omitempty"`
}

// Event is a change notification emitted after a successful store write.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	EntityID  string    `json:"entity_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Origin    string    `json:"origin,omitempty"`
	Payload   any       `json:"payload,omitempty"`
}

// TicketChangedPayload describes a ticket mutation.
type TicketChangedPayload struct {
	Field    string `json:"field,omitempty"`
	OldValue string `json:"old_value,omitempty"`
	NewValue string `json:"new_value,omitempty"`
	Title    string `json:"title,omitempty"`
}

// MessageAddedPayload describes a chat message.
type MessageAddedPayload struct {
	SessionID   string            `json:"session_id"`
	MessageID   string            `json:"message_id"`
	SenderType  domain.SenderType `json:"sender_type"`
	BodyPreview string            `json:"body_preview"`
}

// SLABreachedPayload describes a ticket that went past its resolution deadline.
type SLABreachedPayload struct {
	RuleName    string    `json:"rule_name"`
	Title       string    `json:"title"`
	Deadline    time.Time `json:"deadline"`
	OverMinutes int       `json:"over_minutes"`
}

// Preview truncates text for event payloads.
func Preview(text string) string {
	const limit = 120
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
