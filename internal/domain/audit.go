package domain

import "time"

// AuditAction captures what changed in an audit entry.
type AuditAction string

const (
	AuditTicketCreated   AuditAction = "TICKET_CREATED"
	AuditStatusChanged   AuditAction = "STATUS_CHANGE"
	AuditAssigneeChanged AuditAction = "ASSIGNEE_CHANGE"
	AuditPriorityChanged AuditAction = "PRIORITY_CHANGE"
	AuditTicketDeleted   AuditAction = "TICKET_DELETED"
	AuditSessionEnded    AuditAction = "SESSION_ENDED"
	AuditSessionDeleted  AuditAction = "SESSION_DELETED"
	AuditRuleCreated     AuditAction = "SLA_RULE_CREATED"
	AuditEmployeeAdded   AuditAction = "EMPLOYEE_ADDED"
	AuditEmployeeRemoved AuditAction = "EMPLOYEE_REMOVED"
)

// AuditEntry is an immutable trail entry.
type AuditEntry struct {
	ID         string
	EntityType string
	EntityID   string
	Action     AuditAction
	ActorID    *string
	Metadata   map[string]any
	CreatedAt  time.Time
}
