package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// recorder writes the audit trail and publishes change events once a store
// write has succeeded. Neither failure undoes the write; both are logged.
type recorder struct {
	audit      repository.AuditRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func newRecorder(audit repository.AuditRepository, dispatcher events.Dispatcher, logger *zap.Logger, now func() time.Time) recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return recorder{audit: audit, dispatcher: dispatcher, logger: logger, now: now}
}

func (r recorder) record(ctx context.Context, entityType, entityID string, action domain.AuditAction, actor events.Actor, metadata map[string]any) {
	if r.audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actor.ID,
		Metadata:   metadata,
	}
	if err := r.audit.Create(ctx, entry); err != nil {
		r.logger.Warn("audit write failed",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

func (r recorder) publish(ctx context.Context, eventType events.EventType, entityID string, actor events.Actor, payload any) {
	if r.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		EntityID:  entityID,
		Actor:     actor,
		Timestamp: r.now().UTC(),
		Payload:   payload,
	}
	if err := r.dispatcher.Publish(ctx, event); err != nil {
		r.logger.Warn("event publish failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

// AgentActor builds the actor for an agent-initiated change.
func AgentActor(agentID string) events.Actor {
	if agentID == "" {
		return events.Actor{Type: domain.SubjectTypeAgent}
	}
	return events.Actor{Type: domain.SubjectTypeAgent, ID: &agentID}
}

// CustomerActor builds the actor for a customer-initiated change. An empty
// id marks an anonymous support widget visitor.
func CustomerActor(customerID string) events.Actor {
	if customerID == "" {
		return events.Actor{Type: domain.SubjectTypeCustomer}
	}
	return events.Actor{Type: domain.SubjectTypeCustomer, ID: &customerID}
}
