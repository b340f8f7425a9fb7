package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const entityTicket = "ticket"

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets  repository.TicketRepository
	notes    repository.NoteRepository
	agents   repository.AgentRepository
	recorder recorder
	now      func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	NoteRepo   repository.NoteRepository
	AgentRepo  repository.AgentRepository
	AuditRepo  repository.AuditRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CustomerID  string
	Title       string
	Description string
	Priority    domain.TicketPriority
	AssigneeID  *string
}

// TicketListFilter describes agent listing filters.
type TicketListFilter struct {
	Search     string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	AssigneeID *string
	CustomerID *string
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:  deps.TicketRepo,
		notes:    deps.NoteRepo,
		agents:   deps.AgentRepo,
		recorder: newRecorder(deps.AuditRepo, deps.Dispatcher, deps.Logger, clock),
		now:      clock,
	}
}

// Create opens a ticket for a customer.
func (s *TicketService) Create(ctx context.Context, actor events.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	if strings.TrimSpace(input.CustomerID) == "" {
		return nil, apperrors.NewValidationError("customer is required", map[string]any{"field": "customer_id"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if input.AssigneeID != nil {
		if err := s.ensureAgent(ctx, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		CustomerID:  input.CustomerID,
		AssigneeID:  input.AssigneeID,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	s.recorder.record(ctx, entityTicket, ticket.ID, domain.AuditTicketCreated, actor, map[string]any{
		"title":    ticket.Title,
		"priority": string(ticket.Priority),
	})
	s.recorder.publish(ctx, events.EventTicketCreated, ticket.ID, actor, events.TicketChangedPayload{Title: ticket.Title})
	return ticket, nil
}

// List returns tickets matching the filter, newest first.
func (s *TicketService) List(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		CustomerID: filter.CustomerID,
		AssigneeID: filter.AssigneeID,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		repoFilter.SearchTerm = &term
	}
	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

// Get loads a ticket with its notes, newest note first.
func (s *TicketService) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.notes != nil {
		notes, err := s.notes.ListByTicket(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("list notes: %w", err)
		}
		ticket.Notes = notes
	}
	return ticket, nil
}

// UpdateStatus moves a ticket to a new status. Entering a terminal status
// stamps the resolution time; leaving it clears the stamp.
func (s *TicketService) UpdateStatus(ctx context.Context, actor events.Actor, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := ticket.Status
	if previous == status {
		return ticket, nil
	}

	ticket.Status = status
	switch {
	case status.IsTerminal() && ticket.ResolvedAt == nil:
		now := s.now().UTC()
		ticket.ResolvedAt = &now
	case !status.IsTerminal():
		ticket.ResolvedAt = nil
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, fmt.Errorf("update ticket status: %w", err)
	}

	s.recorder.record(ctx, entityTicket, ticket.ID, domain.AuditStatusChanged, actor, map[string]any{
		"from": string(previous),
		"to":   string(status),
	})
	s.recorder.publish(ctx, events.EventTicketUpdated, ticket.ID, actor, events.TicketChangedPayload{
		Field:    "status",
		OldValue: string(previous),
		NewValue: string(status),
		Title:    ticket.Title,
	})
	return ticket, nil
}

// Assign sets or clears the ticket assignee.
func (s *TicketService) Assign(ctx context.Context, actor events.Actor, id string, assigneeID *string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if assigneeID != nil {
		if err := s.ensureAgent(ctx, *assigneeID); err != nil {
			return nil, err
		}
	}
	previous := derefString(ticket.AssigneeID)
	ticket.AssigneeID = assigneeID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, fmt.Errorf("assign ticket: %w", err)
	}

	s.recorder.record(ctx, entityTicket, ticket.ID, domain.AuditAssigneeChanged, actor, map[string]any{
		"from": previous,
		"to":   derefString(assigneeID),
	})
	s.recorder.publish(ctx, events.EventTicketUpdated, ticket.ID, actor, events.TicketChangedPayload{
		Field:    "assignee",
		OldValue: previous,
		NewValue: derefString(assigneeID),
		Title:    ticket.Title,
	})
	return ticket, nil
}

// UpdatePriority changes the ticket priority, which may change its SLA rule.
func (s *TicketService) UpdatePriority(ctx context.Context, actor events.Actor, id string, priority domain.TicketPriority) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := ticket.Priority
	if previous == priority {
		return ticket, nil
	}
	ticket.Priority = priority
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, fmt.Errorf("update ticket priority: %w", err)
	}

	s.recorder.record(ctx, entityTicket, ticket.ID, domain.AuditPriorityChanged, actor, map[string]any{
		"from": string(previous),
		"to":   string(priority),
	})
	s.recorder.publish(ctx, events.EventTicketUpdated, ticket.ID, actor, events.TicketChangedPayload{
		Field:    "priority",
		OldValue: string(previous),
		NewValue: string(priority),
		Title:    ticket.Title,
	})
	return ticket, nil
}

// AddNote appends an agent note to the ticket.
func (s *TicketService) AddNote(ctx context.Context, actor events.Actor, id, text string, internal bool) (*domain.Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("note text is required", map[string]any{"field": "text"})
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	note := &domain.Note{
		TicketID: id,
		Text:     text,
		Internal: internal,
		AuthorID: actor.ID,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("add note: %w", err)
	}
	s.recorder.publish(ctx, events.EventNoteAdded, id, actor, events.TicketChangedPayload{Field: "notes", NewValue: events.Preview(text)})
	return note, nil
}

// Delete removes a ticket. Only an explicit agent action reaches this.
func (s *TicketService) Delete(ctx context.Context, actor events.Actor, id string) error {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return fmt.Errorf("delete ticket: %w", err)
	}
	s.recorder.record(ctx, entityTicket, id, domain.AuditTicketDeleted, actor, map[string]any{"title": ticket.Title})
	s.recorder.publish(ctx, events.EventTicketDeleted, id, actor, events.TicketChangedPayload{Title: ticket.Title})
	return nil
}

func (s *TicketService) load(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, fmt.Errorf("load ticket: %w", err)
	}
	return ticket, nil
}

func (s *TicketService) ensureAgent(ctx context.Context, agentID string) error {
	if s.agents == nil {
		return nil
	}
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewValidationError("assignee does not exist", map[string]any{"assignee_id": agentID})
		}
		return fmt.Errorf("load assignee: %w", err)
	}
	if agent.Deleted {
		return apperrors.NewValidationError("assignee has been removed", map[string]any{"assignee_id": agentID})
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
