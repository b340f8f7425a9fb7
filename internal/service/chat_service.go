package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/evaluator"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	entitySession = "chat_session"

	// EndOfChatMessage is the system message appended when an agent ends a chat.
	EndOfChatMessage = "Agent has ended the chat."
)

// ChatService serves the agent inbox. Sessions are held in a cache kept
// fresh by RefreshSessions; messages are read through to the store.
type ChatService struct {
	sessions repository.ChatSessionRepository
	messages repository.ChatMessageRepository
	tickets  repository.TicketRepository
	ticketSv *TicketService
	sla      *SLAService
	recorder recorder
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.RWMutex
	cache   []domain.ChatSession
	loaded  bool
	pending map[string][]domain.ChatMessage
}

// maxPendingPerSession bounds the unstored messages kept for one session; the
// oldest are dropped first.
const maxPendingPerSession = 50

// ChatDependencies bundles collaborators for the chat service.
type ChatDependencies struct {
	SessionRepo   repository.ChatSessionRepository
	MessageRepo   repository.ChatMessageRepository
	TicketRepo    repository.TicketRepository
	AuditRepo     repository.AuditRepository
	TicketService *TicketService
	SLAService    *SLAService
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Clock         func() time.Time
}

// InboxQuery narrows the inbox.
type InboxQuery struct {
	Mode   evaluator.InboxMode
	Search string
}

// SendMessageInput is one message typed into a session.
type SendMessageInput struct {
	SessionID string
	Sender    domain.SenderType
	SenderID  string
	Content   string
}

// SendResult reports the appended message. Persisted is false when the store
// rejected the insert; the message stays in the local transcript.
type SendResult struct {
	Message   domain.ChatMessage
	Session   *domain.ChatSession
	Persisted bool
}

// NewChatService constructs the service.
func NewChatService(deps ChatDependencies) *ChatService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ChatService{
		sessions: deps.SessionRepo,
		messages: deps.MessageRepo,
		tickets:  deps.TicketRepo,
		ticketSv: deps.TicketService,
		sla:      deps.SLAService,
		recorder: newRecorder(deps.AuditRepo, deps.Dispatcher, logger, clock),
		logger:   logger,
		now:      clock,
		pending:  make(map[string][]domain.ChatMessage),
	}
}

// RefreshSessions reloads the session cache from the store. On failure the
// previous cache is kept.
func (s *ChatService) RefreshSessions(ctx context.Context) error {
	sessions, err := s.sessions.List(ctx, repository.ChatSessionFilter{})
	if err != nil {
		return fmt.Errorf("list chat sessions: %w", err)
	}
	s.mu.Lock()
	s.cache = sessions
	s.loaded = true
	s.prunePendingLocked(sessions)
	s.mu.Unlock()
	return nil
}

// prunePendingLocked forgets unstored messages of sessions that were closed
// or no longer exist.
func (s *ChatService) prunePendingLocked(sessions []domain.ChatSession) {
	open := make(map[string]bool, len(sessions))
	for i := range sessions {
		if sessions[i].Status != domain.SessionStatusClosed {
			open[sessions[i].ID] = true
		}
	}
	for id := range s.pending {
		if !open[id] {
			delete(s.pending, id)
		}
	}
}

// Inbox returns the cached sessions filtered and ordered for currentUserID.
func (s *ChatService) Inbox(ctx context.Context, currentUserID string, query InboxQuery) ([]domain.ChatSession, error) {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		if err := s.RefreshSessions(ctx); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	snapshot := make([]domain.ChatSession, len(s.cache))
	copy(snapshot, s.cache)
	s.mu.RUnlock()

	return evaluator.Inbox(snapshot, evaluator.SessionFilter{
		Search:        query.Search,
		Mode:          query.Mode,
		CurrentUserID: currentUserID,
	}), nil
}

// Session loads one session from the store.
func (s *ChatService) Session(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("chat session", map[string]any{"id": sessionID})
		}
		return nil, fmt.Errorf("load chat session: %w", err)
	}
	return session, nil
}

// Messages returns the transcript oldest first, including messages appended
// locally that the store has not accepted.
func (s *ChatService) Messages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	stored, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}

	s.mu.RLock()
	local := append([]domain.ChatMessage(nil), s.pending[sessionID]...)
	s.mu.RUnlock()
	if len(local) == 0 {
		return stored, nil
	}

	seen := make(map[string]struct{}, len(stored))
	for _, m := range stored {
		seen[m.ID] = struct{}{}
	}
	merged := append([]domain.ChatMessage(nil), stored...)
	for _, m := range local {
		if _, ok := seen[m.ID]; !ok {
			merged = append(merged, m)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	return merged, nil
}

// SendMessage appends a message to a session. The message is added to the
// local transcript before the store insert and is not rolled back when the
// insert fails. An agent reply claims an unassigned session, activates it and
// moves the linked ticket from Open to In Progress.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendResult, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("message content is required", map[string]any{"field": "content"})
	}
	session, err := s.Session(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.SessionStatusClosed {
		return nil, apperrors.NewConflict("chat session is closed", map[string]any{"id": session.ID})
	}

	message := domain.ChatMessage{
		ID:         uuid.NewString(),
		SessionID:  session.ID,
		SenderType: input.Sender,
		Content:    content,
		CreatedAt:  s.now().UTC(),
	}
	s.appendLocal(message)

	result := &SendResult{Message: message, Session: session}
	if err := s.messages.Create(ctx, &message); err != nil {
		s.logger.Warn("chat message not persisted",
			zap.String("session_id", session.ID),
			zap.String("message_id", message.ID),
			zap.Error(err))
		return result, nil
	}
	result.Persisted = true
	s.dropLocal(session.ID, message.ID)

	if input.Sender == domain.SenderAgent {
		if session.AgentID == nil && input.SenderID != "" {
			agentID := input.SenderID
			session.AgentID = &agentID
		}
		s.startTicketWork(ctx, session, input.SenderID)
	}

	session.Status = evaluator.NextSessionStatus(session.Status, input.Sender, false)
	session.LastMessage = content
	session.LastMessageAt = &message.CreatedAt
	session.LastMessageSender = input.Sender
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("update chat session: %w", err)
	}
	s.upsertCached(*session)

	actor := messageActor(input.Sender, input.SenderID)
	s.recorder.publish(ctx, events.EventMessageAdded, session.ID, actor, events.MessageAddedPayload{
		SessionID:   session.ID,
		MessageID:   message.ID,
		SenderType:  message.SenderType,
		BodyPreview: events.Preview(content),
	})
	s.recorder.publish(ctx, events.EventSessionUpdated, session.ID, actor, nil)
	return result, nil
}

// startTicketWork links the session to its ticket and moves an open ticket to
// In Progress. Failures are logged; the reply itself already succeeded.
func (s *ChatService) startTicketWork(ctx context.Context, session *domain.ChatSession, agentID string) {
	ticket, err := s.LinkedTicket(ctx, session)
	if err != nil {
		s.logger.Warn("resolve linked ticket failed", zap.String("session_id", session.ID), zap.Error(err))
		return
	}
	if ticket == nil {
		return
	}
	if session.TicketID == nil {
		id := ticket.ID
		session.TicketID = &id
	}
	if ticket.Status != domain.TicketStatusOpen || s.ticketSv == nil {
		return
	}
	if _, err := s.ticketSv.UpdateStatus(ctx, AgentActor(agentID), ticket.ID, domain.TicketStatusInProgress); err != nil {
		s.logger.Warn("ticket auto-transition failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

// LinkedTicket resolves the ticket a session belongs to: the explicit link
// when present, otherwise the customer's most recent open ticket. It returns
// nil without error when there is none.
func (s *ChatService) LinkedTicket(ctx context.Context, session *domain.ChatSession) (*domain.Ticket, error) {
	if s.tickets == nil {
		return nil, nil
	}
	var (
		ticket *domain.Ticket
		err    error
	)
	switch {
	case session.TicketID != nil:
		ticket, err = s.tickets.GetByID(ctx, *session.TicketID)
	case session.CustomerID != "":
		ticket, err = s.tickets.LatestOpenForCustomer(ctx, session.CustomerID)
	default:
		return nil, nil
	}
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return ticket, nil
}

// EndSession closes a session with a system message and resolves its ticket.
// Ending a closed session returns it unchanged.
func (s *ChatService) EndSession(ctx context.Context, actor events.Actor, sessionID string) (*domain.ChatSession, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.SessionStatusClosed {
		return session, nil
	}

	now := s.now().UTC()
	message := domain.ChatMessage{
		ID:         uuid.NewString(),
		SessionID:  session.ID,
		SenderType: domain.SenderSystem,
		Content:    EndOfChatMessage,
		CreatedAt:  now,
	}
	if err := s.messages.Create(ctx, &message); err != nil {
		return nil, fmt.Errorf("append end-of-chat message: %w", err)
	}

	ticket, err := s.LinkedTicket(ctx, session)
	if err != nil {
		s.logger.Warn("resolve linked ticket failed", zap.String("session_id", session.ID), zap.Error(err))
	}
	if ticket != nil && session.TicketID == nil {
		id := ticket.ID
		session.TicketID = &id
	}

	session.Status = evaluator.NextSessionStatus(session.Status, domain.SenderSystem, true)
	session.EndedAt = &now
	session.LastMessage = message.Content
	session.LastMessageAt = &message.CreatedAt
	session.LastMessageSender = domain.SenderSystem
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("close chat session: %w", err)
	}
	s.upsertCached(*session)
	s.mu.Lock()
	delete(s.pending, session.ID)
	s.mu.Unlock()

	if ticket != nil && !ticket.Status.IsTerminal() && s.ticketSv != nil {
		if _, err := s.ticketSv.UpdateStatus(ctx, actor, ticket.ID, domain.TicketStatusResolved); err != nil {
			s.logger.Warn("resolve ticket on chat end failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	s.recorder.record(ctx, entitySession, session.ID, domain.AuditSessionEnded, actor, nil)
	s.recorder.publish(ctx, events.EventSessionUpdated, session.ID, actor, nil)
	return session, nil
}

// DeleteSession removes a session. The cached list only drops the session
// after the store confirmed the deletion.
func (s *ChatService) DeleteSession(ctx context.Context, actor events.Actor, sessionID string) error {
	s.mu.RLock()
	intent, cached := evaluator.PlanSessionDelete(s.cache, sessionID)
	s.mu.RUnlock()
	if !cached {
		intent = evaluator.DeleteIntent{SessionID: sessionID, Index: -1}
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("chat session", map[string]any{"id": sessionID})
		}
		return fmt.Errorf("delete chat session: %w", err)
	}

	s.mu.Lock()
	s.cache = evaluator.ApplyDelete(s.cache, intent)
	delete(s.pending, sessionID)
	s.mu.Unlock()

	s.recorder.record(ctx, entitySession, sessionID, domain.AuditSessionDeleted, actor, nil)
	s.recorder.publish(ctx, events.EventSessionDeleted, sessionID, actor, nil)
	return nil
}

// ResponseSLA evaluates the first-response countdown for a session, or
// returns ErrNoSLA.
func (s *ChatService) ResponseSLA(ctx context.Context, sessionID string, now time.Time) (*evaluator.SLAStatus, error) {
	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ticket, err := s.LinkedTicket(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("resolve linked ticket: %w", err)
	}
	return s.sla.EvaluateSession(ctx, *session, ticket, now)
}

func (s *ChatService) appendLocal(message domain.ChatMessage) {
	s.mu.Lock()
	list := append(s.pending[message.SessionID], message)
	if len(list) > maxPendingPerSession {
		list = list[len(list)-maxPendingPerSession:]
	}
	s.pending[message.SessionID] = list
	s.mu.Unlock()
}

func (s *ChatService) dropLocal(sessionID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.pending[sessionID]
	for i := range list {
		if list[i].ID == messageID {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.pending, sessionID)
		return
	}
	s.pending[sessionID] = list
}

func (s *ChatService) upsertCached(session domain.ChatSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return
	}
	for i := range s.cache {
		if s.cache[i].ID == session.ID {
			s.cache[i] = session
			return
		}
	}
	s.cache = append(s.cache, session)
}

func messageActor(sender domain.SenderType, senderID string) events.Actor {
	if sender == domain.SenderAgent {
		return AgentActor(senderID)
	}
	return CustomerActor(senderID)
}
