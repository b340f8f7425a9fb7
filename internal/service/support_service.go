package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Bot lines used by the support widget.
const (
	BotWelcomeMessage = "Welcome to Support! I can help you create a support ticket. Please briefly describe your issue."
	BotSuccessMessage = "Success! Your ticket has been created:"
	GuestCustomerName = "Guest Customer"
)

// BotFollowUps acknowledge customer messages posted after the ticket was
// filed and before an agent joined. Replies rotate through the list.
var BotFollowUps = []string{
	"I've noted that! Is there anything specific you'd like to add to your ticket?",
	"Got it! Feel free to share more details if needed.",
	"Thanks for letting me know! Anything else on your mind?",
	"Noted! Our team will review this along with your ticket.",
	"I hear you! Is there anything else I can help clarify?",
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// SupportService runs the customer-facing support widget: a bot greets the
// visitor, collects an issue and an email, and files a ticket.
type SupportService struct {
	sessions  repository.ChatSessionRepository
	customers repository.CustomerRepository
	tickets   *TicketService
	chat      *ChatService
	recorder  recorder
	logger    *zap.Logger
	followUps atomic.Uint64
}

// SupportDependencies bundles collaborators for the support service.
type SupportDependencies struct {
	SessionRepo   repository.ChatSessionRepository
	CustomerRepo  repository.CustomerRepository
	TicketService *TicketService
	ChatService   *ChatService
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// IssueReceipt is returned once the widget filed a ticket.
type IssueReceipt struct {
	Ticket   *domain.Ticket
	Customer *domain.Customer
	Session  *domain.ChatSession
	Message  string
}

// TicketStatusView is what a customer sees when checking a ticket.
type TicketStatusView struct {
	Ticket     *domain.Ticket
	SessionID  string
	Transcript []domain.ChatMessage
}

// NewSupportService constructs the service.
func NewSupportService(deps SupportDependencies) *SupportService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupportService{
		sessions:  deps.SessionRepo,
		customers: deps.CustomerRepo,
		tickets:   deps.TicketService,
		chat:      deps.ChatService,
		recorder:  newRecorder(nil, deps.Dispatcher, logger, nil),
		logger:    logger,
	}
}

// StartSession opens a waiting session for an anonymous visitor and posts the
// bot welcome.
func (s *SupportService) StartSession(ctx context.Context) (*domain.ChatSession, error) {
	session := &domain.ChatSession{Status: domain.SessionStatusWaiting}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create chat session: %w", err)
	}
	s.recorder.publish(ctx, events.EventSessionCreated, session.ID, CustomerActor(""), nil)

	result, err := s.chat.SendMessage(ctx, SendMessageInput{
		SessionID: session.ID,
		Sender:    domain.SenderBot,
		Content:   BotWelcomeMessage,
	})
	if err != nil {
		s.logger.Warn("bot welcome failed", zap.String("session_id", session.ID), zap.Error(err))
		return session, nil
	}
	return result.Session, nil
}

// PostMessage appends a visitor message to their session. Once a ticket is
// filed and until an agent joins, the bot acknowledges each message.
func (s *SupportService) PostMessage(ctx context.Context, sessionID, content string) (*SendResult, error) {
	session, err := s.chat.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	result, err := s.chat.SendMessage(ctx, SendMessageInput{
		SessionID: session.ID,
		Sender:    domain.SenderCustomer,
		SenderID:  session.CustomerID,
		Content:   content,
	})
	if err != nil {
		return nil, err
	}
	current := session
	if result.Session != nil {
		current = result.Session
	}
	if current.TicketID == nil || current.AgentID != nil {
		return result, nil
	}
	if _, err := s.chat.SendMessage(ctx, SendMessageInput{
		SessionID: session.ID,
		Sender:    domain.SenderBot,
		Content:   s.nextFollowUp(),
	}); err != nil {
		s.logger.Warn("bot follow-up failed", zap.String("session_id", session.ID), zap.Error(err))
	}
	return result, nil
}

func (s *SupportService) nextFollowUp() string {
	n := s.followUps.Add(1) - 1
	return BotFollowUps[n%uint64(len(BotFollowUps))]
}

// SubmitIssue files a low priority ticket for the visitor, reusing the
// customer with the same email or creating a guest record, and links the
// session to the ticket.
func (s *SupportService) SubmitIssue(ctx context.Context, sessionID, description, email string) (*IssueReceipt, error) {
	description = strings.TrimSpace(description)
	email = strings.ToLower(strings.TrimSpace(email))
	if description == "" {
		return nil, apperrors.NewValidationError("please describe your issue", map[string]any{"field": "description"})
	}
	if !emailPattern.MatchString(email) {
		return nil, apperrors.NewValidationError("that doesn't look like a valid email", map[string]any{"field": "email"})
	}

	session, err := s.chat.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	customer, err := s.findOrCreateCustomer(ctx, email)
	if err != nil {
		return nil, err
	}

	ticket, err := s.tickets.Create(ctx, CustomerActor(customer.ID), TicketCreateInput{
		CustomerID:  customer.ID,
		Title:       description,
		Description: description,
		Priority:    domain.TicketPriorityLow,
	})
	if err != nil {
		return nil, err
	}

	session.CustomerID = customer.ID
	ticketID := ticket.ID
	session.TicketID = &ticketID
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("link chat session: %w", err)
	}
	s.recorder.publish(ctx, events.EventSessionUpdated, session.ID, CustomerActor(customer.ID), nil)

	receipt := &IssueReceipt{Ticket: ticket, Customer: customer, Session: session, Message: BotSuccessMessage}
	result, err := s.chat.SendMessage(ctx, SendMessageInput{
		SessionID: session.ID,
		Sender:    domain.SenderBot,
		Content:   BotSuccessMessage + " " + ticket.ID,
	})
	if err != nil {
		s.logger.Warn("bot confirmation failed", zap.String("session_id", session.ID), zap.Error(err))
		return receipt, nil
	}
	receipt.Session = result.Session
	return receipt, nil
}

func (s *SupportService) findOrCreateCustomer(ctx context.Context, email string) (*domain.Customer, error) {
	customer, err := s.customers.GetByEmail(ctx, email)
	if err == nil {
		return customer, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("lookup customer: %w", err)
	}
	customer = &domain.Customer{Name: GuestCustomerName, Email: email}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("create guest customer: %w", err)
	}
	return customer, nil
}

// TicketStatus returns a ticket with the transcript of the session linked to it.
func (s *SupportService) TicketStatus(ctx context.Context, ticketID string) (*TicketStatusView, error) {
	ticket, err := s.tickets.load(ctx, strings.TrimSpace(ticketID))
	if err != nil {
		return nil, err
	}
	view := &TicketStatusView{Ticket: ticket}

	sessions, err := s.sessions.List(ctx, repository.ChatSessionFilter{TicketID: &ticket.ID, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("list ticket sessions: %w", err)
	}
	if len(sessions) == 0 {
		return view, nil
	}
	view.SessionID = sessions[0].ID
	transcript, err := s.chat.Messages(ctx, sessions[0].ID)
	if err != nil {
		return nil, err
	}
	view.Transcript = transcript
	return view, nil
}
