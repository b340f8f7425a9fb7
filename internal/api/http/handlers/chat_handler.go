package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/evaluator"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// ChatHandler serves the agent chat inbox.
type ChatHandler struct {
	service *service.ChatService
}

// NewChatHandler constructs handler.
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{service: chatService}
}

// ListSessions GET /chat/sessions?filter=&q=.
func (h *ChatHandler) ListSessions(c *fiber.Ctx) error {
	agent, _, err := currentAgent(c)
	if err != nil {
		return err
	}
	sessions, err := h.service.Inbox(c.UserContext(), agent.ID, service.InboxQuery{
		Mode:   evaluator.ParseInboxMode(c.Query("filter")),
		Search: c.Query("q"),
	})
	if err != nil {
		return err
	}
	items := make([]dto.ChatSessionResponse, 0, len(sessions))
	for i := range sessions {
		items = append(items, chatSessionResponse(&sessions[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListMessages GET /chat/sessions/:id/messages.
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	messages, err := h.service.Messages(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": chatMessageResponses(messages)})
}

// SendMessage POST /chat/sessions/:id/messages.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	agent, _, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.SendMessage(c.UserContext(), service.SendMessageInput{
		SessionID: c.Params("id"),
		Sender:    domain.SenderAgent,
		SenderID:  agent.ID,
		Content:   req.Content,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": sendMessageResponse(result)})
}

// EndSession POST /chat/sessions/:id/end.
func (h *ChatHandler) EndSession(c *fiber.Ctx) error {
	_, actor, err := currentAgent(c)
	if err != nil {
		return err
	}
	session, err := h.service.EndSession(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": chatSessionResponse(session)})
}

// DeleteSession DELETE /chat/sessions/:id.
func (h *ChatHandler) DeleteSession(c *fiber.Ctx) error {
	_, actor, err := currentAgent(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteSession(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SessionSLA GET /chat/sessions/:id/sla.
func (h *ChatHandler) SessionSLA(c *fiber.Ctx) error {
	status, err := h.service.ResponseSLA(c.UserContext(), c.Params("id"), nowFrom(c))
	if errors.Is(err, service.ErrNoSLA) {
		return c.JSON(fiber.Map{"data": nil})
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": slaStatusResponse(status)})
}

func chatSessionResponse(session *domain.ChatSession) dto.ChatSessionResponse {
	return dto.ChatSessionResponse{
		ID:                session.ID,
		CustomerID:        session.CustomerID,
		AgentID:           session.AgentID,
		TicketID:          session.TicketID,
		Status:            session.Status,
		StartedAt:         session.StartedAt,
		EndedAt:           session.EndedAt,
		LastMessage:       session.LastMessage,
		LastMessageAt:     session.LastMessageAt,
		LastMessageSender: session.LastMessageSender,
		Unreplied:         evaluator.IsUnreplied(*session),
	}
}

func chatMessageResponse(message *domain.ChatMessage) dto.ChatMessageResponse {
	return dto.ChatMessageResponse{
		ID:         message.ID,
		SessionID:  message.SessionID,
		SenderType: message.SenderType,
		Content:    message.Content,
		CreatedAt:  message.CreatedAt,
	}
}

func chatMessageResponses(messages []domain.ChatMessage) []dto.ChatMessageResponse {
	items := make([]dto.ChatMessageResponse, 0, len(messages))
	for i := range messages {
		items = append(items, chatMessageResponse(&messages[i]))
	}
	return items
}

func sendMessageResponse(result *service.SendResult) dto.SendMessageResponse {
	resp := dto.SendMessageResponse{
		Message:   chatMessageResponse(&result.Message),
		Persisted: result.Persisted,
	}
	if result.Session != nil {
		session := chatSessionResponse(result.Session)
		resp.Session = &session
	}
	return resp
}
