package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// SupportHandler serves the anonymous support widget.
type SupportHandler struct {
	service *service.SupportService
}

// NewSupportHandler constructs handler.
func NewSupportHandler(supportService *service.SupportService) *SupportHandler {
	return &SupportHandler{service: supportService}
}

// StartSession POST /support/sessions.
func (h *SupportHandler) StartSession(c *fiber.Ctx) error {
	session, err := h.service.StartSession(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": chatSessionResponse(session)})
}

// PostMessage POST /support/sessions/:id/messages.
func (h *SupportHandler) PostMessage(c *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.PostMessage(c.UserContext(), c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": sendMessageResponse(result)})
}

// SubmitIssue POST /support/sessions/:id/issue.
func (h *SupportHandler) SubmitIssue(c *fiber.Ctx) error {
	var req dto.SubmitIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	receipt, err := h.service.SubmitIssue(c.UserContext(), c.Params("id"), req.Description, req.Email)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.IssueReceiptResponse{
		Message:  receipt.Message,
		TicketID: receipt.Ticket.ID,
		Ticket:   ticketSummary(receipt.Ticket),
		Session:  chatSessionResponse(receipt.Session),
	}})
}

// TicketStatus GET /support/tickets/:id.
func (h *SupportHandler) TicketStatus(c *fiber.Ctx) error {
	view, err := h.service.TicketStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketStatusResponse{
		Ticket:     ticketSummary(view.Ticket),
		SessionID:  view.SessionID,
		Transcript: chatMessageResponses(view.Transcript),
	}})
}
