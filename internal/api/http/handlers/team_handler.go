package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/evaluator"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TeamHandler manages the agent roster.
type TeamHandler struct {
	service *service.TeamService
}

// NewTeamHandler constructs handler.
func NewTeamHandler(teamService *service.TeamService) *TeamHandler {
	return &TeamHandler{service: teamService}
}

// List GET /team?q=&sort=name|status.
func (h *TeamHandler) List(c *fiber.Ctx) error {
	sortBy := evaluator.SortByName
	if c.Query("sort") == string(evaluator.SortByStatus) {
		sortBy = evaluator.SortByStatus
	}
	agents, err := h.service.ListAgents(c.UserContext(), c.Query("q"), sortBy, time.Now())
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for _, view := range agents {
		items = append(items, agentResponse(view.Agent, view.Online))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddEmployee POST /team.
func (h *TeamHandler) AddEmployee(c *fiber.Ctx) error {
	_, actor, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.CreateEmployeeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	agent, err := h.service.AddEmployee(c.UserContext(), actor, service.NewEmployeeInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.ParseAgentRole(req.Role),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": agentResponse(*agent, false)})
}

// DeleteEmployee DELETE /team/:id.
func (h *TeamHandler) DeleteEmployee(c *fiber.Ctx) error {
	_, actor, err := currentAgent(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteEmployee(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Heartbeat POST /team/heartbeat marks the caller as online.
func (h *TeamHandler) Heartbeat(c *fiber.Ctx) error {
	agent, _, err := currentAgent(c)
	if err != nil {
		return err
	}
	h.service.Heartbeat(c.UserContext(), agent.ID, time.Now())
	return c.SendStatus(fiber.StatusNoContent)
}

func agentResponse(agent domain.Agent, online bool) dto.AgentResponse {
	return dto.AgentResponse{
		ID:       agent.ID,
		Name:     agent.Name,
		Email:    agent.Email,
		Role:     agent.Role,
		LastSeen: agent.LastSeen,
		Online:   online,
	}
}
