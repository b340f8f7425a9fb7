package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AuthHandler handles agent and customer authentication.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// AgentLogin POST /auth/agents/login.
func (h *AuthHandler) AgentLogin(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	agent, session, err := h.service.LoginAgent(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Subject:   string(domain.SubjectTypeAgent),
		SubjectID: agent.ID,
		Name:      agent.Name,
		Role:      string(agent.Role),
	}})
}

// CustomerRegister POST /auth/customers/register.
func (h *AuthHandler) CustomerRegister(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return apperrors.NewValidationError("name, email and password required", nil)
	}
	customer, session, err := h.service.RegisterCustomer(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": customerAuthResponse(customer, session)})
}

// CustomerLogin POST /auth/customers/login.
func (h *AuthHandler) CustomerLogin(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	customer, session, err := h.service.LoginCustomer(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": customerAuthResponse(customer, session)})
}

func customerAuthResponse(customer *domain.Customer, session *service.Session) dto.AuthResponse {
	return dto.AuthResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Subject:   string(domain.SubjectTypeCustomer),
		SubjectID: customer.ID,
		Name:      customer.Name,
	}
}

// Me GET /auth/me returns the authenticated caller.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	resp := fiber.Map{"subject": principal.SubjectType, "subject_id": principal.ID()}
	switch {
	case principal.Agent != nil:
		resp["name"] = principal.Agent.Name
		resp["email"] = principal.Agent.Email
		resp["role"] = principal.Agent.Role
	case principal.Customer != nil:
		resp["name"] = principal.Customer.Name
		resp["email"] = principal.Customer.Email
	}
	return c.JSON(fiber.Map{"data": resp})
}
