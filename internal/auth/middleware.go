package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	principalKey = "auth_principal"
	// PrincipalIDKey holds the caller id for request logging.
	PrincipalIDKey = "principal_id"
)

// AgentLookup loads agents by id.
type AgentLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
}

// CustomerLookup loads customers by id.
type CustomerLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
}

// Principal represents the authenticated caller.
type Principal struct {
	SubjectType domain.SubjectType
	Agent       *domain.Agent
	Customer    *domain.Customer
}

// ID returns the caller's agent or customer id.
func (p *Principal) ID() string {
	switch {
	case p == nil:
		return ""
	case p.Agent != nil:
		return p.Agent.ID
	case p.Customer != nil:
		return p.Customer.ID
	default:
		return ""
	}
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens    *TokenManager
	agents    AgentLookup
	customers CustomerLookup
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, agents AgentLookup, customers CustomerLookup) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, agents: agents, customers: customers}
}

// Handle enforces authentication for protected routes. Websocket clients
// cannot set headers, so an access_token query parameter is accepted too.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	raw, err := bearerToken(c)
	if err != nil {
		return err
	}

	claims, err := m.tokens.ParseToken(raw)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal := &Principal{SubjectType: claims.Subject}
	ctx := c.UserContext()

	switch claims.Subject {
	case domain.SubjectTypeAgent:
		agent, err := m.agents.GetByID(ctx, claims.SubjectID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewUnauthorized("agent not found")
			}
			return apperrors.MapError(err)
		}
		principal.Agent = agent
	case domain.SubjectTypeCustomer:
		customer, err := m.customers.GetByID(ctx, claims.SubjectID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewUnauthorized("customer not found")
			}
			return apperrors.MapError(err)
		}
		principal.Customer = customer
	default:
		return apperrors.NewUnauthorized("unknown subject")
	}

	c.Locals(principalKey, principal)
	c.Locals(PrincipalIDKey, principal.ID())
	return c.Next()
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		if token := c.Query("access_token"); token != "" {
			return token, nil
		}
		return "", apperrors.NewUnauthorized("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// WithPrincipal stores a principal on the request. Tests use it to skip token handling.
func WithPrincipal(c *fiber.Ctx, principal *Principal) {
	c.Locals(principalKey, principal)
	c.Locals(PrincipalIDKey, principal.ID())
}
