package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

type agentLookup map[string]*domain.Agent

func (l agentLookup) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	if a, ok := l[id]; ok {
		return a, nil
	}
	return nil, pgx.ErrNoRows
}

type customerLookup map[string]*domain.Customer

func (l customerLookup) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	if c, ok := l[id]; ok {
		return c, nil
	}
	return nil, pgx.ErrNoRows
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	role := domain.AgentRoleAdmin
	token, exp, err := tm.GenerateToken("a1", domain.SubjectTypeAgent, &role)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if exp.IsZero() {
		t.Fatalf("expected expiry")
	}
	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.SubjectID != "a1" || claims.Subject != domain.SubjectTypeAgent || *claims.Role != domain.AgentRoleAdmin || claims.ID == "" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := NewTokenManager("other", 5).ParseToken(token); err == nil {
		t.Fatalf("token signed with another secret must be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	if _, err := HashPassword("short", 4); err != ErrWeakPassword {
		t.Fatalf("expected weak password error, got %v", err)
	}
	hash, err := HashPassword("long-enough", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if ComparePassword(hash, "long-enough") != nil {
		t.Fatalf("password should match")
	}
	if ComparePassword(hash, "wrong") == nil || ComparePassword("", "") == nil {
		t.Fatalf("mismatch expected")
	}
}

func newTestApp(tm *TokenManager) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		de := apperrors.ToDomainError(err)
		return c.Status(de.HTTPStatus).SendString(de.Code)
	}})
	mw := NewAuthMiddleware(tm,
		agentLookup{
			"admin": {ID: "admin", Role: domain.AgentRoleAdmin},
			"emp":   {ID: "emp", Role: domain.AgentRoleEmployee},
		},
		customerLookup{"cust": {ID: "cust"}},
	)
	ok := func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.ID())
	}
	app.Get("/any", mw.Handle, RequireAnyRole(), ok)
	app.Get("/agents", mw.Handle, RequireAgentRole(), ok)
	app.Get("/admin", mw.Handle, RequireAgentRole(domain.AgentRoleAdmin), ok)
	app.Get("/customer", mw.Handle, RequireCustomer(), ok)
	return app
}

func TestMiddlewareAndRoles(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	admin := domain.AgentRoleAdmin
	employee := domain.AgentRoleEmployee
	adminToken, _, _ := tm.GenerateToken("admin", domain.SubjectTypeAgent, &admin)
	empToken, _, _ := tm.GenerateToken("emp", domain.SubjectTypeAgent, &employee)
	custToken, _, _ := tm.GenerateToken("cust", domain.SubjectTypeCustomer, nil)
	ghostToken, _, _ := tm.GenerateToken("ghost", domain.SubjectTypeCustomer, nil)

	app := newTestApp(tm)
	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing header", "/any", "", http.StatusUnauthorized},
		{"malformed header", "/any", "Token abc", http.StatusUnauthorized},
		{"garbage token", "/any", "Bearer abc", http.StatusUnauthorized},
		{"unknown subject", "/any", "Bearer " + ghostToken, http.StatusUnauthorized},
		{"customer any", "/any", "Bearer " + custToken, http.StatusOK},
		{"employee agents", "/agents", "Bearer " + empToken, http.StatusOK},
		{"customer agents", "/agents", "Bearer " + custToken, http.StatusForbidden},
		{"employee admin", "/admin", "Bearer " + empToken, http.StatusForbidden},
		{"admin admin", "/admin", "Bearer " + adminToken, http.StatusOK},
		{"agent customer", "/customer", "Bearer " + adminToken, http.StatusForbidden},
		{"customer customer", "/customer", "Bearer " + custToken, http.StatusOK},
	}
	for _, tt := range cases {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if resp.StatusCode != tt.want {
			t.Fatalf("%s: status %d, want %d", tt.name, resp.StatusCode, tt.want)
		}
	}
}

func TestMiddlewareAcceptsQueryToken(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	role := domain.AgentRoleEmployee
	token, _, _ := tm.GenerateToken("emp", domain.SubjectTypeAgent, &role)

	resp, err := newTestApp(tm).Test(httptest.NewRequest(http.MethodGet, "/agents?access_token="+token, nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}
