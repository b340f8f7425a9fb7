package service

import (
	"context"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func newAuthService(t *testing.T, agents *fakeAgentRepo, customers *fakeCustomerRepo) (*AuthService, *auth.TokenManager) {
	t.Helper()
	tokens := auth.NewTokenManager("test-secret", 15)
	svc := NewAuthService(config.AuthConfig{BcryptCost: 4}, AuthDependencies{
		AgentRepo:    agents,
		CustomerRepo: customers,
		TokenManager: tokens,
	})
	return svc, tokens
}

func TestLoginAgent(t *testing.T) {
	hash, err := auth.HashPassword("correct-horse", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	agents := newFakeAgentRepo(domain.Agent{ID: "a1", Email: "ops@example.com", PasswordHash: hash, Role: domain.AgentRoleAdmin})
	svc, tokens := newAuthService(t, agents, newFakeCustomerRepo())
	ctx := context.Background()

	if _, _, err := svc.LoginAgent(ctx, "ops@example.com", "wrong-password"); errorCode(err) != "UNAUTHORIZED" {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, _, err := svc.LoginAgent(ctx, "nobody@example.com", "correct-horse"); errorCode(err) != "UNAUTHORIZED" {
		t.Fatalf("unknown email should look like a bad password, got %v", err)
	}

	agent, session, err := svc.LoginAgent(ctx, " OPS@example.com ", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := tokens.ParseToken(session.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.SubjectID != agent.ID || claims.Subject != domain.SubjectTypeAgent || claims.Role == nil || *claims.Role != domain.AgentRoleAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestRegisterCustomerUpgradesGuest(t *testing.T) {
	customers := newFakeCustomerRepo(domain.Customer{ID: "guest", Name: GuestCustomerName, Email: "jane@example.com"})
	svc, _ := newAuthService(t, newFakeAgentRepo(), customers)
	ctx := context.Background()

	if _, _, err := svc.LoginCustomer(ctx, "jane@example.com", ""); errorCode(err) != "UNAUTHORIZED" {
		t.Fatalf("guests must not log in, got %v", err)
	}

	customer, session, err := svc.RegisterCustomer(ctx, "Jane", "jane@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if customer.ID != "guest" || session.Token == "" {
		t.Fatalf("expected guest record to be upgraded, got %+v", customer)
	}
	if _, _, err := svc.RegisterCustomer(ctx, "Jane", "jane@example.com", "s3cret-pass"); errorCode(err) != "CONFLICT" {
		t.Fatalf("expected conflict on second registration, got %v", err)
	}
	if _, _, err := svc.LoginCustomer(ctx, "jane@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("login after register: %v", err)
	}

	fresh, _, err := svc.RegisterCustomer(ctx, "Max", "max@example.com", "another-pass")
	if err != nil || fresh.ID == "guest" {
		t.Fatalf("register new: %v %+v", err, fresh)
	}
	if _, _, err := svc.RegisterCustomer(ctx, "Short", "short@example.com", "abc"); errorCode(err) != "VALIDATION_FAILED" {
		t.Fatalf("expected weak password rejection, got %v", err)
	}
}
