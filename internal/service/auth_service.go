package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	agents     repository.AgentRepository
	customers  repository.CustomerRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	AgentRepo    repository.AgentRepository
	CustomerRepo repository.CustomerRepository
	TokenManager *auth.TokenManager
}

// Session is an issued access token.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	tokens := deps.TokenManager
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes)
	}
	return &AuthService{
		agents:     deps.AgentRepo,
		customers:  deps.CustomerRepo,
		tokenMgr:   tokens,
		bcryptCost: cfg.BcryptCost,
	}
}

var errInvalidCredentials = apperrors.NewUnauthorized("invalid credentials")

// LoginAgent authenticates an employee or admin.
func (s *AuthService) LoginAgent(ctx context.Context, email, password string) (*domain.Agent, *Session, error) {
	agent, err := s.agents.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, errInvalidCredentials
		}
		return nil, nil, fmt.Errorf("lookup agent: %w", err)
	}
	if agent.Deleted {
		return nil, nil, errInvalidCredentials
	}
	if err := auth.ComparePassword(agent.PasswordHash, password); err != nil {
		return nil, nil, errInvalidCredentials
	}

	role := agent.Role
	session, err := s.issue(agent.ID, domain.SubjectTypeAgent, &role)
	if err != nil {
		return nil, nil, err
	}
	return agent, session, nil
}

// LoginCustomer authenticates a registered customer. Guest records created by
// the support widget have no password and cannot log in.
func (s *AuthService) LoginCustomer(ctx context.Context, email, password string) (*domain.Customer, *Session, error) {
	customer, err := s.customers.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, errInvalidCredentials
		}
		return nil, nil, fmt.Errorf("lookup customer: %w", err)
	}
	if err := auth.ComparePassword(customer.PasswordHash, password); err != nil {
		return nil, nil, errInvalidCredentials
	}
	session, err := s.issue(customer.ID, domain.SubjectTypeCustomer, nil)
	if err != nil {
		return nil, nil, err
	}
	return customer, session, nil
}

// RegisterCustomer creates a customer account. A guest record with the same
// email is upgraded in place so earlier tickets stay with the customer.
func (s *AuthService) RegisterCustomer(ctx context.Context, name, email, password string) (*domain.Customer, *Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || !emailPattern.MatchString(email) {
		return nil, nil, apperrors.NewValidationError("name and a valid email are required", nil)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, nil, apperrors.NewValidationError("password too short", map[string]any{"min_length": auth.MinPasswordLength})
		}
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	customer, err := s.customers.GetByEmail(ctx, email)
	switch {
	case err == nil && customer.PasswordHash != "":
		return nil, nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	case err == nil:
		if err := s.customers.SetPassword(ctx, customer.ID, hash); err != nil {
			return nil, nil, fmt.Errorf("upgrade guest customer: %w", err)
		}
		customer.PasswordHash = hash
	case apperrors.IsNotFound(err):
		customer = &domain.Customer{Name: name, Email: email, PasswordHash: hash}
		if err := s.customers.Create(ctx, customer); err != nil {
			return nil, nil, fmt.Errorf("create customer: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("lookup customer: %w", err)
	}

	session, err := s.issue(customer.ID, domain.SubjectTypeCustomer, nil)
	if err != nil {
		return nil, nil, err
	}
	return customer, session, nil
}

func (s *AuthService) issue(subjectID string, subject domain.SubjectType, role *domain.AgentRole) (*Session, error) {
	token, exp, err := s.tokenMgr.GenerateToken(subjectID, subject, role)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: exp}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
