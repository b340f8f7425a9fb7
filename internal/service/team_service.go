package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/evaluator"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const entityAgent = "agent"

// TeamService manages support employees and their presence.
type TeamService struct {
	agents     repository.AgentRepository
	recorder   recorder
	window     time.Duration
	bcryptCost int
	logger     *zap.Logger
}

// TeamDependencies bundles collaborators for the team service.
type TeamDependencies struct {
	AgentRepo      repository.AgentRepository
	AuditRepo      repository.AuditRepository
	Dispatcher     events.Dispatcher
	PresenceWindow time.Duration
	BcryptCost     int
	Logger         *zap.Logger
}

// AgentView is an agent with its computed presence.
type AgentView struct {
	Agent  domain.Agent
	Online bool
}

// NewEmployeeInput is the payload for adding an employee.
type NewEmployeeInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.AgentRole
}

// NewTeamService constructs the service.
func NewTeamService(deps TeamDependencies) *TeamService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	window := deps.PresenceWindow
	if window <= 0 {
		window = evaluator.DefaultPresenceWindow
	}
	return &TeamService{
		agents:     deps.AgentRepo,
		recorder:   newRecorder(deps.AuditRepo, deps.Dispatcher, logger, nil),
		window:     window,
		bcryptCost: deps.BcryptCost,
		logger:     logger,
	}
}

// ListAgents returns agents matching query, ordered by name or by presence.
func (s *TeamService) ListAgents(ctx context.Context, query string, sortBy evaluator.AgentSort, now time.Time) ([]AgentView, error) {
	agents, err := s.agents.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	agents = evaluator.FilterAgents(agents, query)
	evaluator.SortAgents(agents, sortBy, now, s.window)

	views := make([]AgentView, 0, len(agents))
	for _, a := range agents {
		views = append(views, AgentView{Agent: a, Online: evaluator.IsOnline(a.LastSeen, now, s.window)})
	}
	return views, nil
}

// AddEmployee creates an agent account.
func (s *TeamService) AddEmployee(ctx context.Context, actor events.Actor, input NewEmployeeInput) (*domain.Agent, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	details := map[string]any{}
	if name == "" {
		details["name"] = "required"
	}
	if !emailPattern.MatchString(email) {
		details["email"] = "invalid"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid employee", details)
	}

	if _, err := s.agents.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("lookup agent: %w", err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, apperrors.NewValidationError("password too short", map[string]any{"min_length": auth.MinPasswordLength})
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := input.Role
	if role == "" {
		role = domain.AgentRoleEmployee
	}
	agent := &domain.Agent{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}

	s.recorder.record(ctx, entityAgent, agent.ID, domain.AuditEmployeeAdded, actor, map[string]any{"role": string(role)})
	s.recorder.publish(ctx, events.EventAgentChanged, agent.ID, actor, nil)
	return agent, nil
}

// DeleteEmployee soft-deletes an agent. Agents cannot remove themselves.
func (s *TeamService) DeleteEmployee(ctx context.Context, actor events.Actor, agentID string) error {
	if actor.ID != nil && *actor.ID == agentID {
		return apperrors.NewConflict("cannot remove your own account", map[string]any{"id": agentID})
	}
	if err := s.agents.SoftDelete(ctx, agentID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("agent", map[string]any{"id": agentID})
		}
		return fmt.Errorf("delete agent: %w", err)
	}
	s.recorder.record(ctx, entityAgent, agentID, domain.AuditEmployeeRemoved, actor, nil)
	s.recorder.publish(ctx, events.EventAgentChanged, agentID, actor, nil)
	return nil
}

// Heartbeat records that the agent is active. Failures are logged and never
// reach the caller.
func (s *TeamService) Heartbeat(ctx context.Context, agentID string, at time.Time) {
	if err := s.agents.TouchLastSeen(ctx, agentID, at.UTC()); err != nil {
		s.logger.Warn("heartbeat not recorded", zap.String("agent_id", agentID), zap.Error(err))
	}
}
