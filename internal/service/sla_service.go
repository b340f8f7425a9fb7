package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/evaluator"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/report"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const entityRule = "sla_rule"

// ErrNoSLA reports that no rule applies. It is an answer, not a failure.
var ErrNoSLA = errors.New("no sla rule applies")

// SLAService manages rules and evaluates tickets and sessions against them.
type SLAService struct {
	rules     repository.SLARuleRepository
	tickets   repository.TicketRepository
	evaluator *evaluator.Evaluator
	recorder  recorder
}

// SLADependencies bundles collaborators for the SLA service.
type SLADependencies struct {
	RuleRepo   repository.SLARuleRepository
	TicketRepo repository.TicketRepository
	AuditRepo  repository.AuditRepository
	Evaluator  *evaluator.Evaluator
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// SLARuleInput is the payload for creating a rule. ConditionField and
// ConditionValue are either both empty or both set.
type SLARuleInput struct {
	Name              string
	ResponseMinutes   int
	ResolutionMinutes int
	ConditionField    string
	ConditionValue    string
}

// ComplianceExport is a rendered spreadsheet.
type ComplianceExport struct {
	Filename string
	Data     []byte
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	ev := deps.Evaluator
	if ev == nil {
		ev = evaluator.New("")
	}
	return &SLAService{
		rules:     deps.RuleRepo,
		tickets:   deps.TicketRepo,
		evaluator: ev,
		recorder:  newRecorder(deps.AuditRepo, deps.Dispatcher, deps.Logger, nil),
	}
}

// Evaluator exposes the shared rule evaluator.
func (s *SLAService) Evaluator() *evaluator.Evaluator {
	return s.evaluator
}

// ListRules returns every rule in evaluation order.
func (s *SLAService) ListRules(ctx context.Context) ([]domain.SLARule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sla rules: %w", err)
	}
	return rules, nil
}

// CreateRule validates and stores a rule.
func (s *SLAService) CreateRule(ctx context.Context, actor events.Actor, input SLARuleInput) (*domain.SLARule, error) {
	rule, err := buildRule(input)
	if err != nil {
		return nil, err
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("create sla rule: %w", err)
	}
	s.recorder.record(ctx, entityRule, rule.ID, domain.AuditRuleCreated, actor, map[string]any{"name": rule.Name})
	s.recorder.publish(ctx, events.EventRuleCreated, rule.ID, actor, nil)
	return rule, nil
}

func buildRule(input SLARuleInput) (*domain.SLARule, error) {
	details := map[string]any{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		details["name"] = "required"
	}
	if msg := checkBudget(input.ResponseMinutes); msg != "" {
		details["response_minutes"] = msg
	}
	if msg := checkBudget(input.ResolutionMinutes); msg != "" {
		details["resolution_minutes"] = msg
	}

	var condition *domain.RuleCondition
	field := strings.ToLower(strings.TrimSpace(input.ConditionField))
	value := strings.TrimSpace(input.ConditionValue)
	switch {
	case field == "" && value == "":
	case field != domain.ConditionFieldPriority:
		details["condition_field"] = "only priority is supported"
	default:
		priority, ok := evaluator.ParsePriorityInput(value)
		if !ok {
			details["condition_value"] = "unknown priority"
			break
		}
		condition = &domain.RuleCondition{Field: domain.ConditionFieldPriority, Value: priority.Label()}
	}

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid sla rule", details)
	}
	return &domain.SLARule{
		Name:              name,
		ResponseMinutes:   input.ResponseMinutes,
		ResolutionMinutes: input.ResolutionMinutes,
		Condition:         condition,
	}, nil
}

func checkBudget(minutes int) string {
	switch {
	case minutes < 1:
		return "must be at least 1"
	case minutes > evaluator.MaxBudgetMinutes:
		return fmt.Sprintf("must be at most %d", evaluator.MaxBudgetMinutes)
	}
	return ""
}

// EvaluateTicket returns the live resolution countdown for a ticket, or
// ErrNoSLA when no rule applies.
func (s *SLAService) EvaluateTicket(ctx context.Context, ticketID string, now time.Time) (*evaluator.SLAStatus, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, fmt.Errorf("load ticket: %w", err)
	}
	rules, err := s.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	rule, ok := s.evaluator.SelectRule(*ticket, rules)
	if !ok {
		return nil, ErrNoSLA
	}
	status := s.evaluator.EvaluateResolution(*ticket, rule, now)
	return &status, nil
}

// EvaluateSession returns the first-response countdown for a chat session
// under the rule that applies to its linked ticket, or the fallback rule when
// the session has no ticket.
func (s *SLAService) EvaluateSession(ctx context.Context, session domain.ChatSession, linked *domain.Ticket, now time.Time) (*evaluator.SLAStatus, error) {
	rules, err := s.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	subject := domain.Ticket{Priority: domain.TicketPriorityMedium}
	if linked != nil {
		subject = *linked
	}
	rule, ok := s.evaluator.SelectRule(subject, rules)
	if !ok {
		return nil, ErrNoSLA
	}
	status := s.evaluator.EvaluateResponse(session, rule, now)
	return &status, nil
}

// ComplianceReport returns one report per rule over every ticket.
func (s *SLAService) ComplianceReport(ctx context.Context, now time.Time) ([]evaluator.ComplianceReport, error) {
	rules, err := s.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return s.evaluator.ComplianceAll(rules, tickets, now), nil
}

// ExportCompliance renders the compliance report as an xlsx workbook.
func (s *SLAService) ExportCompliance(ctx context.Context, now time.Time) (*ComplianceExport, error) {
	reports, err := s.ComplianceReport(ctx, now)
	if err != nil {
		return nil, err
	}
	data, filename, err := report.ComplianceWorkbook(reports, now)
	if err != nil {
		return nil, fmt.Errorf("render compliance workbook: %w", err)
	}
	return &ComplianceExport{Filename: filename, Data: data}, nil
}
