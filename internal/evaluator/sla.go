package evaluator

import (
	"math"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// DefaultFallbackRule is the rule applied when nothing else matches a ticket.
const DefaultFallbackRule = "General Support"

// minBudget guards against zero or negative rule budgets.
const minBudget = time.Minute

// MaxBudgetMinutes is the largest budget a rule can carry: one year.
// Larger budgets are saturated before they reach a time.Duration.
const MaxBudgetMinutes = 366 * 24 * 60

// Clock identifies which SLA budget a status was computed against.
type Clock string

const (
	ClockResolution Clock = "resolution"
	ClockResponse   Clock = "response"
)

// SLAStatus is the live countdown for a ticket or session under a rule.
type SLAStatus struct {
	RuleID            string
	RuleName          string
	Clock             Clock
	BudgetMinutes     int
	ResolutionMinutes int
	IsBreached        bool
	DiffMinutes       int
	Deadline          time.Time
}

// ComplianceReport summarizes how many tickets matched by a rule are breached.
type ComplianceReport struct {
	RuleID     string
	RuleName   string
	Total      int
	Breached   int
	Compliance int
}

// Evaluator selects and evaluates SLA rules.
type Evaluator struct {
	fallbackRule string
}

// New builds an Evaluator. An empty fallback name uses DefaultFallbackRule.
func New(fallbackRule string) *Evaluator {
	if fallbackRule == "" {
		fallbackRule = DefaultFallbackRule
	}
	return &Evaluator{fallbackRule: fallbackRule}
}

// FallbackRule returns the configured fallback rule name.
func (e *Evaluator) FallbackRule() string {
	return e.fallbackRule
}

// SelectRule returns the rule that applies to the ticket. Rules are scanned
// in the supplied order and the first match wins:
//  1. a rule conditioned on priority equal to the ticket priority;
//  2. an unconditioned rule whose name mentions the priority;
//  3. the fallback rule, by exact name.
func (e *Evaluator) SelectRule(ticket domain.Ticket, rules []domain.SLARule) (domain.SLARule, bool) {
	for _, rule := range rules {
		if matchesCondition(rule, ticket.Priority) {
			return rule, true
		}
	}
	for _, rule := range rules {
		if matchesName(rule, ticket.Priority) {
			return rule, true
		}
	}
	for _, rule := range rules {
		if rule.Name == e.fallbackRule {
			return rule, true
		}
	}
	return domain.SLARule{}, false
}

func matchesName(rule domain.SLARule, priority domain.TicketPriority) bool {
	return rule.Condition == nil &&
		strings.Contains(strings.ToLower(rule.Name), strings.ToLower(priority.Label()))
}

func coversTicket(rule domain.SLARule, priority domain.TicketPriority) bool {
	if rule.Condition != nil {
		return matchesCondition(rule, priority)
	}
	return matchesName(rule, priority)
}

func matchesCondition(rule domain.SLARule, priority domain.TicketPriority) bool {
	cond := rule.Condition
	if cond == nil || !strings.EqualFold(strings.TrimSpace(cond.Field), domain.ConditionFieldPriority) {
		return false
	}
	value := strings.TrimSpace(cond.Value)
	return strings.EqualFold(value, priority.Label()) || strings.EqualFold(value, string(priority))
}

// EvaluateResolution computes the resolution countdown: the deadline is the
// ticket creation time plus the rule's resolution budget. Resolved and closed
// tickets are never reported as breached.
func (e *Evaluator) EvaluateResolution(ticket domain.Ticket, rule domain.SLARule, now time.Time) SLAStatus {
	deadline := guardTime(ticket.CreatedAt, now).Add(budget(rule.ResolutionMinutes))
	return SLAStatus{
		RuleID:            rule.ID,
		RuleName:          rule.Name,
		Clock:             ClockResolution,
		BudgetMinutes:     budgetMinutes(rule.ResolutionMinutes),
		ResolutionMinutes: rule.ResolutionMinutes,
		IsBreached:        now.After(deadline) && !ticket.Status.IsTerminal(),
		DiffMinutes:       diffMinutes(deadline, now),
		Deadline:          deadline,
	}
}

// EvaluateResponse computes the first-response countdown for a chat session:
// the deadline is the session start plus the rule's response budget. Only
// sessions still waiting for an agent can breach.
func (e *Evaluator) EvaluateResponse(session domain.ChatSession, rule domain.SLARule, now time.Time) SLAStatus {
	deadline := guardTime(session.StartedAt, now).Add(budget(rule.ResponseMinutes))
	return SLAStatus{
		RuleID:            rule.ID,
		RuleName:          rule.Name,
		Clock:             ClockResponse,
		BudgetMinutes:     budgetMinutes(rule.ResponseMinutes),
		ResolutionMinutes: rule.ResolutionMinutes,
		IsBreached:        now.After(deadline) && session.Status == domain.SessionStatusWaiting,
		DiffMinutes:       diffMinutes(deadline, now),
		Deadline:          deadline,
	}
}

// IsBreached reports whether the ticket is breached under whichever rule applies.
// Tickets without an applicable rule are never breached.
func (e *Evaluator) IsBreached(ticket domain.Ticket, rules []domain.SLARule, now time.Time) bool {
	rule, ok := e.SelectRule(ticket, rules)
	if !ok {
		return false
	}
	return e.EvaluateResolution(ticket, rule, now).IsBreached
}

// CountBreaches counts breached tickets, each evaluated under its own rule.
func (e *Evaluator) CountBreaches(tickets []domain.Ticket, rules []domain.SLARule, now time.Time) int {
	count := 0
	for i := range tickets {
		if e.IsBreached(tickets[i], rules, now) {
			count++
		}
	}
	return count
}

// Compliance reports the share of tickets matched by rule that are not
// breached. Tickets are matched by the rule's own condition, or by the name
// heuristic when it has none; the fallback step never applies here. A rule
// that matches nothing is 100% compliant.
func (e *Evaluator) Compliance(rule domain.SLARule, tickets []domain.Ticket, now time.Time) ComplianceReport {
	report := ComplianceReport{RuleID: rule.ID, RuleName: rule.Name, Compliance: 100}
	for i := range tickets {
		if !coversTicket(rule, tickets[i].Priority) {
			continue
		}
		report.Total++
		if e.EvaluateResolution(tickets[i], rule, now).IsBreached {
			report.Breached++
		}
	}
	if report.Total > 0 {
		ratio := float64(report.Total-report.Breached) / float64(report.Total) * 100
		report.Compliance = int(math.Round(ratio))
	}
	return report
}

// ComplianceAll builds one report per rule, in rule order.
func (e *Evaluator) ComplianceAll(rules []domain.SLARule, tickets []domain.Ticket, now time.Time) []ComplianceReport {
	reports := make([]ComplianceReport, 0, len(rules))
	for _, rule := range rules {
		reports = append(reports, e.Compliance(rule, tickets, now))
	}
	return reports
}

func budget(minutes int) time.Duration {
	if minutes > MaxBudgetMinutes {
		minutes = MaxBudgetMinutes
	}
	d := time.Duration(minutes) * time.Minute
	if d < minBudget {
		return minBudget
	}
	return d
}

func budgetMinutes(minutes int) int {
	return int(budget(minutes) / time.Minute)
}

func guardTime(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}

func diffMinutes(deadline, now time.Time) int {
	return int(math.Round(math.Abs(deadline.Sub(now).Minutes())))
}
