package domain

import "time"

// ConditionFieldPriority is the only condition field rules are matched on.
const ConditionFieldPriority = "priority"

// RuleCondition restricts an SLA rule to tickets whose field equals a value.
type RuleCondition struct {
	Field string
	Value string
}

// SLARule pairs response and resolution budgets with an optional match condition.
type SLARule struct {
	ID                string
	Name              string
	ResponseMinutes   int
	ResolutionMinutes int
	Condition         *RuleCondition
	CreatedAt         time.Time
}
