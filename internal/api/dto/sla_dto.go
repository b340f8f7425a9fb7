package dto

import "time"

// CreateSLARuleRequest payload.
type CreateSLARuleRequest struct {
	Name              string `json:"name"`
	ResponseMinutes   int    `json:"response_minutes"`
	ResolutionMinutes int    `json:"resolution_minutes"`
	ConditionField    string `json:"condition_field"`
	ConditionValue    string `json:"condition_value"`
}

// SLARuleResponse represents a rule.
type SLARuleResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	ResponseMinutes   int       `json:"response_minutes"`
	ResolutionMinutes int       `json:"resolution_minutes"`
	ConditionField    *string   `json:"condition_field"`
	ConditionValue    *string   `json:"condition_value"`
	CreatedAt         time.Time `json:"created_at"`
}

// ComplianceResponse is one rule's compliance figure.
type ComplianceResponse struct {
	RuleID     string `json:"rule_id"`
	RuleName   string `json:"rule_name"`
	Total      int    `json:"total"`
	Breached   int    `json:"breached"`
	Compliance int    `json:"compliance"`
}
