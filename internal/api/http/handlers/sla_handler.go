package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SLAHandler exposes rule management and compliance reporting.
type SLAHandler struct {
	service *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(slaService *service.SLAService) *SLAHandler {
	return &SLAHandler{service: slaService}
}

// ListRules GET /sla/rules.
func (h *SLAHandler) ListRules(c *fiber.Ctx) error {
	rules, err := h.service.ListRules(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.SLARuleResponse, 0, len(rules))
	for i := range rules {
		items = append(items, slaRuleResponse(&rules[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateRule POST /sla/rules.
func (h *SLAHandler) CreateRule(c *fiber.Ctx) error {
	_, actor, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.CreateSLARuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule, err := h.service.CreateRule(c.UserContext(), actor, service.SLARuleInput{
		Name:              req.Name,
		ResponseMinutes:   req.ResponseMinutes,
		ResolutionMinutes: req.ResolutionMinutes,
		ConditionField:    req.ConditionField,
		ConditionValue:    req.ConditionValue,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": slaRuleResponse(rule)})
}

// Compliance GET /sla/compliance.
func (h *SLAHandler) Compliance(c *fiber.Ctx) error {
	reports, err := h.service.ComplianceReport(c.UserContext(), time.Now())
	if err != nil {
		return err
	}
	items := make([]dto.ComplianceResponse, 0, len(reports))
	for _, report := range reports {
		items = append(items, dto.ComplianceResponse{
			RuleID:     report.RuleID,
			RuleName:   report.RuleName,
			Total:      report.Total,
			Breached:   report.Breached,
			Compliance: report.Compliance,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ExportCompliance GET /sla/compliance.xlsx.
func (h *SLAHandler) ExportCompliance(c *fiber.Ctx) error {
	export, err := h.service.ExportCompliance(c.UserContext(), time.Now())
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename))
	return c.Send(export.Data)
}

func slaRuleResponse(rule *domain.SLARule) dto.SLARuleResponse {
	resp := dto.SLARuleResponse{
		ID:                rule.ID,
		Name:              rule.Name,
		ResponseMinutes:   rule.ResponseMinutes,
		ResolutionMinutes: rule.ResolutionMinutes,
		CreatedAt:         rule.CreatedAt,
	}
	if rule.Condition != nil {
		field, value := rule.Condition.Field, rule.Condition.Value
		resp.ConditionField = &field
		resp.ConditionValue = &value
	}
	return resp
}
