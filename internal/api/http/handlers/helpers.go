package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// currentAgent returns the authenticated agent and the matching audit actor.
func currentAgent(c *fiber.Ctx) (*domain.Agent, events.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return nil, events.Actor{}, apperrors.NewUnauthorized("agent required")
	}
	return principal.Agent, service.AgentActor(principal.Agent.ID), nil
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// splitQuery splits a comma separated query value, dropping blanks.
func splitQuery(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// nowFrom reads an optional ?at= override, used by the SLA countdown views.
func nowFrom(c *fiber.Ctx) time.Time {
	if at := parseTime(c.Query("at")); at != nil {
		return *at
	}
	return time.Now()
}
