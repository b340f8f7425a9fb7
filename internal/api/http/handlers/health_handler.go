package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger is a dependency the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to liveness and readiness probes. Postgres is
// required; Redis only carries the cross-instance change feed and the shared
// dashboard cache, so its absence degrades the service instead of failing it.
type HealthHandler struct {
	serviceName string
	version     string
	startedAt   time.Time
	postgres    Pinger
	redis       Pinger
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, postgres, redis Pinger) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		startedAt:   time.Now(),
		postgres:    postgres,
		redis:       redis,
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// Ready reports readiness. It fails only when Postgres is unreachable.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	postgres := probe(ctx, h.postgres)
	redis := probe(ctx, h.redis)
	deps := fiber.Map{"postgres": postgres, "redis": redis}

	if postgres != "ok" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "postgres unavailable",
				"details": deps,
			},
		})
	}
	status := "ready"
	if redis != "ok" {
		status = "degraded"
	}
	return c.JSON(fiber.Map{"status": status, "dependencies": deps})
}

func probe(ctx context.Context, dep Pinger) string {
	if dep == nil {
		return "not configured"
	}
	if err := dep.Ping(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}
