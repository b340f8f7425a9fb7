package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// DashboardHandler serves the cached dashboard snapshot.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: dashboardService}
}

// Get GET /dashboard.
func (h *DashboardHandler) Get(c *fiber.Ctx) error {
	stats, err := h.service.Snapshot(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dashboardResponse(stats)})
}

func dashboardResponse(stats *service.DashboardStats) dto.DashboardResponse {
	urgent := make([]dto.TicketSummary, 0, len(stats.UrgentTickets))
	for i := range stats.UrgentTickets {
		urgent = append(urgent, ticketSummary(&stats.UrgentTickets[i]))
	}
	volume := make([]dto.VolumePoint, 0, len(stats.TicketVolume))
	for i, count := range stats.TicketVolume {
		volume = append(volume, dto.VolumePoint{Label: stats.VolumeLabels[i], Count: count})
	}
	return dto.DashboardResponse{
		OpenTickets:   stats.OpenTickets,
		SLABreaches:   stats.SLABreaches,
		OnlineAgents:  stats.OnlineAgents,
		AvgResponse:   stats.AvgResponse,
		UrgentTickets: urgent,
		TicketVolume:  volume,
		RefreshedAt:   stats.RefreshedAt,
		Stale:         stats.Stale,
	}
}
