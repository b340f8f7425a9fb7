package dto

import "time"

// VolumePoint is one bar of the ticket volume chart.
type VolumePoint struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DashboardResponse is the agent dashboard.
type DashboardResponse struct {
	OpenTickets   int             `json:"open_tickets"`
	SLABreaches   int             `json:"sla_breaches"`
	OnlineAgents  int             `json:"online_agents"`
	AvgResponse   string          `json:"avg_response"`
	UrgentTickets []TicketSummary `json:"urgent_tickets"`
	TicketVolume  []VolumePoint   `json:"ticket_volume"`
	RefreshedAt   time.Time       `json:"refreshed_at"`
	Stale         bool            `json:"stale"`
}
