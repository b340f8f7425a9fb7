package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Metrics        *handlers.MetricsHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	SLA            *handlers.SLAHandler
	Chat           *handlers.ChatHandler
	Dashboard      *handlers.DashboardHandler
	Team           *handlers.TeamHandler
	Articles       *handlers.ArticlesHandler
	Support        *handlers.SupportHandler
	Feed           *handlers.FeedHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Get)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/agents/login", cfg.Auth.AgentLogin)
	authGroup.Post("/customers/register", cfg.Auth.CustomerRegister)
	authGroup.Post("/customers/login", cfg.Auth.CustomerLogin)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), cfg.Auth.Me)

	app.Get("/me/tickets", cfg.AuthMiddleware.Handle, auth.RequireCustomer(), cfg.Tickets.MyTickets)

	kb := app.Group("/kb/articles")
	kb.Get("/", cfg.Articles.PublicList)
	kb.Get("/:id", cfg.Articles.PublicGet)
	kb.Post("/:id/vote", cfg.Articles.Vote)

	support := app.Group("/support")
	support.Post("/sessions", cfg.Support.StartSession)
	support.Post("/sessions/:id/messages", cfg.Support.PostMessage)
	support.Post("/sessions/:id/issue", cfg.Support.SubmitIssue)
	support.Get("/tickets/:id", cfg.Support.TicketStatus)

	agents := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAgentRole())
	admin := auth.RequireAgentRole(domain.AgentRoleAdmin)

	if cfg.Feed != nil {
		agents.Get("/ws", cfg.Feed.Upgrade, cfg.Feed.Stream())
	}

	tickets := agents.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Patch("/:id/assignee", cfg.Tickets.Assign)
	tickets.Patch("/:id/priority", cfg.Tickets.UpdatePriority)
	tickets.Post("/:id/notes", cfg.Tickets.AddNote)
	tickets.Get("/:id/sla", cfg.Tickets.TicketSLA)

	sla := agents.Group("/sla")
	sla.Get("/rules", cfg.SLA.ListRules)
	sla.Post("/rules", cfg.SLA.CreateRule)
	sla.Get("/compliance", cfg.SLA.Compliance)
	sla.Get("/compliance.xlsx", cfg.SLA.ExportCompliance)

	chat := agents.Group("/chat/sessions")
	chat.Get("/", cfg.Chat.ListSessions)
	chat.Get("/:id/messages", cfg.Chat.ListMessages)
	chat.Post("/:id/messages", cfg.Chat.SendMessage)
	chat.Post("/:id/end", cfg.Chat.EndSession)
	chat.Get("/:id/sla", cfg.Chat.SessionSLA)
	chat.Delete("/:id", cfg.Chat.DeleteSession)

	agents.Get("/dashboard", cfg.Dashboard.Get)

	team := agents.Group("/team")
	team.Get("/", cfg.Team.List)
	team.Post("/heartbeat", cfg.Team.Heartbeat)
	team.Post("/", admin, cfg.Team.AddEmployee)
	team.Delete("/:id", admin, cfg.Team.DeleteEmployee)

	articles := agents.Group("/articles")
	articles.Get("/", cfg.Articles.List)
	articles.Post("/", cfg.Articles.Create)
	articles.Get("/:id", cfg.Articles.Get)
	articles.Put("/:id", cfg.Articles.Update)
	articles.Post("/:id/publish", cfg.Articles.Publish)
}
