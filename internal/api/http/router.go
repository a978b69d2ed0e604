package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campusvoice/feedback-service/internal/api/http/handlers"
	"github.com/campusvoice/feedback-service/internal/auth"
	"github.com/campusvoice/feedback-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Feedback       *handlers.FeedbackHandler
	Issues         *handlers.IssuesHandler
	Stats          *handlers.StatsHandler
	Sweep          *handlers.SweepHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Users.Me)

	api.Post("/feedback",
		cfg.AuthMiddleware.Handle,
		auth.RequireRoles(domain.RoleStudent),
		cfg.Feedback.Submit)

	issues := api.Group("/issues", cfg.AuthMiddleware.Handle)
	issues.Get("/my", cfg.Issues.ListMine)
	issues.Get("/all",
		auth.RequireRoles(domain.RoleAdmin, domain.RolePrincipal),
		cfg.Issues.ListAll)
	issues.Get("/:id", cfg.Issues.Get)
	issues.Post("/:id/updates", auth.RequireStaff(), cfg.Issues.AddUpdate)
	issues.Post("/:id/escalate", auth.RequireStaff(), cfg.Issues.Escalate)
	issues.Post("/:id/status",
		auth.RequireRoles(domain.RoleStaff, domain.RoleHoD, domain.RoleWarden, domain.RoleAdmin, domain.RolePrincipal),
		cfg.Issues.SetStatus)

	api.Get("/stats/dashboard", cfg.AuthMiddleware.Handle, cfg.Stats.Dashboard)

	// Scheduler hook; deliberately unauthenticated like the rest of the
	// cron surface. The sweep is idempotent so redundant triggers are safe.
	api.Post("/cron/sweep", cfg.Sweep.Run)
}
