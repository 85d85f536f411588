package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/points-service/internal/api/http/handlers"
	"github.com/spec-kit/points-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Requests       *handlers.RequestsHandler
	Tasks          *handlers.TasksHandler
	Transfers      *handlers.TransfersHandler
	Secretaries    *handlers.SecretariesHandler
	Uploads        *handlers.UploadsHandler
	AuthMiddleware *auth.AuthMiddleware
	SubmitLimiter  fiber.Handler
}

// NewApp builds the fiber application. Immutable keeps path params and headers valid
// after the handler returns, since repositories may retain them.
func NewApp(name string, bodyLimit int) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:   name,
		BodyLimit: bodyLimit,
		Immutable: true,
	})
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Get("/google/login", cfg.Auth.Login)
	authGroup.Get("/google/callback", cfg.Auth.Callback)

	app.Get("/departments", cfg.Auth.Departments)
	app.Get("/departments/:department/tasks", cfg.Tasks.List)
	app.Get("/departments/:department/leaderboard", cfg.Tasks.Leaderboard)
	// Registered ahead of the public link check so "incoming" is not read as an id.
	app.Get("/transfers/incoming", cfg.AuthMiddleware.Handle, auth.RequireSession(), cfg.Transfers.Incoming)
	app.Get("/transfers/:id", cfg.Transfers.Validate)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireSession())
	protected.Get("/me", cfg.Auth.Me)

	submit := []fiber.Handler{cfg.Requests.Submit}
	if cfg.SubmitLimiter != nil {
		submit = append([]fiber.Handler{cfg.SubmitLimiter}, submit...)
	}
	protected.Post("/requests", submit...)
	protected.Get("/requests/mine", cfg.Requests.Mine)
	protected.Get("/requests/:id", cfg.Requests.Get)
	protected.Post("/requests/:id/cancel", cfg.Requests.Cancel)

	protected.Post("/transfers/:id/accept", cfg.Transfers.Accept)
	protected.Post("/transfers/:id/reject", cfg.Transfers.Reject)

	protected.Post("/uploads/proof", cfg.Uploads.Proof)

	reviewers := protected.Group("/admin", auth.RequireReviewer())
	reviewers.Get("/requests", cfg.Requests.ListForReview)
	reviewers.Post("/requests/:id/approve", cfg.Requests.Approve)
	reviewers.Post("/requests/:id/reject", cfg.Requests.Reject)

	admins := protected.Group("/admin", auth.RequireAdmin())
	admins.Post("/tasks", cfg.Tasks.Create)
	admins.Put("/tasks/:id", cfg.Tasks.Update)
	admins.Delete("/tasks/:id", cfg.Tasks.Delete)
	admins.Post("/transfers", cfg.Transfers.Initiate)
	admins.Get("/transfers/outgoing", cfg.Transfers.Outgoing)
	admins.Get("/secretaries", cfg.Secretaries.List)
	admins.Post("/secretaries", cfg.Secretaries.Add)
	admins.Delete("/secretaries/:email", cfg.Secretaries.Remove)
}
