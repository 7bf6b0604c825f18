package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/waterworks/servicedesk/internal/api/http/handlers"
	"github.com/waterworks/servicedesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Requests       *handlers.RequestsHandler
	StaffRequests  *handlers.StaffRequestsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/customers/login", cfg.Auth.LoginCustomer)
	authGroup.Post("/staff/login", cfg.Auth.LoginStaff)

	customer := api.Group("/requests", cfg.AuthMiddleware.Handle, auth.RequireCustomer())
	customer.Get("/stats", cfg.Requests.GetStats)
	customer.Post("/", cfg.Requests.CreateRequest)
	customer.Get("/", cfg.Requests.ListRequests)
	customer.Get("/:id", cfg.Requests.GetRequest)
	customer.Post("/:id/cancel", cfg.Requests.CancelRequest)
	customer.Post("/:id/rating", cfg.Requests.RateRequest)
	customer.Post("/:id/comments", cfg.Requests.AddComment)
	customer.Get("/:id/comments", cfg.Requests.ListComments)
	customer.Post("/:id/photos", cfg.Requests.UploadPhoto)
	customer.Get("/:id/photos", cfg.Requests.ListPhotos)
	customer.Get("/:id/timeline", cfg.Requests.GetTimeline)

	api.Get("/photos/:photoId", cfg.AuthMiddleware.Handle, cfg.Requests.GetPhoto)

	staff := api.Group("/staff/requests", cfg.AuthMiddleware.Handle, auth.RequireStaffRole())
	staff.Get("/stats", cfg.StaffRequests.GetStats)
	staff.Get("/", cfg.StaffRequests.ListRequests)
	staff.Get("/:id", cfg.StaffRequests.GetRequest)
	staff.Post("/:id/acknowledge", cfg.StaffRequests.Acknowledge)
	staff.Post("/:id/start", cfg.StaffRequests.StartWork)
	staff.Post("/:id/hold", cfg.StaffRequests.Hold)
	staff.Post("/:id/resume", cfg.StaffRequests.Resume)
	staff.Post("/:id/resolve", cfg.StaffRequests.Resolve)
	staff.Post("/:id/close", cfg.StaffRequests.Close)
	staff.Post("/:id/cancel", cfg.StaffRequests.Cancel)
	staff.Post("/:id/assign", cfg.StaffRequests.Assign)
	staff.Post("/:id/comments", cfg.StaffRequests.AddComment)
	staff.Get("/:id/comments", cfg.StaffRequests.ListComments)
	staff.Post("/:id/photos", cfg.StaffRequests.UploadPhoto)
	staff.Get("/:id/timeline", cfg.StaffRequests.GetTimeline)
}
