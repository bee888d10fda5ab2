package v1

import (
	"github.com/gofiber/fiber/v2"

	"taskboard/internal/api/v1/handlers"
	"taskboard/internal/config"
	"taskboard/internal/middleware"
)

func RegisterRoutes(app *fiber.App, deps *config.Dependencies) {
	var events handlers.Publisher
	if deps.Hub != nil {
		events = deps.Hub
	}
	h := handlers.New(deps.Store, deps.Issuer, events)
	requireToken := middleware.UseToken(deps.Issuer)

	api := app.Group("/api/v1")

	// Auth
	api.Post("/register", h.Register)
	api.Post("/login", h.Login)
	api.Post("/token/refresh", h.RefreshToken)
	api.Post("/logout", h.Logout)

	// User
	userRoutes := api.Group("/users", requireToken)
	userRoutes.Get("/", h.ListUsers)
	userRoutes.Post("/", h.CreateUser)
	userRoutes.Get("/:id", h.GetUser)
	userRoutes.Put("/:id", h.UpdateUser)
	userRoutes.Patch("/:id", h.UpdateUser)
	userRoutes.Delete("/:id", h.DeleteUser)
	userRoutes.Put("/:id/role", h.SetRole)

	// Project
	projectRoutes := api.Group("/projects", requireToken)
	projectRoutes.Get("/", h.ListProjects)
	projectRoutes.Post("/", h.CreateProject)
	projectRoutes.Get("/:id", h.GetProject)
	projectRoutes.Put("/:id", h.UpdateProject)
	projectRoutes.Patch("/:id", h.UpdateProject)
	projectRoutes.Delete("/:id", h.DeleteProject)
	projectRoutes.Post("/:id/team", h.AddTeamMember)
	projectRoutes.Delete("/:id/team/:userId", h.RemoveTeamMember)

	// Task
	taskRoutes := api.Group("/tasks", requireToken)
	taskRoutes.Get("/", h.ListTasks)
	taskRoutes.Post("/", h.CreateTask)
	taskRoutes.Get("/:id", h.GetTask)
	taskRoutes.Put("/:id", h.UpdateTask)
	taskRoutes.Patch("/:id", h.UpdateTask)
	taskRoutes.Delete("/:id", h.DeleteTask)

	// Change feed
	if deps.Hub != nil {
		api.Get("/ws", handlers.RequireUpgrade, middleware.UseSocketToken(deps.Issuer), handlers.Events(deps.Hub))
	}
}
