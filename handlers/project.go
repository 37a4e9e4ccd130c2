package handlers

import (
	"resilience-registry/middleware"
	"resilience-registry/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProjectRoutes(app *fiber.App, projectService *services.ProjectService, roadmapService *services.RoadmapService) {
	// Public registry views
	app.Get("/projects", projectService.GetAllProjects)
	app.Get("/projects/:id", projectService.GetProject)
	app.Get("/projects/:id/roadmap", roadmapService.GetProjectRoadmap)

	// Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/projects", projectService.RegisterProject)
	secured.Put("/projects/:id", projectService.UpdateProject)

	// Roadmap management (project owner)
	secured.Post("/projects/:id/roadmap", roadmapService.CreateRoadmapItem)
	secured.Put("/roadmap/:item_id", roadmapService.UpdateRoadmapItem)
	secured.Delete("/roadmap/:item_id", roadmapService.DeleteRoadmapItem)

	// Admin-only routes
	admin := secured.Group("/admin")
	admin.Patch("/projects/:id/feature", projectService.ToggleFeatured)
}
