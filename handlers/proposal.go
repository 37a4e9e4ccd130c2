package handlers

import (
	"resilience-registry/middleware"
	"resilience-registry/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProposalRoutes(app *fiber.App, proposalService *services.ProposalService) {
	// Public read paths
	app.Get("/proposals", proposalService.GetAllProposals)
	app.Get("/proposals/:id", proposalService.GetProposalByID)

	// Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Post("/proposals", proposalService.CreateProposal)
	secured.Patch("/proposals/:id/status", proposalService.UpdateProposalStatus)
}
