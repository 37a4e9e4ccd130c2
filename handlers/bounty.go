package handlers

import (
	"resilience-registry/middleware"
	"resilience-registry/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBountyRoutes(app *fiber.App, bountyService *services.BountyService) {
	// Public read paths
	app.Get("/bounties", bountyService.GetAllBounties)
	app.Get("/bounties/:id", bountyService.GetBountyByID)
	app.Get("/bounties/:id/events", bountyService.GetBountyEvents)

	// Authenticated lifecycle transitions
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/bounties", bountyService.CreateBounty)
	secured.Post("/bounties/:id/claim", bountyService.ClaimBounty)
	secured.Post("/bounties/:id/evidence", bountyService.SubmitEvidence)
	secured.Post("/bounties/:id/approve", bountyService.ApproveBounty)
	secured.Post("/bounties/:id/reject", bountyService.RejectBounty)
	secured.Post("/bounties/:id/fund", bountyService.FundEscrow)
	secured.Post("/bounties/:id/link-proposal", bountyService.LinkProposal)
	secured.Post("/bounties/:id/mark-paid", bountyService.MarkPaid)
	secured.Post("/bounties/:id/cancel", bountyService.CancelEscrow)
}
