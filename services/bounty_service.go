package services

import (
	"errors"
	"log"

	"resilience-registry/lifecycle"
	"resilience-registry/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BountyService is the thin HTTP layer over the lifecycle engine. All
// business rules live in the engine; this layer parses requests, resolves
// the actor from the gateway context, maps results to status codes and
// appends the audit event after a committed transition.
type BountyService struct {
	DB     *gorm.DB
	Engine *lifecycle.Engine
}

func NewBountyService(db *gorm.DB, engine *lifecycle.Engine) *BountyService {
	return &BountyService{DB: db, Engine: engine}
}

type transitionReq struct {
	ClaimerWallet       string   `json:"claimer_wallet,omitempty"`
	EvidenceSummary     string   `json:"evidence_summary,omitempty"`
	EvidenceLinks       []string `json:"evidence_links,omitempty"`
	EscrowAddress       string   `json:"escrow_address,omitempty"`
	EscrowTxSignature   string   `json:"escrow_tx_signature,omitempty"`
	ProposalAddress     string   `json:"proposal_address,omitempty"`
	GovernanceReference string   `json:"governance_reference,omitempty"`
	ReleaseTxSignature  string   `json:"release_tx_signature,omitempty"`
}

func (r transitionReq) payload() lifecycle.Payload {
	return lifecycle.Payload{
		ClaimerWallet:       r.ClaimerWallet,
		EvidenceSummary:     r.EvidenceSummary,
		EvidenceLinks:       r.EvidenceLinks,
		EscrowAddress:       r.EscrowAddress,
		EscrowTxSignature:   r.EscrowTxSignature,
		ProposalAddress:     r.ProposalAddress,
		GovernanceReference: r.GovernanceReference,
		ReleaseTxSignature:  r.ReleaseTxSignature,
	}
}

// rejectionStatus maps a rejection reason to its HTTP status. WrongState
// is 409 like Conflict but with a distinct error string: WrongState is
// caught by validation before any write, Conflict means a lost race.
func rejectionStatus(reason lifecycle.RejectReason) int {
	switch reason {
	case lifecycle.ReasonForbidden:
		return fiber.StatusForbidden
	case lifecycle.ReasonInvalidPayload:
		return fiber.StatusBadRequest
	case lifecycle.ReasonWrongState:
		return fiber.StatusConflict
	default:
		return fiber.StatusBadRequest
	}
}

func actorID(c *fiber.Ctx) string {
	if v, ok := c.Locals("user_id").(string); ok {
		return v
	}
	return ""
}

// CreateBounty handles POST /bounties. Creation is insert-if-absent, not
// a conditional update — there is no prior state to race against.
func (s *BountyService) CreateBounty(c *fiber.Ctx) error {
	type Req struct {
		RealmReference string             `json:"realm_reference"`
		Title          string             `json:"title"`
		Description    string             `json:"description,omitempty"`
		RewardAmount   float64            `json:"reward_amount"`
		ReleaseMode    string             `json:"release_mode"`
		Milestones     []models.Milestone `json:"milestones,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	res, err := s.Engine.Create(c.Context(), lifecycle.CreateInput{
		CreatorID:      actorID(c),
		RealmReference: req.RealmReference,
		Title:          req.Title,
		Description:    req.Description,
		RewardAmount:   req.RewardAmount,
		ReleaseMode:    req.ReleaseMode,
		Milestones:     req.Milestones,
	})
	if err != nil {
		log.Printf("ERROR creating bounty: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to create bounty"})
	}

	switch res.Outcome {
	case lifecycle.OutcomeSuccess:
		s.recordEvent(res.Bounty.ID, "create", actorID(c), "", res.Bounty.Status)
		return c.Status(201).JSON(res.Bounty)
	case lifecycle.OutcomeRejected:
		return c.Status(rejectionStatus(res.Reason)).JSON(fiber.Map{
			"error":  string(res.Reason),
			"detail": res.Detail,
		})
	default:
		return c.Status(409).JSON(fiber.Map{"error": "bounty id collision, retry"})
	}
}

// applyTransition is the shared handler body for the eight lifecycle
// actions; the route decides the action, everything else is identical.
func (s *BountyService) applyTransition(c *fiber.Ctx, action lifecycle.Action) error {
	bountyID := c.Params("id")
	if bountyID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "bounty id required in URL"})
	}

	var req transitionReq
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
		}
	}

	actor := actorID(c)
	res, err := s.Engine.Apply(c.Context(), bountyID, action, actor, req.payload())
	if err != nil {
		log.Printf("ERROR applying %s to bounty %s: %v", action, bountyID, err)
		return c.Status(500).JSON(fiber.Map{"error": "transition failed"})
	}

	switch res.Outcome {
	case lifecycle.OutcomeSuccess:
		// Audit trail is best-effort and written outside the engine so
		// the engine keeps its single-write guarantee.
		s.recordEvent(res.Bounty.ID, string(action), actor, string(res.Previous), res.Bounty.Status)
		return c.JSON(res.Bounty)
	case lifecycle.OutcomeNotFound:
		return c.Status(404).JSON(fiber.Map{"error": "bounty not found"})
	case lifecycle.OutcomeConflict:
		return c.Status(409).JSON(fiber.Map{
			"error":  "conflict",
			"detail": "the bounty changed state while this request was in flight — re-fetch and retry if still applicable",
		})
	case lifecycle.OutcomeRejected:
		return c.Status(rejectionStatus(res.Reason)).JSON(fiber.Map{
			"error":  string(res.Reason),
			"detail": res.Detail,
		})
	default:
		return c.Status(500).JSON(fiber.Map{"error": "unexpected engine outcome"})
	}
}

func (s *BountyService) recordEvent(bountyID, action, actor, fromStatus, toStatus string) {
	ev := models.BountyEvent{
		ID:         uuid.NewString(),
		BountyID:   bountyID,
		Action:     action,
		ActorID:    actor,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
	}
	if err := s.DB.Create(&ev).Error; err != nil {
		log.Printf("WARN failed to record bounty event %s/%s: %v", bountyID, action, err)
	}
}

func (s *BountyService) ClaimBounty(c *fiber.Ctx) error {
	return s.applyTransition(c, lifecycle.ActionClaim)
}

func (s *BountyService) SubmitEvidence(c *fiber.Ctx) error {
	return s.applyTransition(c, lifecycle.ActionSubmitEvidence)
}

func (s *BountyService) ApproveBounty(c *fiber.Ctx) error {
	return s.applyTransition(c, lifecycle.ActionApprove)
}

func (s *BountyService) RejectBounty(c *fiber.Ctx) error {
	return s.applyTransition(c, lifecycle.ActionReject)
}

func (s *BountyService) FundEscrow(c *fiber.Ctx) error {
	return s.applyTransition(c, lifecycle.ActionFundEscrow)
}

func (s *BountyService) LinkProposal(c *fiber.Ctx) error {
	return s.applyTransition(c, lifecycle.ActionLinkProposal)
}

func (s *BountyService) MarkPaid(c *fiber.Ctx) error {
	return s.applyTransition(c, lifecycle.ActionMarkPaid)
}

func (s *BountyService) CancelEscrow(c *fiber.Ctx) error {
	return s.applyTransition(c, lifecycle.ActionCancelEscrow)
}

// GetBountyByID is the plain read path.
func (s *BountyService) GetBountyByID(c *fiber.Ctx) error {
	res, err := s.Engine.Get(c.Context(), c.Params("id"))
	if err != nil {
		log.Printf("ERROR fetching bounty %s: %v", c.Params("id"), err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if res.Outcome == lifecycle.OutcomeNotFound {
		return c.Status(404).JSON(fiber.Map{"error": "bounty not found"})
	}
	return c.JSON(res.Bounty)
}

// GetAllBounties lists bounties, optionally filtered by realm, status or
// claimer. Read-only; no concurrency concerns.
func (s *BountyService) GetAllBounties(c *fiber.Ctx) error {
	query := s.DB.Model(&models.Bounty{}).Order("created_at DESC")
	if realm := c.Query("realm"); realm != "" {
		query = query.Where("realm_reference = ?", realm)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if claimer := c.Query("claimer"); claimer != "" {
		query = query.Where("claimer_id = ?", claimer)
	}
	var bounties []models.Bounty
	if err := query.Find(&bounties).Error; err != nil {
		log.Printf("ERROR fetching bounties: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch bounties"})
	}
	return c.JSON(bounties)
}

// GetBountyEvents returns the audit trail for one bounty.
func (s *BountyService) GetBountyEvents(c *fiber.Ctx) error {
	bountyID := c.Params("id")
	var exists int64
	if err := s.DB.Model(&models.Bounty{}).Where("id = ?", bountyID).Count(&exists).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if exists == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "bounty not found"})
	}
	var events []models.BountyEvent
	if err := s.DB.Where("bounty_id = ?", bountyID).
		Order("created_at ASC").
		Find(&events).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch events"})
	}
	return c.JSON(events)
}
