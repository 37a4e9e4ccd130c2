package services

import (
	"errors"
	"log"
	"time"

	"resilience-registry/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProposalService struct {
	DB *gorm.DB
}

func NewProposalService(db *gorm.DB) *ProposalService {
	return &ProposalService{DB: db}
}

// CreateProposal handles POST /proposals. Only the realm owner can open a
// funding proposal for their realm; the registry mirrors governance
// outcomes, it never counts votes.
func (s *ProposalService) CreateProposal(c *fiber.Ctx) error {
	type Req struct {
		RealmReference  string  `json:"realm_reference"`
		ProjectID       string  `json:"project_id,omitempty"`
		Title           string  `json:"title"`
		Summary         string  `json:"summary,omitempty"`
		RequestedAmount float64 `json:"requested_amount"`
		ProposalAddress string  `json:"proposal_address,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.RealmReference == "" || req.Title == "" {
		return c.Status(400).JSON(fiber.Map{"error": "realm_reference and title are required"})
	}
	if req.RequestedAmount <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "requested_amount must be positive"})
	}

	creatorID, _ := c.Locals("user_id").(string)
	var realm models.Realm
	if err := s.DB.Where("reference = ? AND is_active = true", req.RealmReference).First(&realm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(400).JSON(fiber.Map{"error": "realm not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if realm.OwnerID != creatorID {
		return c.Status(403).JSON(fiber.Map{"error": "only the realm owner can create proposals"})
	}

	if req.ProjectID != "" {
		if err := s.DB.First(&models.Project{}, "id = ?", req.ProjectID).Error; err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "project_id not found"})
		}
	}

	proposal := &models.Proposal{
		ID:              uuid.NewString(),
		RealmReference:  req.RealmReference,
		ProjectID:       req.ProjectID,
		CreatorID:       creatorID,
		Title:           req.Title,
		Summary:         req.Summary,
		RequestedAmount: req.RequestedAmount,
		ProposalAddress: req.ProposalAddress,
		Status:          models.ProposalStatusDraft,
	}
	if err := s.DB.Create(proposal).Error; err != nil {
		log.Printf("ERROR creating proposal: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}
	return c.Status(201).JSON(proposal)
}

func (s *ProposalService) GetAllProposals(c *fiber.Ctx) error {
	query := s.DB.Model(&models.Proposal{}).Order("created_at DESC")
	if realm := c.Query("realm"); realm != "" {
		query = query.Where("realm_reference = ?", realm)
	}
	if projectID := c.Query("project"); projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var proposals []models.Proposal
	if err := query.Find(&proposals).Error; err != nil {
		log.Printf("ERROR fetching proposals: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch proposals"})
	}
	return c.JSON(proposals)
}

func (s *ProposalService) GetProposalByID(c *fiber.Ctx) error {
	var proposal models.Proposal
	if err := s.DB.First(&proposal, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "proposal not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(proposal)
}

// UpdateProposalStatus mirrors a governance outcome supplied by the
// caller. Status moves forward only: draft → voting → one of succeeded,
// defeated → executed.
func (s *ProposalService) UpdateProposalStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	type Req struct {
		Status          string `json:"status"`
		ProposalAddress string `json:"proposal_address,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	var proposal models.Proposal
	if err := s.DB.First(&proposal, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "proposal not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if creatorID, _ := c.Locals("user_id").(string); creatorID != proposal.CreatorID {
		return c.Status(403).JSON(fiber.Map{"error": "only the proposal creator can update its status"})
	}

	allowed := map[string][]string{
		models.ProposalStatusDraft:     {models.ProposalStatusVoting},
		models.ProposalStatusVoting:    {models.ProposalStatusSucceeded, models.ProposalStatusDefeated},
		models.ProposalStatusSucceeded: {models.ProposalStatusExecuted},
	}
	ok := false
	for _, next := range allowed[proposal.Status] {
		if next == req.Status {
			ok = true
			break
		}
	}
	if !ok {
		return c.Status(409).JSON(fiber.Map{
			"error":   "invalid status transition",
			"current": proposal.Status,
		})
	}

	now := time.Now()
	updates := map[string]interface{}{"status": req.Status}
	switch req.Status {
	case models.ProposalStatusVoting:
		updates["voting_started_at"] = &now
		if req.ProposalAddress != "" {
			updates["proposal_address"] = req.ProposalAddress
		}
	case models.ProposalStatusSucceeded, models.ProposalStatusDefeated:
		updates["resolved_at"] = &now
	}

	// Status-guarded update, same discipline as the bounty store: lost
	// races surface as zero rows affected.
	result := s.DB.Model(&models.Proposal{}).
		Where("id = ? AND status = ?", id, proposal.Status).
		Updates(updates)
	if result.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "update failed"})
	}
	if result.RowsAffected == 0 {
		return c.Status(409).JSON(fiber.Map{"error": "proposal changed state, re-fetch and retry"})
	}
	s.DB.First(&proposal, "id = ?", id)
	return c.JSON(proposal)
}
