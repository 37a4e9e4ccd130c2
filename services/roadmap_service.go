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

type RoadmapService struct {
	DB *gorm.DB
}

func NewRoadmapService(db *gorm.DB) *RoadmapService {
	return &RoadmapService{DB: db}
}

// requireProjectOwner loads the project and checks the acting user owns
// it. Roadmaps are writable by the project owner only. Returned errors
// are fiber errors rendered by the framework's error handler.
func (s *RoadmapService) requireProjectOwner(c *fiber.Ctx, projectID string) (*models.Project, error) {
	var project models.Project
	if err := s.DB.First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(404, "project not found")
		}
		return nil, fiber.NewError(500, "DB error")
	}
	if ownerID, _ := c.Locals("user_id").(string); ownerID != project.OwnerID {
		return nil, fiber.NewError(403, "only the project owner can edit the roadmap")
	}
	return &project, nil
}

func (s *RoadmapService) CreateRoadmapItem(c *fiber.Ctx) error {
	type Req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		SortOrder   int    `json:"sort_order"`
		TargetDate  string `json:"target_date,omitempty"` // RFC3339
	}
	projectID := c.Params("id")
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Title == "" {
		return c.Status(400).JSON(fiber.Map{"error": "title is required"})
	}
	if _, err := s.requireProjectOwner(c, projectID); err != nil {
		return err
	}

	var targetDate *time.Time
	if req.TargetDate != "" {
		t, err := time.Parse(time.RFC3339, req.TargetDate)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid target_date (use RFC3339)"})
		}
		targetDate = &t
	}

	item := &models.RoadmapItem{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		Status:      "planned",
		TargetDate:  targetDate,
	}
	if err := s.DB.Create(item).Error; err != nil {
		log.Printf("ERROR creating roadmap item: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to create roadmap item"})
	}
	return c.Status(201).JSON(item)
}

func (s *RoadmapService) GetProjectRoadmap(c *fiber.Ctx) error {
	projectID := c.Params("id")
	if err := s.DB.First(&models.Project{}, "id = ?", projectID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "project not found"})
	}
	var items []models.RoadmapItem
	if err := s.DB.Where("project_id = ?", projectID).
		Order("\"sort_order\" ASC").
		Find(&items).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch roadmap"})
	}
	return c.JSON(items)
}

func (s *RoadmapService) UpdateRoadmapItem(c *fiber.Ctx) error {
	type Req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		SortOrder   int    `json:"sort_order"`
		Status      string `json:"status"`
		TargetDate  string `json:"target_date,omitempty"`
	}
	itemID := c.Params("item_id")
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	var item models.RoadmapItem
	if err := s.DB.First(&item, "id = ?", itemID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "roadmap item not found"})
	}
	if _, err := s.requireProjectOwner(c, item.ProjectID); err != nil {
		return err
	}

	if req.Status != "" {
		switch req.Status {
		case "planned", "active", "done":
		default:
			return c.Status(400).JSON(fiber.Map{"error": "status must be planned, active or done"})
		}
		item.Status = req.Status
		if req.Status == "done" && item.CompletedAt == nil {
			now := time.Now()
			item.CompletedAt = &now
		}
	}
	if req.Title != "" {
		item.Title = req.Title
	}
	item.Description = req.Description
	item.SortOrder = req.SortOrder
	if req.TargetDate != "" {
		if t, err := time.Parse(time.RFC3339, req.TargetDate); err == nil {
			item.TargetDate = &t
		}
	}
	if err := s.DB.Save(&item).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "update failed"})
	}
	return c.JSON(item)
}

func (s *RoadmapService) DeleteRoadmapItem(c *fiber.Ctx) error {
	itemID := c.Params("item_id")
	var item models.RoadmapItem
	if err := s.DB.First(&item, "id = ?", itemID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "roadmap item not found"})
	}
	if _, err := s.requireProjectOwner(c, item.ProjectID); err != nil {
		return err
	}
	result := s.DB.Delete(&models.RoadmapItem{}, "id = ?", itemID)
	if result.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if result.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "roadmap item not found"})
	}
	return c.JSON(fiber.Map{"message": "roadmap item deleted"})
}
