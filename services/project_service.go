package services

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"time"

	"resilience-registry/models"
	"resilience-registry/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type ProjectService struct {
	DB *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{DB: db}
}

// RegisterProject handles POST /projects (multipart form, optional logo).
func (s *ProjectService) RegisterProject(c *fiber.Ctx) error {
	name := c.FormValue("name")
	description := c.FormValue("description")
	repoURL := c.FormValue("repo_url")
	websiteURL := c.FormValue("website_url")
	realmReference := c.FormValue("realm_reference")

	if name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}

	ownerID, _ := c.Locals("user_id").(string)
	if ownerID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "missing user context"})
	}

	projectSlug := slug.Make(name)
	var existing models.Project
	if err := s.DB.Where("slug = ?", projectSlug).First(&existing).Error; err == nil {
		// Slug taken — suffix with a short uuid fragment, same as reserved
		// names in the old registry.
		projectSlug = fmt.Sprintf("%s-%s", projectSlug, uuid.NewString()[:8])
	}

	// Logo upload to R2 (optional)
	var logoURL string
	if logo, err := c.FormFile("logo"); err == nil && logo.Size > 0 {
		ext := filepath.Ext(logo.Filename)
		if ext == "" {
			ext = ".png"
		}
		key := "projects/logos/" + uuid.NewString() + ext
		url, err := utils.UploadFileToR2(logo, key)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "failed to upload logo"})
		}
		logoURL = url
	}

	project := &models.Project{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		RealmReference: realmReference,
		Name:           name,
		Slug:           projectSlug,
		Description:    description,
		RepoURL:        repoURL,
		WebsiteURL:     websiteURL,
		LogoURL:        logoURL,
	}
	if err := s.DB.Create(project).Error; err != nil {
		log.Printf("ERROR creating project: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}
	return c.Status(201).JSON(project)
}

// GetAllProjects lists registered projects ordered by composite resilience
// score, with open bounty counts attached for the dashboard list view.
func (s *ProjectService) GetAllProjects(c *fiber.Ctx) error {
	query := s.DB.Model(&models.Project{}).Order("composite_score DESC, created_at DESC")
	if c.Query("featured") == "true" {
		query = query.Where("is_featured = true")
	}
	if realm := c.Query("realm"); realm != "" {
		query = query.Where("realm_reference = ?", realm)
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			query = query.Limit(n)
		}
	}

	var projects []models.Project
	if err := query.Find(&projects).Error; err != nil {
		log.Printf("ERROR fetching projects: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch projects"})
	}

	for i := range projects {
		var count int64
		s.DB.Model(&models.Bounty{}).
			Where("realm_reference = ? AND status = 'open'", projects[i].RealmReference).
			Count(&count)
		projects[i].OpenBountyCount = count
	}
	return c.JSON(projects)
}

// GetProject fetches a project by id or slug.
func (s *ProjectService) GetProject(c *fiber.Ctx) error {
	idOrSlug := c.Params("id")
	var project models.Project
	err := s.DB.Where("id = ?", idOrSlug).Or("slug = ?", idOrSlug).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "project not found"})
		}
		log.Printf("ERROR fetching project %s: %v", idOrSlug, err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	var count int64
	s.DB.Model(&models.Bounty{}).
		Where("realm_reference = ? AND status = 'open'", project.RealmReference).
		Count(&count)
	project.OpenBountyCount = count
	return c.JSON(project)
}

// UpdateProject updates mutable metadata; score fields are owned by the
// sync worker and never writable here.
func (s *ProjectService) UpdateProject(c *fiber.Ctx) error {
	id := c.Params("id")
	var project models.Project
	if err := s.DB.First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "project not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	if ownerID, _ := c.Locals("user_id").(string); ownerID != project.OwnerID {
		return c.Status(403).JSON(fiber.Map{"error": "only the project owner can update it"})
	}

	updates := map[string]interface{}{}
	if v := c.FormValue("name"); v != "" {
		updates["name"] = v
	}
	if v := c.FormValue("description"); v != "" {
		updates["description"] = v
	}
	if v := c.FormValue("repo_url"); v != "" {
		updates["repo_url"] = v
	}
	if v := c.FormValue("website_url"); v != "" {
		updates["website_url"] = v
	}
	if v := c.FormValue("realm_reference"); v != "" {
		updates["realm_reference"] = v
	}

	if logo, err := c.FormFile("logo"); err == nil && logo.Size > 0 {
		ext := filepath.Ext(logo.Filename)
		if ext == "" {
			ext = ".png"
		}
		key := "projects/logos/" + uuid.NewString() + ext
		url, err := utils.UploadFileToR2(logo, key)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "failed to upload logo"})
		}
		updates["logo_url"] = url
	}

	if len(updates) == 0 {
		return c.JSON(project)
	}
	if err := s.DB.Model(&project).Updates(updates).Error; err != nil {
		log.Printf("ERROR updating project %s: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "update failed"})
	}
	s.DB.First(&project, "id = ?", id)
	return c.JSON(project)
}

// ToggleFeatured flips the dashboard featured flag (admin route).
func (s *ProjectService) ToggleFeatured(c *fiber.Ctx) error {
	id := c.Params("id")
	var project models.Project
	if err := s.DB.First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "project not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if err := s.DB.Model(&project).Update("is_featured", !project.IsFeatured).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "update failed"})
	}
	project.IsFeatured = !project.IsFeatured
	return c.JSON(project)
}

// markStaleScores flags projects whose score snapshot is older than the
// staleness window. Called from the scheduler, not a route.
func (s *ProjectService) markStaleScores(window time.Duration) {
	cutoff := time.Now().Add(-window)
	result := s.DB.Model(&models.Project{}).
		Where("score_stale = false AND (score_synced_at IS NULL OR score_synced_at < ?)", cutoff).
		Update("score_stale", true)
	if result.Error != nil {
		log.Printf("[Scheduler] failed to mark stale scores: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("[Scheduler] marked %d projects with stale scores", result.RowsAffected)
	}
}
