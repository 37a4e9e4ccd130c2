package models

import (
	"time"
)

// Project represents a registered Solana project scored on resilience.
// Score components are opaque numeric inputs mirrored from the scoring
// service — this service never computes them.
type Project struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	OwnerID        string `gorm:"type:uuid;not null;index" json:"owner_id"`
	RealmReference string `gorm:"type:varchar(128);index" json:"realm_reference,omitempty"`
	Name           string `gorm:"not null" json:"name"`
	Slug           string `gorm:"uniqueIndex;not null" json:"slug"`
	Description    string `gorm:"type:text" json:"description,omitempty"`
	RepoURL        string `json:"repo_url,omitempty"`
	WebsiteURL     string `json:"website_url,omitempty"`
	LogoURL        string `json:"logo_url,omitempty"`
	IsFeatured     bool   `gorm:"default:false" json:"is_featured"`

	// Resilience score mirrors (0-100 each). Synced by the score worker.
	GithubScore     float64 `gorm:"default:0" json:"github_score"`
	DependencyScore float64 `gorm:"default:0" json:"dependency_score"`
	GovernanceScore float64 `gorm:"default:0" json:"governance_score"`
	CompositeScore  float64 `gorm:"default:0;index" json:"composite_score"`

	ScoreStale    bool       `gorm:"default:false" json:"score_stale"`
	ScoreSyncedAt *time.Time `json:"score_synced_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Calculated for list views, not stored
	OpenBountyCount int64 `json:"open_bounty_count,omitempty" gorm:"-"`
}

// ProjectScore mirrors one score snapshot from the scoring service.
// Used by the sync worker as the upsert payload shape.
type ProjectScore struct {
	ProjectID       string    `json:"project_id"`
	GithubScore     float64   `json:"github_score"`
	DependencyScore float64   `json:"dependency_score"`
	GovernanceScore float64   `json:"governance_score"`
	CompositeScore  float64   `json:"composite_score"`
	ComputedAt      time.Time `json:"computed_at"`
}
