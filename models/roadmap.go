package models

import (
	"time"
)

// RoadmapItem is one milestone on a project's public roadmap, ordered by
// sort_order within the project.
type RoadmapItem struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	ProjectID   string     `gorm:"type:uuid;not null;index" json:"project_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	SortOrder   int        `gorm:"column:sort_order;default:0" json:"sort_order"`
	Status      string     `gorm:"type:varchar(16);not null;default:'planned'" json:"status"` // planned → active → done
	TargetDate  *time.Time `json:"target_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
