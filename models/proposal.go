package models

import (
	"time"
)

// Proposal status mirror values. The registry never counts votes — the
// status is supplied by callers relaying the governance outcome.
const (
	ProposalStatusDraft     = "draft"
	ProposalStatusVoting    = "voting"
	ProposalStatusSucceeded = "succeeded"
	ProposalStatusDefeated  = "defeated"
	ProposalStatusExecuted  = "executed"
)

// Proposal is a DAO funding proposal layered over the registry.
type Proposal struct {
	ID              string     `gorm:"primaryKey;type:uuid" json:"id"`
	RealmReference  string     `gorm:"type:varchar(128);not null;index" json:"realm_reference"`
	ProjectID       string     `gorm:"type:uuid;index" json:"project_id,omitempty"`
	CreatorID       string     `gorm:"type:uuid;not null;index" json:"creator_id"`
	Title           string     `gorm:"not null" json:"title"`
	Summary         string     `gorm:"type:text" json:"summary,omitempty"`
	RequestedAmount float64    `gorm:"not null" json:"requested_amount"`
	ProposalAddress string     `gorm:"type:varchar(128)" json:"proposal_address,omitempty"`
	Status          string     `gorm:"type:varchar(16);not null;default:'draft'" json:"status"`
	VotingStartedAt *time.Time `json:"voting_started_at,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
