package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Bounty release modes — how escrowed funds are ultimately authorized.
const (
	ReleaseModeDAO      = "dao"      // payout gated by a DAO vote
	ReleaseModeDirect   = "direct"   // creator releases directly, no vote
	ReleaseModeMultisig = "multisig" // reserved, not yet wired to a program
)

// Milestone is one entry of a bounty's payout schedule.
type Milestone struct {
	Title     string  `json:"title"`
	AmountSOL float64 `json:"amount_sol"`
}

// MilestoneList is stored as a JSONB column on the bounty row so the whole
// aggregate lives in a single row (the status-guarded update must cover it).
type MilestoneList []Milestone

func (m MilestoneList) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *MilestoneList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("unsupported source type for MilestoneList")
	}
}

// StringList is a JSONB-backed list of strings (evidence links).
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported source type for StringList")
	}
}

// Bounty is the aggregate root of the bounty lifecycle. One row per bounty;
// the status column doubles as the optimistic-concurrency guard, so every
// mutating transition is a single UPDATE ... WHERE id = ? AND status = ?.
type Bounty struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	CreatorID      string `gorm:"type:uuid;not null;index" json:"creator_id"`
	RealmReference string `gorm:"type:varchar(128);not null;index" json:"realm_reference"`

	// Terms — write-once at creation.
	Title        string        `gorm:"not null" json:"title"`
	Description  string        `gorm:"type:text" json:"description,omitempty"`
	RewardAmount float64       `gorm:"not null" json:"reward_amount"`
	ReleaseMode  string        `gorm:"type:varchar(16);not null" json:"release_mode"`
	Milestones   MilestoneList `gorm:"type:jsonb" json:"milestones,omitempty"`

	// Lifecycle fields — written only through validated transitions.
	Status              string     `gorm:"type:varchar(16);not null;index" json:"status"`
	ClaimerID           string     `gorm:"type:uuid;index" json:"claimer_id,omitempty"`
	ClaimerWallet       string     `gorm:"type:varchar(128)" json:"claimer_wallet,omitempty"`
	EvidenceSummary     string     `gorm:"type:text" json:"evidence_summary,omitempty"`
	EvidenceLinks       StringList `gorm:"type:jsonb" json:"evidence_links,omitempty"`
	EscrowAddress       string     `gorm:"type:varchar(128)" json:"escrow_address,omitempty"`
	EscrowTxSignature   string     `gorm:"type:varchar(128)" json:"escrow_tx_signature,omitempty"`
	GovernanceReference string     `gorm:"type:varchar(128)" json:"governance_reference,omitempty"`
	ProposalAddress     string     `gorm:"type:varchar(128)" json:"proposal_address,omitempty"`
	ReleaseTxSignature  string     `gorm:"type:varchar(128)" json:"release_tx_signature,omitempty"`

	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	FundedAt    *time.Time `json:"funded_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

// BountyEvent is an append-only audit record of a successful transition.
// Written by the HTTP layer after the engine commits, never by the engine
// itself (the engine guarantees exactly one write per call).
type BountyEvent struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	BountyID   string    `gorm:"type:uuid;not null;index" json:"bounty_id"`
	Action     string    `gorm:"type:varchar(32);not null" json:"action"`
	ActorID    string    `gorm:"type:uuid;not null" json:"actor_id"`
	FromStatus string    `gorm:"type:varchar(16)" json:"from_status"`
	ToStatus   string    `gorm:"type:varchar(16);not null" json:"to_status"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
