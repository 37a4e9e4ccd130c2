// models/realm.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Realm mirrors DAO/realm ownership from the governance indexer.
// Owned by the sync worker; request handlers only read it. Bounty creation
// is authorized against OwnerID for the referenced realm.
type Realm struct {
	ID          string    `gorm:"primaryKey;type:uuid;not null" json:"id"`
	Reference   string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"reference"` // realm pubkey, primary lookup key
	Name        string    `gorm:"not null" json:"name"`
	OwnerID     string    `gorm:"type:uuid;not null;index" json:"owner_id"`
	CouncilMint string    `gorm:"type:varchar(128)" json:"council_mint,omitempty"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	SyncedAt    time.Time `gorm:"not null" json:"synced_at"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
