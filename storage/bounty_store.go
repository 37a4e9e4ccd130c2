// Package storage provides the Postgres-backed implementations of the
// lifecycle persistence contracts.
package storage

import (
	"context"
	"errors"

	"resilience-registry/lifecycle"
	"resilience-registry/models"

	"gorm.io/gorm"
)

// BountyStore implements lifecycle.Store over GORM/Postgres.
type BountyStore struct {
	DB *gorm.DB
}

func NewBountyStore(db *gorm.DB) *BountyStore {
	return &BountyStore{DB: db}
}

func (s *BountyStore) Get(ctx context.Context, id string) (*models.Bounty, error) {
	var b models.Bounty
	if err := s.DB.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lifecycle.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *BountyStore) Insert(ctx context.Context, b *models.Bounty) error {
	if err := s.DB.WithContext(ctx).Create(b).Error; err != nil {
		// Requires gorm.Config{TranslateError: true} so the pg unique
		// violation surfaces as ErrDuplicatedKey.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return lifecycle.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// ConditionalUpdate is the single concurrency primitive of the engine:
// UPDATE bounties SET <patch>, status = next WHERE id = ? AND status = ?.
// Zero rows affected means the row already moved — the caller lost the
// race and gets a Conflict, never a silent overwrite.
func (s *BountyStore) ConditionalUpdate(ctx context.Context, id string, expected lifecycle.Status, next lifecycle.Status, patch map[string]interface{}) (bool, error) {
	updates := make(map[string]interface{}, len(patch)+1)
	for k, v := range patch {
		updates[k] = v
	}
	updates["status"] = string(next)

	result := s.DB.WithContext(ctx).
		Model(&models.Bounty{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RealmResolver answers bounty-creation authorization from the realm
// mirror table. The mirror is written only by the realm sync worker.
type RealmResolver struct {
	DB *gorm.DB
}

func NewRealmResolver(db *gorm.DB) *RealmResolver {
	return &RealmResolver{DB: db}
}

func (r *RealmResolver) IsRealmOwner(ctx context.Context, realmReference, actorID string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&models.Realm{}).
		Where("reference = ? AND owner_id = ? AND is_active = true", realmReference, actorID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
