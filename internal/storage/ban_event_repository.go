package storage

import (
	"errors"
	"fmt"
	"time"

	"crossban/internal/models"

	"gorm.io/gorm"
)

// BanEventRepository handles database operations for BanEvent
type BanEventRepository struct {
	db *gorm.DB
}

// NewBanEventRepository creates a new BanEventRepository
func NewBanEventRepository(db *gorm.DB) *BanEventRepository {
	return &BanEventRepository{db: db}
}

// MigrateTable ensures the BanEvent table exists
func (r *BanEventRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.BanEvent{})
}

// CreateOrReuseActive inserts a new BanEvent unless the user already has an
// active one, in which case the existing event is returned. Keeps the "at
// most one active event per user" invariant: a duplicate ban notification
// continues the ongoing ban context instead of starting a parallel one.
func (r *BanEventRepository) CreateOrReuseActive(event *models.BanEvent) (*models.BanEvent, bool, error) {
	existing, err := r.GetActive(event.UserID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	if err := r.db.Create(event).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create ban event: %w", err)
	}
	return event, true, nil
}

// GetActive returns the active (not revoked) ban event for a user, or nil.
func (r *BanEventRepository) GetActive(userID int64) (*models.BanEvent, error) {
	var event models.BanEvent
	err := r.db.Where("user_id = ? AND revoked = ?", userID, false).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetByID returns a ban event by its ID, or nil.
func (r *BanEventRepository) GetByID(id uint) (*models.BanEvent, error) {
	var event models.BanEvent
	err := r.db.First(&event, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Revoke marks the user's active ban event as revoked. The row is kept for
// history; revocation is a state transition, never a deletion.
func (r *BanEventRepository) Revoke(userID int64) error {
	return r.db.Model(&models.BanEvent{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Updates(map[string]interface{}{"revoked": true, "updated_at": time.Now()}).Error
}
