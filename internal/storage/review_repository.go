package storage

import (
	"errors"
	"time"

	"crossban/internal/models"

	"gorm.io/gorm"
)

// ReviewRepository handles database operations for ReviewPrompt
type ReviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new ReviewRepository
func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// MigrateTable ensures the ReviewPrompt table exists
func (r *ReviewRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.ReviewPrompt{})
}

// Create records a freshly posted review prompt in the pending state.
func (r *ReviewRepository) Create(prompt *models.ReviewPrompt) error {
	if prompt.Status == "" {
		prompt.Status = models.ReviewPending
	}
	return r.db.Create(prompt).Error
}

// GetByMessage looks up the prompt behind a posted review message.
func (r *ReviewRepository) GetByMessage(channelID int64, messageID int) (*models.ReviewPrompt, error) {
	var prompt models.ReviewPrompt
	err := r.db.Where("channel_id = ? AND message_id = ?", channelID, messageID).First(&prompt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prompt, nil
}

// Resolve moves a pending prompt into a terminal state.
func (r *ReviewRepository) Resolve(id uint, status string, resolvedBy int64) error {
	return r.db.Model(&models.ReviewPrompt{}).
		Where("id = ? AND status = ?", id, models.ReviewPending).
		Updates(map[string]interface{}{
			"status":      status,
			"resolved_by": resolvedBy,
			"updated_at":  time.Now(),
		}).Error
}

// ListPendingForGuild returns unresolved prompts for one guild.
func (r *ReviewRepository) ListPendingForGuild(guildID int64) ([]models.ReviewPrompt, error) {
	var prompts []models.ReviewPrompt
	err := r.db.Where("guild_id = ? AND status = ?", guildID, models.ReviewPending).Find(&prompts).Error
	return prompts, err
}
