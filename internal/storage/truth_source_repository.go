package storage

import (
	"crossban/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TruthSourceRepository handles database operations for TruthSource
type TruthSourceRepository struct {
	db *gorm.DB
}

// NewTruthSourceRepository creates a new TruthSourceRepository
func NewTruthSourceRepository(db *gorm.DB) *TruthSourceRepository {
	return &TruthSourceRepository{db: db}
}

// MigrateTable ensures the TruthSource table exists
func (r *TruthSourceRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.TruthSource{})
}

// Add registers userID as a source of truth for guildID. Adding an existing
// pair is a no-op.
func (r *TruthSourceRepository) Add(guildID, userID, createdBy int64) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.TruthSource{
		GuildID:   guildID,
		UserID:    userID,
		CreatedBy: createdBy,
	}).Error
}

// Remove drops userID as a source of truth for guildID.
func (r *TruthSourceRepository) Remove(guildID, userID int64) error {
	return r.db.Where("guild_id = ? AND user_id = ?", guildID, userID).
		Delete(&models.TruthSource{}).Error
}

// ListByGuild returns the sources of truth for one guild.
func (r *TruthSourceRepository) ListByGuild(guildID int64) ([]models.TruthSource, error) {
	var rows []models.TruthSource
	err := r.db.Where("guild_id = ?", guildID).Find(&rows).Error
	return rows, err
}

// ListAll returns every source of truth, used to build the in-memory trust
// index at startup.
func (r *TruthSourceRepository) ListAll() ([]models.TruthSource, error) {
	var rows []models.TruthSource
	err := r.db.Find(&rows).Error
	return rows, err
}
