package storage

import (
	"time"

	"crossban/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GuildBanRepository handles database operations for GuildBan
type GuildBanRepository struct {
	db *gorm.DB
}

// NewGuildBanRepository creates a new GuildBanRepository
func NewGuildBanRepository(db *gorm.DB) *GuildBanRepository {
	return &GuildBanRepository{db: db}
}

// MigrateTable ensures the GuildBan table exists
func (r *GuildBanRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.GuildBan{})
}

// Upsert records that the user is banned (or not) in the guild. Conflicts
// on the (user_id, guild_id, is_banned) triple update the owning ban event
// and the last-updated timestamp instead of duplicating the row.
func (r *GuildBanRepository) Upsert(ban *models.GuildBan) error {
	now := time.Now()
	if ban.AppliedAt.IsZero() {
		ban.AppliedAt = now
	}
	ban.LastUpdated = now
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "guild_id"}, {Name: "is_banned"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"ban_event_id": ban.BanEventID,
			"last_updated": now,
		}),
	}).Create(ban).Error
}

// MarkUnbanned flips the guild's ban row for the user to not banned. Any
// stale not-banned row from a previous ban/unban cycle is dropped first so
// the flip cannot violate the uniqueness of the state triple.
func (r *GuildBanRepository) MarkUnbanned(userID, guildID int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND guild_id = ? AND is_banned = ?", userID, guildID, false).
			Delete(&models.GuildBan{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.GuildBan{}).
			Where("user_id = ? AND guild_id = ? AND is_banned = ?", userID, guildID, true).
			Updates(map[string]interface{}{"is_banned": false, "last_updated": time.Now()}).Error
	})
}

// IsBanned reports whether this engine recorded the user as banned in the
// guild.
func (r *GuildBanRepository) IsBanned(userID, guildID int64) (bool, error) {
	var count int64
	err := r.db.Model(&models.GuildBan{}).
		Where("user_id = ? AND guild_id = ? AND is_banned = ?", userID, guildID, true).
		Count(&count).Error
	return count > 0, err
}

// GetBansForUser returns all guilds where the user is currently recorded as
// banned by this engine.
func (r *GuildBanRepository) GetBansForUser(userID int64) ([]models.GuildBan, error) {
	var bans []models.GuildBan
	err := r.db.Where("user_id = ? AND is_banned = ?", userID, true).Find(&bans).Error
	return bans, err
}

// GetBansForEvent returns all guild rows owned by a ban event.
func (r *GuildBanRepository) GetBansForEvent(banEventID uint) ([]models.GuildBan, error) {
	var bans []models.GuildBan
	err := r.db.Where("ban_event_id = ?", banEventID).Find(&bans).Error
	return bans, err
}
