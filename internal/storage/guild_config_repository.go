package storage

import (
	"errors"

	"crossban/internal/models"

	"gorm.io/gorm"
)

// GuildConfigRepository handles database operations for GuildConfig
type GuildConfigRepository struct {
	db *gorm.DB
}

// NewGuildConfigRepository creates a new GuildConfigRepository
func NewGuildConfigRepository(db *gorm.DB) *GuildConfigRepository {
	return &GuildConfigRepository{db: db}
}

// MigrateTable ensures the GuildConfig table exists
func (r *GuildConfigRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.GuildConfig{})
}

// Get returns the config for a guild, or nil if the guild is unknown.
func (r *GuildConfigRepository) Get(guildID int64) (*models.GuildConfig, error) {
	var cfg models.GuildConfig
	err := r.db.First(&cfg, "guild_id = ?", guildID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetOrCreate returns the config for a guild, creating it with defaults
// (enabled, auto-ban, AUTO unban mode) on first sight.
func (r *GuildConfigRepository) GetOrCreate(guildID int64) (*models.GuildConfig, error) {
	cfg, err := r.Get(guildID)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}

	cfg = &models.GuildConfig{
		GuildID:   guildID,
		Enabled:   true,
		AutoBan:   true,
		UnbanMode: models.UnbanModeAuto,
	}
	if err := r.db.Create(cfg).Error; err != nil {
		return nil, err
	}
	return cfg, nil
}

// Update persists changed policy fields for a guild.
func (r *GuildConfigRepository) Update(cfg *models.GuildConfig) error {
	return r.db.Model(&models.GuildConfig{}).
		Where("guild_id = ?", cfg.GuildID).
		Updates(map[string]interface{}{
			"enabled":            cfg.Enabled,
			"auto_ban":           cfg.AutoBan,
			"unban_mode":         cfg.UnbanMode,
			"logging_channel_id": cfg.LoggingChannelID,
		}).Error
}

// Delete removes the config when a guild leaves the federation's configured
// set.
func (r *GuildConfigRepository) Delete(guildID int64) error {
	return r.db.Delete(&models.GuildConfig{}, "guild_id = ?", guildID).Error
}

// ListAll returns every guild config.
func (r *GuildConfigRepository) ListAll() ([]models.GuildConfig, error) {
	var configs []models.GuildConfig
	err := r.db.Find(&configs).Error
	return configs, err
}

// ListSyncTargets returns configs that accept incoming bans automatically.
func (r *GuildConfigRepository) ListSyncTargets() ([]models.GuildConfig, error) {
	var configs []models.GuildConfig
	err := r.db.Where("auto_ban = ? AND enabled = ?", true, true).Find(&configs).Error
	return configs, err
}

// ListEnabled returns configs participating in the federation.
func (r *GuildConfigRepository) ListEnabled() ([]models.GuildConfig, error) {
	var configs []models.GuildConfig
	err := r.db.Where("enabled = ?", true).Find(&configs).Error
	return configs, err
}
