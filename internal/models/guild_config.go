package models

import "time"

// UnbanMode controls how a guild handles unbans coming in from another
// guild in the federation.
type UnbanMode string

const (
	// UnbanModeAuto lifts the local ban immediately.
	UnbanModeAuto UnbanMode = "AUTO"
	// UnbanModeReview posts a prompt to the guild's logging channel and
	// waits for a moderator to decide.
	UnbanModeReview UnbanMode = "REVIEW"
)

// GuildConfig is the per-guild federation policy. Every federated guild has
// exactly one row, created on first sight with permissive defaults.
type GuildConfig struct {
	GuildID          int64     `gorm:"primaryKey;autoIncrement:false"`
	Enabled          bool      `gorm:"default:true"`
	AutoBan          bool      `gorm:"default:true"`
	UnbanMode        UnbanMode `gorm:"type:varchar(16);default:'AUTO'"`
	LoggingChannelID int64     `gorm:"default:0"`
	CreatedAt        time.Time
}

// IsSyncTarget reports whether an incoming ban should be applied to this
// guild automatically. The originating guild is never a target of its own
// ban; callers exclude it before asking.
func (c GuildConfig) IsSyncTarget() bool {
	return c.Enabled && c.AutoBan
}

// IsUnbanTarget reports whether this guild participates in incoming unban
// handling at all (AUTO or REVIEW).
func (c GuildConfig) IsUnbanTarget() bool {
	return c.Enabled
}

// WantsReview reports whether incoming unbans for this guild require a
// moderator decision. A guild in REVIEW mode without a logging channel has
// nowhere to post the prompt, so it is skipped entirely.
func (c GuildConfig) WantsReview() bool {
	return c.UnbanMode == UnbanModeReview
}
