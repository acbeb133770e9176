package models

import "time"

// GuildBan is the per-guild materialized ban status caused by this engine:
// "user X was banned in guild Y because of ban event Z". One BanEvent owns
// many GuildBan rows, one per guild it was propagated to plus the source
// guild itself.
//
// The (user_id, guild_id, is_banned) triple is unique; re-applying the same
// state updates BanEventID/LastUpdated instead of duplicating the row.
type GuildBan struct {
	ID          uint  `gorm:"primaryKey;autoIncrement"`
	UserID      int64 `gorm:"uniqueIndex:idx_user_guild_banned;not null"`
	GuildID     int64 `gorm:"uniqueIndex:idx_user_guild_banned;not null"`
	IsBanned    bool  `gorm:"uniqueIndex:idx_user_guild_banned"`
	BanEventID  *uint `gorm:"index"`
	AppliedAt   time.Time
	LastUpdated time.Time
}
