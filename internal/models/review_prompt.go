package models

import "time"

// Review prompt states. A prompt is created pending when a REVIEW-mode
// guild receives an incoming unban, and moves to exactly one terminal state
// when a moderator acts on it. Re-validation failures leave it pending.
const (
	ReviewPending  = "pending"
	ReviewUnbanned = "unbanned"
	ReviewIgnored  = "ignored"
)

// ReviewPrompt tracks one posted unban-review message and its outcome, so
// callback handlers can resolve reviews across restarts and the original
// message can be updated in place.
type ReviewPrompt struct {
	ID         uint  `gorm:"primaryKey;autoIncrement"`
	GuildID    int64 `gorm:"index;not null"`
	UserID     int64 `gorm:"index;not null"`
	BanEventID uint  `gorm:"not null"`
	// ChannelID/MessageID locate the posted review message.
	ChannelID int64 `gorm:"uniqueIndex:idx_channel_message"`
	MessageID int   `gorm:"uniqueIndex:idx_channel_message"`
	// UnbannedBy is the upstream moderator whose unban triggered the review.
	UnbannedBy int64  `gorm:"default:0"`
	Status     string `gorm:"type:varchar(16);default:'pending'"`
	ResolvedBy int64  `gorm:"default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
