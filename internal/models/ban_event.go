package models

import "time"

// BanEvent is the append-only record of a single originating ban. At most
// one event per user may be active (Revoked = false) at a time; lifting the
// ban flips Revoked instead of deleting the row so history is retained.
type BanEvent struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	UserID        int64  `gorm:"index;not null"`
	SourceGuildID int64  `gorm:"not null"`
	SourceUserID  int64  `gorm:"not null"`
	Reason        string `gorm:"type:text"`
	Revoked       bool   `gorm:"default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
