package models

// NoticeAction is the kind of moderation action a platform notification
// reports.
type NoticeAction string

const (
	BanAdded   NoticeAction = "ban_added"
	BanRemoved NoticeAction = "ban_removed"
)

// Notice is a raw ban-add/ban-remove notification from the platform event
// source, before trust filtering.
type Notice struct {
	Action     NoticeAction
	GuildID    int64
	ExecutorID int64
	TargetID   int64
	Reason     string
}
