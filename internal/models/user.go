package models

import "fmt"

// UserRef is what the notification layer knows about a user. Resolution can
// fail for users the bot shares no chat with; in that case only the ID is
// carried and Full is false.
type UserRef struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	Full      bool
}

// FullUser builds a resolved reference.
func FullUser(id int64, firstName, lastName, username string) UserRef {
	return UserRef{ID: id, FirstName: firstName, LastName: lastName, Username: username, Full: true}
}

// MinimalUser builds an ID-only reference for users that could not be
// resolved at the boundary.
func MinimalUser(id int64) UserRef {
	return UserRef{ID: id}
}

// DisplayName returns a human-readable name, falling back to the ID.
func (u UserRef) DisplayName() string {
	if !u.Full {
		return fmt.Sprintf("user %d", u.ID)
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		name = fmt.Sprintf("user %d", u.ID)
	}
	return name
}

// Mention returns an HTML link that mentions the user in Telegram messages.
func (u UserRef) Mention() string {
	return fmt.Sprintf("<a href=\"tg://user?id=%d\">%s</a>", u.ID, u.DisplayName())
}
