package gateway

import (
	"context"
	"time"

	"crossban/internal/models"
)

// ReviewPayload is the structured provenance content of an unban review
// prompt. Rendering is entirely the gateway's concern.
type ReviewPayload struct {
	User models.UserRef
	// ReviewGuildID is the guild whose ban is under review, i.e. where the
	// unban would be applied.
	ReviewGuildID   int64
	SourceGuildID   int64
	SourceGuildName string
	BannedBy        int64
	BanReason       string
	BannedAt        time.Time
	UnbannedBy      int64
	UnbannedAt      time.Time
}

// Review outcome actions shown in resolved messages.
const (
	OutcomeUnbanned = "unbanned"
	OutcomeIgnored  = "ignored"
)

// OutcomePayload is the content of a resolved review message, replacing the
// original prompt in place.
type OutcomePayload struct {
	ReviewPayload
	Action     string
	ActorID    int64
	ResolvedAt time.Time
}

// GuildProfile is the display identity of a guild, used in review prompts.
type GuildProfile struct {
	ID   int64
	Name string
	Link string
}

// Gateway is the platform boundary: the remote guild ban API plus the
// notification surface used by the review workflow. Calls are fire-and-check
// with no partial states; a failed call leaves the remote guild untouched.
type Gateway interface {
	// ApplyBan bans the user in the guild. The reason is forwarded for
	// auditability on the remote side where the platform supports it.
	ApplyBan(ctx context.Context, guildID, userID int64, reason string) error
	// RemoveBan lifts the user's ban in the guild.
	RemoveBan(ctx context.Context, guildID, userID int64, reason string) error
	// IsBanned reports whether the platform currently shows the user as
	// banned in the guild.
	IsBanned(ctx context.Context, guildID, userID int64) (bool, error)

	// PostReview posts a review prompt with an {unban, ignore} action pair
	// into the given channel and returns the message ID.
	PostReview(ctx context.Context, channelID int64, payload ReviewPayload) (int, error)
	// UpdateOutcome rewrites a previously posted review message in place
	// with the terminal outcome.
	UpdateOutcome(ctx context.Context, channelID int64, messageID int, payload OutcomePayload) error

	// ResolveUser fetches the user's display identity, degrading to an
	// ID-only reference when the lookup fails.
	ResolveUser(ctx context.Context, userID int64) models.UserRef
	// GuildProfile fetches the guild's display identity.
	GuildProfile(ctx context.Context, guildID int64) GuildProfile
}
