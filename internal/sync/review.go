package sync

import (
	"context"
	"fmt"
	"time"

	"crossban/internal/gateway"
	"crossban/internal/logger"
	"crossban/internal/metrics"
	"crossban/internal/models"
	"crossban/internal/storage"
)

// ReviewAction is a moderator's choice on a posted review prompt.
type ReviewAction struct {
	// GuildID is the reviewing guild, where the unban would be applied.
	GuildID   int64
	UserID    int64
	ActorID   int64
	ChannelID int64
	MessageID int
	// Unban is true for "unban locally", false for "ignore".
	Unban bool
}

// ReviewOutcome is the result of resolving a review action, reported back
// to the acting moderator by the UI layer.
type ReviewOutcome int

const (
	// ReviewResolvedUnban: the local ban was lifted.
	ReviewResolvedUnban ReviewOutcome = iota
	// ReviewResolvedIgnore: the local ban stays in force.
	ReviewResolvedIgnore
	// ReviewNotBanned: re-validation found no local ban to lift; the
	// prompt is left pending and effectively abandoned.
	ReviewNotBanned
	// ReviewFailed: the remote unban call failed; pressing the action
	// again retries it.
	ReviewFailed
)

// Reviewer turns pending review prompts into terminal outcomes and
// reconciles the store.
type Reviewer struct {
	store *storage.Store
	gw    gateway.Gateway
	// outcomeDelay throttles the in-place message update after resolving,
	// to stay under the platform's rate limits. Each action runs in its
	// own handler goroutine, so sleeping here blocks nothing else.
	outcomeDelay time.Duration
}

// NewReviewer builds a reviewer with the default outcome delay.
func NewReviewer(store *storage.Store, gw gateway.Gateway) *Reviewer {
	return &Reviewer{store: store, gw: gw, outcomeDelay: time.Second}
}

// Resolve applies a moderator's decision to a pending review prompt.
//
// For "unban" it first re-validates that the platform still shows the user
// banned in the guild and that this engine recorded that ban; if either
// check fails the outcome is ReviewNotBanned, no remote call is made and
// the prompt stays pending. A failed remote unban leaves both the remote
// ban and the store untouched so the action can simply be pressed again.
// "ignore" terminalizes the prompt without touching the remote guild.
func (r *Reviewer) Resolve(ctx context.Context, action ReviewAction) (ReviewOutcome, error) {
	prompt, err := r.store.Reviews.GetByMessage(action.ChannelID, action.MessageID)
	if err != nil {
		return ReviewFailed, fmt.Errorf("looking up review prompt: %w", err)
	}
	if prompt == nil {
		return ReviewFailed, fmt.Errorf("no review prompt recorded for message %d in channel %d", action.MessageID, action.ChannelID)
	}

	// A second press on an already resolved prompt is a no-op.
	switch prompt.Status {
	case models.ReviewUnbanned:
		return ReviewResolvedUnban, nil
	case models.ReviewIgnored:
		return ReviewResolvedIgnore, nil
	}

	event, err := r.store.BanEvents.GetByID(prompt.BanEventID)
	if err != nil {
		return ReviewFailed, fmt.Errorf("looking up ban event %d: %w", prompt.BanEventID, err)
	}

	var status string
	var outcome ReviewOutcome
	if action.Unban {
		stillBanned, err := r.gw.IsBanned(ctx, action.GuildID, action.UserID)
		if err != nil {
			return ReviewFailed, fmt.Errorf("checking remote ban state: %w", err)
		}
		recorded, err := r.store.GuildBans.IsBanned(action.UserID, action.GuildID)
		if err != nil {
			return ReviewFailed, fmt.Errorf("checking recorded ban state: %w", err)
		}
		if !stillBanned || !recorded {
			logger.Infof("Review unban for user %d in guild %d: not banned there, abandoning", action.UserID, action.GuildID)
			return ReviewNotBanned, nil
		}

		reason := fmt.Sprintf("%d: Manually unbanned by user %d after review", prompt.BanEventID, action.ActorID)
		if err := r.gw.RemoveBan(ctx, action.GuildID, action.UserID, reason); err != nil {
			logger.Errorf("Failed to unban user %d in guild %d during review: %v", action.UserID, action.GuildID, err)
			return ReviewFailed, err
		}
		if err := r.store.GuildBans.MarkUnbanned(action.UserID, action.GuildID); err != nil {
			logger.Errorf("Error recording review unban for user %d in guild %d: %v", action.UserID, action.GuildID, err)
		}
		status = models.ReviewUnbanned
		outcome = ReviewResolvedUnban
	} else {
		// The ban stays in force in this guild; nothing to call remotely.
		status = models.ReviewIgnored
		outcome = ReviewResolvedIgnore
	}

	if err := r.store.Reviews.Resolve(prompt.ID, status, action.ActorID); err != nil {
		logger.Errorf("Error resolving review prompt %d: %v", prompt.ID, err)
	}
	metrics.ReviewsResolvedTotal.WithLabelValues(status).Inc()

	// Throttle before touching the message again.
	time.Sleep(r.outcomeDelay)
	r.updateMessage(ctx, action, prompt, event, outcome)

	return outcome, nil
}

// updateMessage rewrites the original review prompt in place with the
// terminal outcome. A failed edit is logged only; the decision itself has
// already been applied and recorded.
func (r *Reviewer) updateMessage(ctx context.Context, action ReviewAction, prompt *models.ReviewPrompt, event *models.BanEvent, outcome ReviewOutcome) {
	payload := gateway.OutcomePayload{
		ReviewPayload: gateway.ReviewPayload{
			User:          r.gw.ResolveUser(ctx, action.UserID),
			ReviewGuildID: action.GuildID,
		},
		ActorID:    action.ActorID,
		ResolvedAt: time.Now(),
	}
	if outcome == ReviewResolvedUnban {
		payload.Action = gateway.OutcomeUnbanned
	} else {
		payload.Action = gateway.OutcomeIgnored
	}
	payload.UnbannedBy = prompt.UnbannedBy
	payload.UnbannedAt = prompt.CreatedAt
	if event != nil {
		payload.SourceGuildID = event.SourceGuildID
		payload.SourceGuildName = r.gw.GuildProfile(ctx, event.SourceGuildID).Name
		payload.BannedBy = event.SourceUserID
		payload.BanReason = event.Reason
		payload.BannedAt = event.CreatedAt
	}

	if err := r.gw.UpdateOutcome(ctx, action.ChannelID, action.MessageID, payload); err != nil {
		logger.Errorf("Failed to update review message %d in channel %d: %v", action.MessageID, action.ChannelID, err)
	}
}
