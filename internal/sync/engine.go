package sync

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"crossban/internal/gateway"
	"crossban/internal/logger"
	"crossban/internal/metrics"
	"crossban/internal/models"
	"crossban/internal/storage"
)

// BanNotice is a trust-filtered ban notification handed to the engine.
type BanNotice struct {
	UserID        int64
	SourceGuildID int64
	SourceUserID  int64
	Reason        string
}

// UnbanNotice is a trust-filtered unban notification handed to the engine.
type UnbanNotice struct {
	UserID        int64
	SourceGuildID int64
	ExecutorID    int64
}

// Engine is the ban sync orchestrator. On an authorized ban it records a
// ban event and fans it out to every eligible guild; on an authorized unban
// it either auto-unbans targets or routes them into human review.
//
// Propagation is best-effort and eventually consistent: each target
// succeeds or fails independently, partial success is expected, and failed
// targets are not retried until a fresh triggering event arrives.
type Engine struct {
	store   *storage.Store
	gw      gateway.Gateway
	enabled atomic.Bool
}

// NewEngine builds a disabled engine. Call Enable once startup has finished
// wiring the platform connection; until then all calls are no-ops.
func NewEngine(store *storage.Store, gw gateway.Gateway) *Engine {
	return &Engine{store: store, gw: gw}
}

// Enable turns the engine on.
func (e *Engine) Enable() { e.enabled.Store(true) }

// Disable turns the engine off; in-flight handlers keep the snapshot they
// took at entry.
func (e *Engine) Disable() { e.enabled.Store(false) }

// Enabled reports the current state of the gate.
func (e *Engine) Enabled() bool { return e.enabled.Load() }

// HandleBan records an originating ban and propagates it to all guilds with
// auto-ban enabled, excluding the source guild. The ban event and the
// source guild's own row are the durability checkpoint: if either write
// fails the operation aborts. Fan-out after that point is best-effort.
func (e *Engine) HandleBan(ctx context.Context, ban BanNotice) error {
	if !e.enabled.Load() {
		logger.Debugf("Ban sync engine disabled, ignoring ban for user %d", ban.UserID)
		return nil
	}

	event, created, err := e.store.BanEvents.CreateOrReuseActive(&models.BanEvent{
		UserID:        ban.UserID,
		SourceGuildID: ban.SourceGuildID,
		SourceUserID:  ban.SourceUserID,
		Reason:        ban.Reason,
	})
	if err != nil {
		return fmt.Errorf("recording ban event for user %d: %w", ban.UserID, err)
	}
	if created {
		metrics.BanEventsTotal.Inc()
	} else {
		// Duplicate notification while the ban is active: continue the
		// existing ban context instead of opening a second one.
		logger.Infof("User %d already has active ban event %d, re-running fan-out", ban.UserID, event.ID)
	}

	// The source guild's own state is tracked identically to synced guilds.
	if err := e.store.GuildBans.Upsert(&models.GuildBan{
		UserID:     ban.UserID,
		GuildID:    ban.SourceGuildID,
		IsBanned:   true,
		BanEventID: &event.ID,
	}); err != nil {
		return fmt.Errorf("recording source guild ban for user %d: %w", ban.UserID, err)
	}

	targets, err := e.store.GuildConfigs.ListSyncTargets()
	if err != nil {
		return fmt.Errorf("listing sync targets: %w", err)
	}

	reason := fmt.Sprintf("Synced ban from guild %d. Reason: %s", ban.SourceGuildID, ban.Reason)
	for _, cfg := range targets {
		if cfg.GuildID == ban.SourceGuildID {
			continue
		}

		if err := e.gw.ApplyBan(ctx, cfg.GuildID, ban.UserID, reason); err != nil {
			logger.Errorf("Failed to sync ban to guild %d: %v", cfg.GuildID, err)
			metrics.BanSyncTotal.WithLabelValues("failure").Inc()
			continue
		}
		metrics.BanSyncTotal.WithLabelValues("success").Inc()

		if err := e.store.GuildBans.Upsert(&models.GuildBan{
			UserID:     ban.UserID,
			GuildID:    cfg.GuildID,
			IsBanned:   true,
			BanEventID: &event.ID,
		}); err != nil {
			logger.Errorf("Error recording guild ban for user %d in guild %d: %v", ban.UserID, cfg.GuildID, err)
			continue
		}
		logger.Infof("Successfully synced ban for user %d to guild %d", ban.UserID, cfg.GuildID)
	}

	return nil
}

// RemoveBan revokes the user's active ban event and propagates the unban to
// all enabled guilds except the source. AUTO guilds are unbanned directly,
// but only where this engine recorded the user as banned; REVIEW guilds get
// a prompt in their logging channel and are left untouched pending a
// moderator decision.
func (e *Engine) RemoveBan(ctx context.Context, unban UnbanNotice) error {
	event, err := e.store.BanEvents.GetActive(unban.UserID)
	if err != nil {
		return fmt.Errorf("looking up active ban event for user %d: %w", unban.UserID, err)
	}
	if event == nil {
		logger.Debugf("No active ban event for user %d, nothing to revoke", unban.UserID)
		return nil
	}
	if !e.enabled.Load() {
		logger.Debugf("Ban sync engine disabled, ignoring unban for user %d", unban.UserID)
		return nil
	}

	if err := e.store.GuildBans.MarkUnbanned(unban.UserID, unban.SourceGuildID); err != nil {
		return fmt.Errorf("recording source guild unban for user %d: %w", unban.UserID, err)
	}
	if err := e.store.BanEvents.Revoke(unban.UserID); err != nil {
		return fmt.Errorf("revoking ban event for user %d: %w", unban.UserID, err)
	}

	targets, err := e.store.GuildConfigs.ListEnabled()
	if err != nil {
		return fmt.Errorf("listing unban targets: %w", err)
	}

	for _, cfg := range targets {
		if cfg.GuildID == unban.SourceGuildID {
			continue
		}

		if cfg.WantsReview() {
			e.postReview(ctx, cfg, event, unban)
			continue
		}

		banned, err := e.store.GuildBans.IsBanned(unban.UserID, cfg.GuildID)
		if err != nil {
			logger.Errorf("Error checking ban state for user %d in guild %d: %v", unban.UserID, cfg.GuildID, err)
			continue
		}
		if !banned {
			// Never unban someone this engine does not record as banned
			// there; a duplicate unban notification becomes a no-op.
			continue
		}

		reason := fmt.Sprintf("Synced unban from guild %d", unban.SourceGuildID)
		if err := e.gw.RemoveBan(ctx, cfg.GuildID, unban.UserID, reason); err != nil {
			logger.Errorf("Failed to sync unban to guild %d: %v", cfg.GuildID, err)
			metrics.UnbanSyncTotal.WithLabelValues("failure").Inc()
			continue
		}
		metrics.UnbanSyncTotal.WithLabelValues("success").Inc()

		if err := e.store.GuildBans.MarkUnbanned(unban.UserID, cfg.GuildID); err != nil {
			logger.Errorf("Error recording guild unban for user %d in guild %d: %v", unban.UserID, cfg.GuildID, err)
			continue
		}
		logger.Infof("Successfully synced unban for user %d to guild %d", unban.UserID, cfg.GuildID)
	}

	return nil
}

// postReview posts an unban review prompt to the guild's logging channel
// and records the pending prompt. Failures are logged and the guild is
// skipped; its ban state stays untouched either way.
func (e *Engine) postReview(ctx context.Context, cfg models.GuildConfig, event *models.BanEvent, unban UnbanNotice) {
	if cfg.LoggingChannelID == 0 {
		logger.Warningf("Guild %d requires unban review but has no logging channel, skipping", cfg.GuildID)
		return
	}

	payload := gateway.ReviewPayload{
		User:            e.gw.ResolveUser(ctx, unban.UserID),
		ReviewGuildID:   cfg.GuildID,
		SourceGuildID:   unban.SourceGuildID,
		SourceGuildName: e.gw.GuildProfile(ctx, unban.SourceGuildID).Name,
		BannedBy:        event.SourceUserID,
		BanReason:       event.Reason,
		BannedAt:        event.CreatedAt,
		UnbannedBy:      unban.ExecutorID,
		UnbannedAt:      time.Now(),
	}

	messageID, err := e.gw.PostReview(ctx, cfg.LoggingChannelID, payload)
	if err != nil {
		logger.Errorf("Failed to post unban review to channel %d for guild %d: %v", cfg.LoggingChannelID, cfg.GuildID, err)
		return
	}
	metrics.ReviewsPostedTotal.Inc()

	if err := e.store.Reviews.Create(&models.ReviewPrompt{
		GuildID:    cfg.GuildID,
		UserID:     unban.UserID,
		BanEventID: event.ID,
		ChannelID:  cfg.LoggingChannelID,
		MessageID:  messageID,
		UnbannedBy: unban.ExecutorID,
	}); err != nil {
		logger.Errorf("Error recording review prompt for guild %d: %v", cfg.GuildID, err)
	}
}
