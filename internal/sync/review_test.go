package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"crossban/internal/models"
)

// reviewFixture seeds a guild in review mode with a banned user and a
// pending prompt, the state RemoveBan leaves behind for such guilds.
type reviewFixture struct {
	reviewer *Reviewer
	gw       *fakeGateway
	action   ReviewAction
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()

	store := newTestStore(t)
	gw := newFakeGateway()
	engine := NewEngine(store, gw)
	engine.Enable()

	addGuild(t, store, -1, nil)
	addGuild(t, store, -3, func(c *models.GuildConfig) {
		c.UnbanMode = models.UnbanModeReview
		c.LoggingChannelID = -300
	})

	ctx := context.Background()
	require.NoError(t, engine.HandleBan(ctx, BanNotice{UserID: 100, SourceGuildID: -1, SourceUserID: 7, Reason: "spam"}))
	require.NoError(t, engine.RemoveBan(ctx, UnbanNotice{UserID: 100, SourceGuildID: -1, ExecutorID: 7}))
	require.Len(t, gw.reviews, 1)

	prompts, err := store.Reviews.ListPendingForGuild(-3)
	require.NoError(t, err)
	require.Len(t, prompts, 1)

	reviewer := NewReviewer(store, gw)
	reviewer.outcomeDelay = 0

	return &reviewFixture{
		reviewer: reviewer,
		gw:       gw,
		action: ReviewAction{
			GuildID:   -3,
			UserID:    100,
			ActorID:   9,
			ChannelID: prompts[0].ChannelID,
			MessageID: prompts[0].MessageID,
		},
	}
}

func (fx *reviewFixture) pendingPrompts(t *testing.T) []models.ReviewPrompt {
	t.Helper()
	prompts, err := fx.reviewer.store.Reviews.ListPendingForGuild(-3)
	require.NoError(t, err)
	return prompts
}

func TestResolveUnbanLiftsLocalBan(t *testing.T) {
	fx := newReviewFixture(t)
	action := fx.action
	action.Unban = true

	outcome, err := fx.reviewer.Resolve(context.Background(), action)
	require.NoError(t, err)
	require.Equal(t, ReviewResolvedUnban, outcome)

	require.Equal(t, []guildUser{{-3, 100}}, fx.gw.unbanCalls)
	banned, err := fx.reviewer.store.GuildBans.IsBanned(100, -3)
	require.NoError(t, err)
	require.False(t, banned)

	require.Empty(t, fx.pendingPrompts(t))

	// The original prompt message is rewritten in place.
	require.Len(t, fx.gw.outcomes, 1)
	require.Equal(t, action.MessageID, fx.gw.outcomes[0].messageID)
	require.EqualValues(t, action.ChannelID, fx.gw.outcomes[0].channelID)
	require.Equal(t, "unbanned", fx.gw.outcomes[0].payload.Action)
	require.EqualValues(t, 9, fx.gw.outcomes[0].payload.ActorID)
	require.EqualValues(t, -1, fx.gw.outcomes[0].payload.SourceGuildID)
}

func TestResolveUnbanWhenNotBannedAbandonsPrompt(t *testing.T) {
	fx := newReviewFixture(t)
	action := fx.action
	action.Unban = true

	// Someone lifted the ban manually in the meantime.
	delete(fx.gw.banned, guildUser{-3, 100})

	outcome, err := fx.reviewer.Resolve(context.Background(), action)
	require.NoError(t, err)
	require.Equal(t, ReviewNotBanned, outcome)

	require.Empty(t, fx.gw.unbanCalls)
	require.Empty(t, fx.gw.outcomes)
	// The prompt is left pending, effectively abandoned.
	require.Len(t, fx.pendingPrompts(t), 1)
}

func TestResolveUnbanRemoteFailureIsRetryable(t *testing.T) {
	fx := newReviewFixture(t)
	action := fx.action
	action.Unban = true

	fx.gw.unbanErr[-3] = errors.New("rate limited")
	outcome, err := fx.reviewer.Resolve(context.Background(), action)
	require.Error(t, err)
	require.Equal(t, ReviewFailed, outcome)

	// Nothing changed: still banned, prompt still pending.
	banned, err := fx.reviewer.store.GuildBans.IsBanned(100, -3)
	require.NoError(t, err)
	require.True(t, banned)
	require.Len(t, fx.pendingPrompts(t), 1)

	// Pressing the action again retries the whole flow.
	delete(fx.gw.unbanErr, -3)
	outcome, err = fx.reviewer.Resolve(context.Background(), action)
	require.NoError(t, err)
	require.Equal(t, ReviewResolvedUnban, outcome)
	require.Empty(t, fx.pendingPrompts(t))
}

func TestResolveIgnoreKeepsBanInForce(t *testing.T) {
	fx := newReviewFixture(t)
	action := fx.action
	action.Unban = false

	outcome, err := fx.reviewer.Resolve(context.Background(), action)
	require.NoError(t, err)
	require.Equal(t, ReviewResolvedIgnore, outcome)

	// No remote call; the guild's ban stays.
	require.Empty(t, fx.gw.unbanCalls)
	banned, err := fx.reviewer.store.GuildBans.IsBanned(100, -3)
	require.NoError(t, err)
	require.True(t, banned)

	require.Empty(t, fx.pendingPrompts(t))
	require.Len(t, fx.gw.outcomes, 1)
	require.Equal(t, "ignored", fx.gw.outcomes[0].payload.Action)
}

func TestResolveSecondPressIsIdempotent(t *testing.T) {
	fx := newReviewFixture(t)
	action := fx.action
	action.Unban = true

	outcome, err := fx.reviewer.Resolve(context.Background(), action)
	require.NoError(t, err)
	require.Equal(t, ReviewResolvedUnban, outcome)
	require.Len(t, fx.gw.unbanCalls, 1)

	// A second press reports the terminal outcome but repeats nothing.
	outcome, err = fx.reviewer.Resolve(context.Background(), action)
	require.NoError(t, err)
	require.Equal(t, ReviewResolvedUnban, outcome)
	require.Len(t, fx.gw.unbanCalls, 1)
	require.Len(t, fx.gw.outcomes, 1)

	outcome, err = fx.reviewer.Resolve(context.Background(), ReviewAction{
		GuildID:   action.GuildID,
		UserID:    action.UserID,
		ActorID:   11,
		ChannelID: action.ChannelID,
		MessageID: action.MessageID,
		Unban:     false,
	})
	require.NoError(t, err)
	require.Equal(t, ReviewResolvedUnban, outcome)
}

func TestResolveUnknownMessageFails(t *testing.T) {
	fx := newReviewFixture(t)
	action := fx.action
	action.MessageID = 99999

	outcome, err := fx.reviewer.Resolve(context.Background(), action)
	require.Error(t, err)
	require.Equal(t, ReviewFailed, outcome)
}
