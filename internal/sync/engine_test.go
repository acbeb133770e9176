package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"crossban/internal/models"
)

func newTestEngine(t *testing.T) (*Engine, *fakeGateway) {
	t.Helper()
	gw := newFakeGateway()
	engine := NewEngine(newTestStore(t), gw)
	engine.Enable()
	return engine, gw
}

func TestHandleBanFansOutToAutoBanGuilds(t *testing.T) {
	engine, gw := newTestEngine(t)

	addGuild(t, engine.store, -1, nil) // source
	addGuild(t, engine.store, -2, nil)
	addGuild(t, engine.store, -3, nil)
	addGuild(t, engine.store, -4, func(c *models.GuildConfig) { c.AutoBan = false })

	err := engine.HandleBan(context.Background(), BanNotice{
		UserID:        100,
		SourceGuildID: -1,
		SourceUserID:  7,
		Reason:        "spam",
	})
	require.NoError(t, err)

	// The source guild and the opted-out guild are never called.
	require.ElementsMatch(t, []guildUser{{-2, 100}, {-3, 100}}, gw.banCalls)

	// The source guild's own ban is still recorded in the store.
	for _, guildID := range []int64{-1, -2, -3} {
		banned, err := engine.store.GuildBans.IsBanned(100, guildID)
		require.NoError(t, err)
		require.True(t, banned, "guild %d", guildID)
	}
	banned, err := engine.store.GuildBans.IsBanned(100, -4)
	require.NoError(t, err)
	require.False(t, banned)

	event, err := engine.store.BanEvents.GetActive(100)
	require.NoError(t, err)
	require.NotNil(t, event)
	require.EqualValues(t, -1, event.SourceGuildID)
	require.Equal(t, "spam", event.Reason)
}

func TestHandleBanPartialFailureIsIsolated(t *testing.T) {
	engine, gw := newTestEngine(t)

	addGuild(t, engine.store, -1, nil)
	addGuild(t, engine.store, -2, nil)
	addGuild(t, engine.store, -3, nil)
	gw.banErr[-2] = errors.New("missing ban permission")

	err := engine.HandleBan(context.Background(), BanNotice{UserID: 100, SourceGuildID: -1, SourceUserID: 7})
	require.NoError(t, err)

	// The failed guild gets no ban row; the healthy one proceeds.
	banned, err := engine.store.GuildBans.IsBanned(100, -2)
	require.NoError(t, err)
	require.False(t, banned)

	banned, err = engine.store.GuildBans.IsBanned(100, -3)
	require.NoError(t, err)
	require.True(t, banned)
}

func TestHandleBanDuplicateReusesActiveEvent(t *testing.T) {
	engine, gw := newTestEngine(t)

	addGuild(t, engine.store, -1, nil)
	addGuild(t, engine.store, -2, nil)
	gw.banErr[-2] = errors.New("flaky")

	ban := BanNotice{UserID: 100, SourceGuildID: -1, SourceUserID: 7, Reason: "spam"}
	require.NoError(t, engine.HandleBan(context.Background(), ban))

	first, err := engine.store.BanEvents.GetActive(100)
	require.NoError(t, err)

	// The retry runs the fan-out again under the same event, so the
	// previously failed guild catches up.
	delete(gw.banErr, -2)
	require.NoError(t, engine.HandleBan(context.Background(), ban))

	second, err := engine.store.BanEvents.GetActive(100)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	banned, err := engine.store.GuildBans.IsBanned(100, -2)
	require.NoError(t, err)
	require.True(t, banned)
}

func TestHandleBanWhileDisabledIsNoOp(t *testing.T) {
	gw := newFakeGateway()
	engine := NewEngine(newTestStore(t), gw)

	addGuild(t, engine.store, -1, nil)
	addGuild(t, engine.store, -2, nil)

	require.NoError(t, engine.HandleBan(context.Background(), BanNotice{UserID: 100, SourceGuildID: -1}))

	require.Empty(t, gw.banCalls)
	event, err := engine.store.BanEvents.GetActive(100)
	require.NoError(t, err)
	require.Nil(t, event)
}

func TestRemoveBanAutoAndReviewBranches(t *testing.T) {
	engine, gw := newTestEngine(t)

	addGuild(t, engine.store, -1, nil)
	addGuild(t, engine.store, -2, nil)
	addGuild(t, engine.store, -3, func(c *models.GuildConfig) {
		c.UnbanMode = models.UnbanModeReview
		c.LoggingChannelID = -300
	})

	require.NoError(t, engine.HandleBan(context.Background(), BanNotice{UserID: 100, SourceGuildID: -1, SourceUserID: 7, Reason: "spam"}))
	require.NoError(t, engine.RemoveBan(context.Background(), UnbanNotice{UserID: 100, SourceGuildID: -1, ExecutorID: 7}))

	// AUTO guild is unbanned directly.
	require.Equal(t, []guildUser{{-2, 100}}, gw.unbanCalls)
	banned, err := engine.store.GuildBans.IsBanned(100, -2)
	require.NoError(t, err)
	require.False(t, banned)

	// REVIEW guild keeps its ban and gets a prompt instead.
	banned, err = engine.store.GuildBans.IsBanned(100, -3)
	require.NoError(t, err)
	require.True(t, banned)

	require.Len(t, gw.reviews, 1)
	review := gw.reviews[0]
	require.EqualValues(t, -300, review.channelID)
	require.EqualValues(t, -3, review.payload.ReviewGuildID)
	require.EqualValues(t, -1, review.payload.SourceGuildID)
	require.EqualValues(t, 7, review.payload.BannedBy)
	require.Equal(t, "spam", review.payload.BanReason)
	require.EqualValues(t, 7, review.payload.UnbannedBy)

	prompts, err := engine.store.Reviews.ListPendingForGuild(-3)
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	require.EqualValues(t, 100, prompts[0].UserID)
	require.EqualValues(t, -300, prompts[0].ChannelID)

	// The originating event is revoked.
	event, err := engine.store.BanEvents.GetActive(100)
	require.NoError(t, err)
	require.Nil(t, event)
}

func TestRemoveBanSkipsGuildsWithoutRecordedBan(t *testing.T) {
	engine, gw := newTestEngine(t)

	addGuild(t, engine.store, -1, nil)
	// -2 takes part in unban handling but never accepted the ban.
	addGuild(t, engine.store, -2, func(c *models.GuildConfig) { c.AutoBan = false })

	require.NoError(t, engine.HandleBan(context.Background(), BanNotice{UserID: 100, SourceGuildID: -1, SourceUserID: 7}))
	require.NoError(t, engine.RemoveBan(context.Background(), UnbanNotice{UserID: 100, SourceGuildID: -1, ExecutorID: 7}))
	require.Empty(t, gw.unbanCalls)
}

func TestRemoveBanWithoutActiveEventIsNoOp(t *testing.T) {
	engine, gw := newTestEngine(t)

	addGuild(t, engine.store, -1, nil)
	addGuild(t, engine.store, -2, nil)

	require.NoError(t, engine.RemoveBan(context.Background(), UnbanNotice{UserID: 100, SourceGuildID: -1, ExecutorID: 7}))
	require.Empty(t, gw.unbanCalls)
	require.Empty(t, gw.reviews)
}

// Federation walkthrough: guild A originates, guild B auto-accepts, guild C
// opted out of auto-ban and reviews incoming unbans.
func TestBanUnbanAcrossMixedPolicies(t *testing.T) {
	engine, gw := newTestEngine(t)
	ctx := context.Background()

	addGuild(t, engine.store, -1, nil)
	addGuild(t, engine.store, -2, nil)
	addGuild(t, engine.store, -3, func(c *models.GuildConfig) {
		c.AutoBan = false
		c.UnbanMode = models.UnbanModeReview
		c.LoggingChannelID = -300
	})

	require.NoError(t, engine.HandleBan(ctx, BanNotice{UserID: 100, SourceGuildID: -1, SourceUserID: 7, Reason: "spam"}))

	// Only B takes the ban; C is untouched.
	require.Equal(t, []guildUser{{-2, 100}}, gw.banCalls)
	banned, err := engine.store.GuildBans.IsBanned(100, -3)
	require.NoError(t, err)
	require.False(t, banned)

	require.NoError(t, engine.RemoveBan(ctx, UnbanNotice{UserID: 100, SourceGuildID: -1, ExecutorID: 7}))

	// B is auto-unbanned; C gets a prompt even though it never applied the
	// ban, since its moderators may have banned the user on their own.
	require.Equal(t, []guildUser{{-2, 100}}, gw.unbanCalls)
	require.Len(t, gw.reviews, 1)
	require.EqualValues(t, -300, gw.reviews[0].channelID)

	prompts, err := engine.store.Reviews.ListPendingForGuild(-3)
	require.NoError(t, err)
	require.Len(t, prompts, 1)

	// Ignoring the prompt terminalizes it with no remote call and no state
	// change for C.
	reviewer := NewReviewer(engine.store, gw)
	reviewer.outcomeDelay = 0
	outcome, err := reviewer.Resolve(ctx, ReviewAction{
		GuildID:   -3,
		UserID:    100,
		ActorID:   9,
		ChannelID: prompts[0].ChannelID,
		MessageID: prompts[0].MessageID,
		Unban:     false,
	})
	require.NoError(t, err)
	require.Equal(t, ReviewResolvedIgnore, outcome)
	require.Equal(t, []guildUser{{-2, 100}}, gw.unbanCalls)

	prompts, err = engine.store.Reviews.ListPendingForGuild(-3)
	require.NoError(t, err)
	require.Empty(t, prompts)
}

func TestRemoveBanReviewGuildWithoutChannelIsSkipped(t *testing.T) {
	engine, gw := newTestEngine(t)

	addGuild(t, engine.store, -1, nil)
	addGuild(t, engine.store, -3, func(c *models.GuildConfig) {
		c.UnbanMode = models.UnbanModeReview
	})

	require.NoError(t, engine.HandleBan(context.Background(), BanNotice{UserID: 100, SourceGuildID: -1, SourceUserID: 7}))
	require.NoError(t, engine.RemoveBan(context.Background(), UnbanNotice{UserID: 100, SourceGuildID: -1, ExecutorID: 7}))

	require.Empty(t, gw.reviews)
	prompts, err := engine.store.Reviews.ListPendingForGuild(-3)
	require.NoError(t, err)
	require.Empty(t, prompts)

	// The guild's ban state stays untouched.
	banned, err := engine.store.GuildBans.IsBanned(100, -3)
	require.NoError(t, err)
	require.True(t, banned)
}
