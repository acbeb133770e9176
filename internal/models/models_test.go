package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGuildConfigEligibility(t *testing.T) {
	cfg := GuildConfig{GuildID: -1, Enabled: true, AutoBan: true, UnbanMode: UnbanModeAuto}
	require.True(t, cfg.IsSyncTarget())
	require.True(t, cfg.IsUnbanTarget())
	require.False(t, cfg.WantsReview())

	cfg.AutoBan = false
	require.False(t, cfg.IsSyncTarget())
	require.True(t, cfg.IsUnbanTarget())

	cfg.UnbanMode = UnbanModeReview
	require.True(t, cfg.WantsReview())

	cfg.Enabled = false
	require.False(t, cfg.IsSyncTarget())
	require.False(t, cfg.IsUnbanTarget())
}

func TestTrustIndex(t *testing.T) {
	idx := NewTrustIndex(666)
	idx.Load([]TruthSource{
		{GuildID: -1, UserID: 7},
		{GuildID: -1, UserID: 8},
		{GuildID: -2, UserID: 7},
	})

	require.True(t, idx.IsTruthSource(-1, 7))
	require.True(t, idx.IsTruthSource(-2, 7))
	require.False(t, idx.IsTruthSource(-2, 8))
	require.False(t, idx.IsTruthSource(-3, 7))
	require.ElementsMatch(t, []int64{7, 8}, idx.List(-1))
	require.Empty(t, idx.List(-3))

	idx.Add(-2, 8)
	require.True(t, idx.IsTruthSource(-2, 8))

	idx.Remove(-1, 7)
	require.False(t, idx.IsTruthSource(-1, 7))
	require.True(t, idx.IsTruthSource(-1, 8))

	// Removing from a guild with no entries must not panic.
	idx.Remove(-9, 7)

	// The excluded user and the zero ID are never trusted.
	idx.Add(-1, 666)
	require.False(t, idx.IsTruthSource(-1, 666))
	require.False(t, idx.IsTruthSource(-1, 0))

	// Load replaces previous contents wholesale.
	idx.Load([]TruthSource{{GuildID: -5, UserID: 9}})
	require.False(t, idx.IsTruthSource(-1, 8))
	require.True(t, idx.IsTruthSource(-5, 9))
}

func TestUserRefDisplay(t *testing.T) {
	full := FullUser(100, "Jane", "Doe", "janedoe")
	require.Equal(t, "Jane Doe", full.DisplayName())
	require.Equal(t, `<a href="tg://user?id=100">Jane Doe</a>`, full.Mention())

	firstOnly := FullUser(100, "Jane", "", "")
	require.Equal(t, "Jane", firstOnly.DisplayName())

	minimal := MinimalUser(100)
	require.False(t, minimal.Full)
	require.Equal(t, "user 100", minimal.DisplayName())
	require.Equal(t, `<a href="tg://user?id=100">user 100</a>`, minimal.Mention())
}
