package sync

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"crossban/internal/gateway"
	"crossban/internal/models"
	"crossban/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	store := storage.NewStore(db)
	require.NoError(t, store.Migrate())
	return store
}

type guildUser struct {
	guildID int64
	userID  int64
}

type postedReview struct {
	channelID int64
	payload   gateway.ReviewPayload
}

type updatedOutcome struct {
	channelID int64
	messageID int
	payload   gateway.OutcomePayload
}

// fakeGateway is an in-memory Gateway that tracks ban state per guild and
// records every call. Errors can be injected per guild.
type fakeGateway struct {
	banned   map[guildUser]bool
	banErr   map[int64]error
	unbanErr map[int64]error

	banCalls   []guildUser
	unbanCalls []guildUser
	reviews    []postedReview
	outcomes   []updatedOutcome

	nextMessageID int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		banned:        make(map[guildUser]bool),
		banErr:        make(map[int64]error),
		unbanErr:      make(map[int64]error),
		nextMessageID: 1000,
	}
}

func (f *fakeGateway) ApplyBan(_ context.Context, guildID, userID int64, _ string) error {
	f.banCalls = append(f.banCalls, guildUser{guildID, userID})
	if err := f.banErr[guildID]; err != nil {
		return err
	}
	f.banned[guildUser{guildID, userID}] = true
	return nil
}

func (f *fakeGateway) RemoveBan(_ context.Context, guildID, userID int64, _ string) error {
	f.unbanCalls = append(f.unbanCalls, guildUser{guildID, userID})
	if err := f.unbanErr[guildID]; err != nil {
		return err
	}
	delete(f.banned, guildUser{guildID, userID})
	return nil
}

func (f *fakeGateway) IsBanned(_ context.Context, guildID, userID int64) (bool, error) {
	return f.banned[guildUser{guildID, userID}], nil
}

func (f *fakeGateway) PostReview(_ context.Context, channelID int64, payload gateway.ReviewPayload) (int, error) {
	f.nextMessageID++
	f.reviews = append(f.reviews, postedReview{channelID, payload})
	return f.nextMessageID, nil
}

func (f *fakeGateway) UpdateOutcome(_ context.Context, channelID int64, messageID int, payload gateway.OutcomePayload) error {
	f.outcomes = append(f.outcomes, updatedOutcome{channelID, messageID, payload})
	return nil
}

func (f *fakeGateway) ResolveUser(_ context.Context, userID int64) models.UserRef {
	return models.MinimalUser(userID)
}

func (f *fakeGateway) GuildProfile(_ context.Context, guildID int64) gateway.GuildProfile {
	return gateway.GuildProfile{ID: guildID, Name: fmt.Sprintf("Guild %d", guildID)}
}

// addGuild seeds a guild config with the given policy.
func addGuild(t *testing.T, store *storage.Store, guildID int64, mutate func(*models.GuildConfig)) {
	t.Helper()
	cfg, err := store.GuildConfigs.GetOrCreate(guildID)
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
		require.NoError(t, store.GuildConfigs.Update(cfg))
	}
}
