package storage

import (
	"fmt"

	"gorm.io/gorm"
)

// Store bundles the repositories the engine and handlers work against. It
// is the only owner of persistent state; callers hold no copies beyond
// short-lived views used inside a single operation.
type Store struct {
	BanEvents    *BanEventRepository
	GuildBans    *GuildBanRepository
	GuildConfigs *GuildConfigRepository
	TruthSources *TruthSourceRepository
	Reviews      *ReviewRepository
}

// NewStore creates a Store over an open database connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		BanEvents:    NewBanEventRepository(db),
		GuildBans:    NewGuildBanRepository(db),
		GuildConfigs: NewGuildConfigRepository(db),
		TruthSources: NewTruthSourceRepository(db),
		Reviews:      NewReviewRepository(db),
	}
}

// Migrate ensures all tables exist.
func (s *Store) Migrate() error {
	migrations := []struct {
		name string
		fn   func() error
	}{
		{"ban_events", s.BanEvents.MigrateTable},
		{"guild_bans", s.GuildBans.MigrateTable},
		{"guild_configs", s.GuildConfigs.MigrateTable},
		{"truth_sources", s.TruthSources.MigrateTable},
		{"review_prompts", s.Reviews.MigrateTable},
	}
	for _, m := range migrations {
		if err := m.fn(); err != nil {
			return fmt.Errorf("migrating %s: %w", m.name, err)
		}
	}
	return nil
}
