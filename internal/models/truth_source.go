package models

import (
	"sync"
	"time"
)

// TruthSource is an allow-list entry: the given user may originate
// sync-worthy bans and unbans for the given guild. Rows are created and
// removed only through explicit admin action; there is no implicit expiry.
type TruthSource struct {
	ID        uint  `gorm:"primaryKey;autoIncrement"`
	GuildID   int64 `gorm:"uniqueIndex:idx_guild_user;not null"`
	UserID    int64 `gorm:"uniqueIndex:idx_guild_user;not null"`
	CreatedBy int64 `gorm:"not null"`
	CreatedAt time.Time
}

// TrustIndex is the in-memory guild -> trusted user set mirror of the
// truth_sources table. It is rebuilt from the store at startup and mutated
// only by admin commands; request handlers only read it.
type TrustIndex struct {
	mu       sync.RWMutex
	sources  map[int64]map[int64]struct{}
	excluded int64
}

// NewTrustIndex creates an empty index. excludedUserID is never trusted,
// regardless of what the store says.
func NewTrustIndex(excludedUserID int64) *TrustIndex {
	return &TrustIndex{
		sources:  make(map[int64]map[int64]struct{}),
		excluded: excludedUserID,
	}
}

// Load replaces the index contents with rows read from the store.
func (t *TrustIndex) Load(rows []TruthSource) {
	fresh := make(map[int64]map[int64]struct{})
	for _, row := range rows {
		set, ok := fresh[row.GuildID]
		if !ok {
			set = make(map[int64]struct{})
			fresh[row.GuildID] = set
		}
		set[row.UserID] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.sources = fresh
}

// Add marks userID as a source of truth for guildID.
func (t *TrustIndex) Add(guildID, userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.sources[guildID]
	if !ok {
		set = make(map[int64]struct{})
		t.sources[guildID] = set
	}
	set[userID] = struct{}{}
}

// Remove drops userID as a source of truth for guildID.
func (t *TrustIndex) Remove(guildID, userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sources[guildID], userID)
}

// IsTruthSource reports whether userID may originate sync-worthy actions
// for guildID.
func (t *TrustIndex) IsTruthSource(guildID, userID int64) bool {
	if userID == 0 || (t.excluded != 0 && userID == t.excluded) {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.sources[guildID][userID]
	return ok
}

// List returns the trusted user IDs for guildID.
func (t *TrustIndex) List(guildID int64) []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]int64, 0, len(t.sources[guildID]))
	for id := range t.sources[guildID] {
		ids = append(ids, id)
	}
	return ids
}
