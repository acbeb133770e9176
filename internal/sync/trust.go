package sync

import (
	"crossban/internal/config"
	"crossban/internal/models"
)

// TrustFilter decides whether a raw ban/unban notification comes from an
// authorized source of truth in a federated guild. It is a pure predicate
// over the in-memory trust index; rejected notifications are silently
// dropped, never surfaced as errors.
type TrustFilter struct {
	federation config.FederationConfig
	selfID     int64
	trust      *models.TrustIndex
}

// NewTrustFilter builds a filter. selfID is the engine's own platform
// identity; its actions are never sync-worthy (they are the engine's own
// fan-out echoing back).
func NewTrustFilter(federation config.FederationConfig, selfID int64, trust *models.TrustIndex) *TrustFilter {
	return &TrustFilter{federation: federation, selfID: selfID, trust: trust}
}

// ShouldProcess reports whether the notification should reach the engine.
func (f *TrustFilter) ShouldProcess(notice models.Notice) bool {
	if notice.Action != models.BanAdded && notice.Action != models.BanRemoved {
		return false
	}
	if !f.federation.IsFederated(notice.GuildID) {
		return false
	}
	if notice.ExecutorID == 0 || notice.ExecutorID == f.selfID {
		return false
	}
	return f.trust.IsTruthSource(notice.GuildID, notice.ExecutorID)
}
