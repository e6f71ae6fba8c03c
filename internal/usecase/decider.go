// Package usecase contains application business logic.
package usecase

import (
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
	"github.com/eliteGoblin/focusd/site_mon/internal/match"
	"github.com/eliteGoblin/focusd/site_mon/internal/schedule"
)

// DeciderImpl implements domain.Decider.
//
// Every call re-reads configuration from the store, so edits take effect
// on the very next navigation. All failure modes degrade to "do not
// block": a broken store or a malformed URL never traps the user.
type DeciderImpl struct {
	store  domain.SettingsStore
	clock  domain.Clock
	logger *zap.Logger
}

// NewDecider creates a blocking decision service.
func NewDecider(store domain.SettingsStore, clock domain.Clock, logger *zap.Logger) domain.Decider {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &DeciderImpl{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// ShouldBlock reports whether url should be blocked right now.
func (d *DeciderImpl) ShouldBlock(url string) bool {
	disabled, err := d.store.GetTemporaryDisabled()
	if err != nil {
		d.logger.Warn("failed to read temporary-disable flag, not blocking", zap.Error(err))
		return false
	}
	if disabled {
		return false
	}

	cfg, err := d.store.GetSettings()
	if err != nil {
		d.logger.Warn("failed to read settings, not blocking", zap.Error(err))
		return false
	}
	if cfg == nil {
		// Not yet initialized.
		return false
	}

	host, err := match.Hostname(url)
	if err != nil {
		// Malformed or hostless URL is never blockable.
		d.logger.Debug("unblockable url", zap.String("url", url), zap.Error(err))
		return false
	}

	if !match.Matches(host, cfg.BlockedSites) {
		return false
	}

	return schedule.WithinWindow(d.clock.Now(), cfg.Schedule)
}

// Ensure DeciderImpl implements domain.Decider.
var _ domain.Decider = (*DeciderImpl)(nil)
