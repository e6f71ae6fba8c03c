// Package daemon implements the background service context and the
// per-page sessions that talk to it over the message bus.
package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_mon/internal/alarm"
	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
	"github.com/eliteGoblin/focusd/site_mon/internal/infra"
)

// Config holds background daemon configuration.
type Config struct {
	HeartbeatInterval time.Duration // how often to update the run-state heartbeat
}

// DefaultConfig returns default daemon configuration.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 30 * time.Second,
	}
}

// Daemon is the background context: it owns the blocking decision
// service, keeps alarms in sync with the schedule, persists ignored-block
// reports, and answers page sessions over the bus.
type Daemon struct {
	config    Config
	settings  domain.SettingsStore
	runState  domain.RunStateStore
	decider   domain.Decider
	scheduler *alarm.Scheduler
	bus       *infra.Bus
	events    domain.EventReporter
	pm        domain.ProcessManager
	name      string
	logger    *zap.Logger
}

// NewDaemon creates the background daemon.
func NewDaemon(
	config Config,
	settings domain.SettingsStore,
	runState domain.RunStateStore,
	decider domain.Decider,
	scheduler *alarm.Scheduler,
	bus *infra.Bus,
	events domain.EventReporter,
	pm domain.ProcessManager,
	name string,
	logger *zap.Logger,
) *Daemon {
	return &Daemon{
		config:    config,
		settings:  settings,
		runState:  runState,
		decider:   decider,
		scheduler: scheduler,
		bus:       bus,
		events:    events,
		pm:        pm,
		name:      name,
		logger:    logger,
	}
}

// Run starts the background loop. This blocks until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	pid := d.pm.GetCurrentPID()
	if err := d.runState.RegisterDaemon(pid, d.name); err != nil {
		d.logger.Error("failed to register daemon", zap.Error(err))
		return err
	}

	d.logger.Info("daemon started",
		zap.Int("pid", pid),
		zap.String("name", d.name))

	d.registerHandlers()

	// Alarms reflect the persisted schedule from the first moment.
	d.reschedule()

	// Any persisted change re-derives the triggers; decisions need no
	// refresh since they re-read live configuration per call.
	d.settings.OnChange(func() { d.reschedule() })

	heartbeat := time.NewTicker(d.config.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping")
			if err := d.runState.Clear(); err != nil {
				d.logger.Warn("failed to clear run state", zap.Error(err))
			}
			return ctx.Err()

		case <-heartbeat.C:
			if err := d.runState.UpdateHeartbeat(); err != nil {
				d.logger.Warn("failed to update heartbeat", zap.Error(err))
			}
		}
	}
}

// registerHandlers installs the background side of the message protocol.
func (d *Daemon) registerHandlers() {
	decide := func(msg domain.Message) domain.Ack {
		return domain.Ack{Success: true, Blocked: d.decider.ShouldBlock(msg.URL)}
	}

	d.bus.Register(domain.ActionCheckBlockStatus, decide)
	d.bus.Register(domain.ActionURLChanged, decide)

	d.bus.Register(domain.ActionPageLoaded, func(msg domain.Message) domain.Ack {
		d.logger.Debug("page loaded", zap.String("url", msg.URL))
		return domain.Ack{Success: true}
	})

	d.bus.Register(domain.ActionTabVisible, func(msg domain.Message) domain.Ack {
		d.logger.Debug("tab visible", zap.String("url", msg.URL))
		return domain.Ack{Success: true}
	})

	d.bus.Register(domain.ActionUpdateSchedule, func(msg domain.Message) domain.Ack {
		return domain.Ack{Success: d.reschedule()}
	})

	d.bus.Register(domain.ActionUserIgnoredBlock, func(msg domain.Message) domain.Ack {
		ev := domain.IgnoredBlockEvent{
			ID:         msg.ID,
			URL:        msg.URL,
			Message:    msg.Text,
			OccurredAt: time.UnixMilli(msg.Timestamp),
		}
		if err := d.events.Report(ev); err != nil {
			// Best-effort by contract: the report is dropped.
			d.logger.Debug("ignored-block report dropped", zap.Error(err))
		}
		return domain.Ack{Success: true}
	})
}

// reschedule re-derives the two daily triggers from the persisted
// schedule. Reports success for the updateSchedule ack.
func (d *Daemon) reschedule() bool {
	cfg, err := d.settings.GetSettings()
	if err != nil {
		d.logger.Warn("failed to read settings for reschedule", zap.Error(err))
		return false
	}
	if cfg == nil {
		return false
	}

	if err := d.scheduler.Reschedule(cfg.Schedule); err != nil {
		d.logger.Warn("failed to reschedule alarms", zap.Error(err))
		return false
	}
	return true
}
