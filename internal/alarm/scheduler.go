// Package alarm maps the blocking schedule onto the host alarm facility.
//
// The two recurring daily triggers are a coarse wake/log signal only.
// Block/allow decisions never depend on alarm firings; they are always
// re-derived from wall-clock time at the moment of navigation.
package alarm

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
	"github.com/eliteGoblin/focusd/site_mon/internal/schedule"
)

const dailyPeriod = 24 * time.Hour

// Scheduler keeps the start/end-of-window triggers in sync with the
// configured schedule.
type Scheduler struct {
	alarms domain.AlarmService
	clock  domain.Clock
	logger *zap.Logger
}

// NewScheduler creates an alarm scheduler and registers the log-only fire
// handler.
func NewScheduler(alarms domain.AlarmService, clock domain.Clock, logger *zap.Logger) *Scheduler {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	s := &Scheduler{
		alarms: alarms,
		clock:  clock,
		logger: logger,
	}
	alarms.OnFire(s.handleFire)
	return s
}

// Reschedule clears all triggers and recreates them from the schedule.
// Called on every configuration change affecting the schedule. A disabled
// schedule keeps no triggers at all.
func (s *Scheduler) Reschedule(sched domain.Schedule) error {
	if err := s.alarms.ClearAll(); err != nil {
		return fmt.Errorf("clearing alarms: %w", err)
	}

	if !sched.Enabled {
		s.logger.Debug("schedule disabled, no alarms created")
		return nil
	}

	start, err := NextOccurrence(s.clock.Now(), sched.StartTime)
	if err != nil {
		return fmt.Errorf("computing start trigger: %w", err)
	}
	end, err := NextOccurrence(s.clock.Now(), sched.EndTime)
	if err != nil {
		return fmt.Errorf("computing end trigger: %w", err)
	}

	if err := s.alarms.Create(domain.AlarmBlockingStart, start, dailyPeriod); err != nil {
		return fmt.Errorf("creating %s: %w", domain.AlarmBlockingStart, err)
	}
	if err := s.alarms.Create(domain.AlarmBlockingEnd, end, dailyPeriod); err != nil {
		return fmt.Errorf("creating %s: %w", domain.AlarmBlockingEnd, err)
	}

	s.logger.Info("alarms rescheduled",
		zap.Time("blocking_start", start),
		zap.Time("blocking_end", end))
	return nil
}

// handleFire logs the trigger. Deliberately nothing else: decisions are
// re-derived from live wall-clock time on navigation.
func (s *Scheduler) handleFire(name string) {
	s.logger.Info("alarm fired", zap.String("alarm", name))
}

// NextOccurrence returns the next wall-clock occurrence of the "HH:MM"
// time of day: today if still ahead, otherwise the same time tomorrow.
func NextOccurrence(now time.Time, clockTime string) (time.Time, error) {
	minutes, err := schedule.ParseClock(clockTime)
	if err != nil {
		return time.Time{}, err
	}

	at := time.Date(now.Year(), now.Month(), now.Day(), minutes/60, minutes%60, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at, nil
}
