// Package schedule implements the blocking-window evaluator.
package schedule

import (
	"fmt"
	"time"

	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
)

// ParseClock converts a zero-padded "HH:MM" string to minutes since
// midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if len(s) != 5 {
		return 0, fmt.Errorf("clock time %q must be zero-padded HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Validate checks a schedule at the edit boundary. The evaluator itself
// trusts stored schedules and does not re-run these checks.
// Overnight windows (end before start) are rejected: wraparound semantics
// are deliberately unsupported.
func Validate(s domain.Schedule) error {
	if _, err := ParseClock(s.StartTime); err != nil {
		return err
	}
	if _, err := ParseClock(s.EndTime); err != nil {
		return err
	}
	if s.StartTime >= s.EndTime {
		return fmt.Errorf("start time %s must be before end time %s (overnight windows are not supported)", s.StartTime, s.EndTime)
	}
	for _, d := range s.WorkDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("invalid work day %d (want 0-6, 0=Sunday)", d)
		}
	}
	return nil
}

// WithinWindow reports whether now falls inside the blocking window.
//
// A disabled schedule means "always block", not "never block": with
// Enabled=false this returns true regardless of day or time. Bounds are
// inclusive on both ends.
func WithinWindow(now time.Time, s domain.Schedule) bool {
	if !s.Enabled {
		return true
	}

	day := int(now.Weekday()) // 0=Sunday, matching WorkDays
	workDay := false
	for _, d := range s.WorkDays {
		if d == day {
			workDay = true
			break
		}
	}
	if !workDay {
		return false
	}

	start, err := ParseClock(s.StartTime)
	if err != nil {
		return false
	}
	end, err := ParseClock(s.EndTime)
	if err != nil {
		return false
	}

	minutes := now.Hour()*60 + now.Minute()
	return start <= minutes && minutes <= end
}
