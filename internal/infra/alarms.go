package infra

import (
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
)

// TimerAlarmService implements domain.AlarmService with in-process
// timers: a named alarm fires once at its scheduled time, then on every
// period tick after that.
type TimerAlarmService struct {
	mu     sync.Mutex
	alarms map[string]chan struct{}
	onFire func(name string)
}

// NewTimerAlarmService creates an empty alarm service.
func NewTimerAlarmService() *TimerAlarmService {
	return &TimerAlarmService{alarms: make(map[string]chan struct{})}
}

// OnFire registers the single fire callback.
func (s *TimerAlarmService) OnFire(fn func(name string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFire = fn
}

// Create schedules a named recurring alarm. Creating an existing name
// replaces it.
func (s *TimerAlarmService) Create(name string, when time.Time, period time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stop, ok := s.alarms[name]; ok {
		close(stop)
	}

	stop := make(chan struct{})
	s.alarms[name] = stop

	go s.run(name, when, period, stop)
	return nil
}

// ClearAll cancels every alarm.
func (s *TimerAlarmService) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, stop := range s.alarms {
		close(stop)
		delete(s.alarms, name)
	}
	return nil
}

func (s *TimerAlarmService) run(name string, when time.Time, period time.Duration, stop chan struct{}) {
	timer := time.NewTimer(time.Until(when))
	defer timer.Stop()

	select {
	case <-stop:
		return
	case <-timer.C:
		s.fire(name)
	}

	if period <= 0 {
		return
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.fire(name)
		}
	}
}

func (s *TimerAlarmService) fire(name string) {
	s.mu.Lock()
	fn := s.onFire
	s.mu.Unlock()

	if fn != nil {
		fn(name)
	}
}

// Ensure TimerAlarmService implements domain.AlarmService.
var _ domain.AlarmService = (*TimerAlarmService)(nil)
