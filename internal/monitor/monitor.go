// Package monitor implements the per-page navigation monitor.
//
// One Monitor is constructed per page load and owns that page's state
// explicitly (last known URL, started sources); there are no ambient
// package-level statics.
package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
)

// Config holds monitor timings.
type Config struct {
	Debounce         time.Duration // settle delay before requesting a decision
	PollInterval     time.Duration // fixed-interval fallback poll
	LivenessInterval time.Duration // background-runtime probe period
}

// DefaultConfig returns default monitor timings.
func DefaultConfig() Config {
	return Config{
		Debounce:         100 * time.Millisecond,
		PollInterval:     time.Second,
		LivenessInterval: 60 * time.Second,
	}
}

// Monitor detects effective-URL changes (full navigations, history-API
// usage, back/forward) and visibility changes, then requests a blocking
// decision for the resulting URL.
type Monitor struct {
	config  Config
	page    domain.PageSurface
	sources []NavigationSource
	probe   domain.RuntimeProbe
	logger  *zap.Logger

	// onDecide receives the settled URL of every detected change.
	onDecide func(url string)
	// onRuntimeGone runs local cleanup when the background runtime
	// becomes unreachable.
	onRuntimeGone func()

	lastURL string
	visible chan struct{}
}

// New creates a monitor for one page context. sources are tried in order;
// any that fail to start are skipped, and if none start a poll source is
// used as the final fallback.
func New(
	config Config,
	page domain.PageSurface,
	sources []NavigationSource,
	probe domain.RuntimeProbe,
	onDecide func(url string),
	onRuntimeGone func(),
	logger *zap.Logger,
) *Monitor {
	return &Monitor{
		config:        config,
		page:          page,
		sources:       sources,
		probe:         probe,
		onDecide:      onDecide,
		onRuntimeGone: onRuntimeGone,
		logger:        logger,
		visible:       make(chan struct{}, 1),
	}
}

// NotifyVisible reports that the tab became visible or focused. The
// current URL is re-evaluated even if it has not changed.
func (m *Monitor) NotifyVisible() {
	select {
	case m.visible <- struct{}{}:
	default:
	}
}

// Run observes the page until ctx is canceled or the owning runtime goes
// away. Runtime teardown is silent: local cleanup only, no retries, no
// user-visible error.
func (m *Monitor) Run(ctx context.Context) {
	events := m.startSources(ctx)

	// Initial page load counts as a navigation.
	m.dispatch(ctx, m.page.URL(), true)

	var liveness *time.Ticker
	if m.probe != nil && m.config.LivenessInterval > 0 {
		liveness = time.NewTicker(m.config.LivenessInterval)
		defer liveness.Stop()
	} else {
		liveness = time.NewTicker(time.Hour)
		liveness.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case url, ok := <-events:
			if !ok {
				return
			}
			m.dispatch(ctx, url, false)

		case <-m.visible:
			// Visibility re-checks the current URL unconditionally.
			m.dispatch(ctx, m.page.URL(), true)

		case <-liveness.C:
			if !m.probe.Alive() {
				m.logger.Debug("background runtime unreachable, cleaning up")
				if m.onRuntimeGone != nil {
					m.onRuntimeGone()
				}
				return
			}
		}
	}
}

// startSources starts each configured source, merging their events. Falls
// back to a fixed-interval poll when nothing else can be established.
func (m *Monitor) startSources(ctx context.Context) <-chan string {
	merged := make(chan string, 32)
	started := 0

	forward := func(ch <-chan string) {
		for {
			select {
			case <-ctx.Done():
				return
			case url, ok := <-ch:
				if !ok {
					return
				}
				select {
				case merged <- url:
				default:
				}
			}
		}
	}

	for _, src := range m.sources {
		ch, err := src.Start(ctx)
		if err != nil {
			m.logger.Debug("navigation source unavailable",
				zap.String("source", src.Name()),
				zap.Error(err))
			continue
		}
		started++
		go forward(ch)
	}

	if started == 0 {
		poll := NewPollSource(m.page, m.config.PollInterval)
		ch, _ := poll.Start(ctx)
		go forward(ch)
		m.logger.Debug("falling back to interval polling")
	}

	return merged
}

// dispatch debounces a detected change, then requests a decision for the
// page's settled URL. Navigation events are deduplicated against the last
// known URL; forced events (load, visibility) always fire.
func (m *Monitor) dispatch(ctx context.Context, url string, force bool) {
	if !force && url == m.lastURL {
		return
	}

	if m.config.Debounce > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.config.Debounce):
		}
	}

	// Re-read after the settle delay; the page may have moved again and
	// the most recent navigation wins.
	settled := m.page.URL()
	m.lastURL = settled

	if m.onDecide != nil {
		m.onDecide(settled)
	}
}
