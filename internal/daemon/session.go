package daemon

import (
	"context"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
	"github.com/eliteGoblin/focusd/site_mon/internal/infra"
	"github.com/eliteGoblin/focusd/site_mon/internal/monitor"
	"github.com/eliteGoblin/focusd/site_mon/internal/overlay"
)

// busSink forwards ignored-block reports to the background context over
// the bus. Fire-and-forget: delivery is never confirmed.
type busSink struct {
	bus *infra.Bus
}

func (s *busSink) Report(ev domain.IgnoredBlockEvent) error {
	msg := infra.NewMessage(domain.ActionUserIgnoredBlock, ev.URL)
	msg.ID = ev.ID
	msg.Text = ev.Message
	msg.Timestamp = ev.OccurredAt.UnixMilli()
	s.bus.Deliver(msg)
	return nil
}

var _ domain.EventSink = (*busSink)(nil)

// PageSession ties one page's navigation monitor and overlay controller
// to the background context. Everything crossing the page/background
// boundary goes through the bus; the session shares no state with the
// daemon beyond it.
type PageSession struct {
	page       domain.PageSurface
	bus        *infra.Bus
	settings   domain.SettingsStore
	controller *overlay.Controller
	monitor    *monitor.Monitor
	logger     *zap.Logger

	ctx context.Context
}

// NewPageSession wires a session for one page context.
func NewPageSession(
	cfg monitor.Config,
	page domain.PageSurface,
	sources []monitor.NavigationSource,
	probe domain.RuntimeProbe,
	bus *infra.Bus,
	settings domain.SettingsStore,
	speaker domain.Speaker,
	clock domain.Clock,
	logger *zap.Logger,
) *PageSession {
	s := &PageSession{
		page:     page,
		bus:      bus,
		settings: settings,
		logger:   logger,
	}
	s.controller = overlay.NewController(page, speaker, &busSink{bus: bus}, clock, logger)
	s.monitor = monitor.New(cfg, page, sources, probe, s.onNavigate, s.controller.EmergencyCleanup, logger)
	return s
}

// Overlay exposes the session's overlay controller for host-event wiring
// (escape key, dismiss actions, emergency hotkey).
func (s *PageSession) Overlay() *overlay.Controller { return s.controller }

// NotifyVisible reports that the tab became visible or focused.
func (s *PageSession) NotifyVisible() {
	s.bus.Notify(domain.ActionTabVisible, s.page.URL())
	s.monitor.NotifyVisible()
}

// Run observes the page until ctx is canceled or the background runtime
// goes away. Cancellation is the page unload.
func (s *PageSession) Run(ctx context.Context) {
	s.ctx = ctx
	s.bus.Notify(domain.ActionPageLoaded, s.page.URL())

	go s.controller.RunSweeper(ctx)
	s.monitor.Run(ctx)

	s.controller.HandleUnload()
}

// onNavigate requests a blocking decision for the settled URL and acts on
// the answer. Runs on the monitor's goroutine, in detection order.
func (s *PageSession) onNavigate(url string) {
	ack, err := s.bus.Request(domain.ActionURLChanged, url)
	if err != nil {
		// Background gone; fail open, the liveness probe handles cleanup.
		s.logger.Debug("decision request failed", zap.Error(err))
		return
	}

	if !ack.Blocked {
		// Navigating away from a blocked page tears the overlay down.
		s.controller.HandleUnload()
		return
	}

	// The user may have navigated again while the decision was in
	// flight; the most recent navigation wins.
	if current := s.page.URL(); current != url {
		s.logger.Debug("stale decision skipped",
			zap.String("decided", url),
			zap.String("current", current))
		return
	}

	cfg, err := s.settings.GetSettings()
	if err != nil || cfg == nil {
		return
	}

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	_ = s.controller.Inject(ctx, cfg.DespairMessages, cfg.EnableTTS)
}
