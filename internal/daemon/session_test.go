package daemon

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
	"github.com/eliteGoblin/focusd/site_mon/internal/infra"
	"github.com/eliteGoblin/focusd/site_mon/internal/monitor"
)

// fakePage is a goroutine-safe in-memory page surface.
type fakePage struct {
	mu      sync.Mutex
	url     string
	overlay bool
	locked  bool
	history int
}

func newFakePage(url string) *fakePage {
	return &fakePage{url: url, history: 1}
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *fakePage) setURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

func (p *fakePage) ShowOverlay(spec domain.OverlaySpec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overlay = true
	return nil
}

func (p *fakePage) RemoveOverlay() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overlay = false
	return nil
}

func (p *fakePage) SetScrollLocked(locked bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locked = locked
}

func (p *fakePage) HistoryDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history
}

func (p *fakePage) NavigateBack() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history--
	return nil
}

func (p *fakePage) NavigateTo(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	return nil
}

func (p *fakePage) hasOverlay() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overlay
}

func fastMonitorConfig() monitor.Config {
	return monitor.Config{
		Debounce:     time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	}
}

// newTestSession wires a session against a stub background that blocks
// any URL containing "youtube".
func newTestSession(t *testing.T, page *fakePage) (*PageSession, *infra.Bus) {
	t.Helper()

	settings, err := infra.NewFileSettingsStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(settings.Close)

	bus := infra.NewBus(zap.NewNop())
	bus.Register(domain.ActionURLChanged, func(msg domain.Message) domain.Ack {
		return domain.Ack{Success: true, Blocked: strings.Contains(msg.URL, "youtube")}
	})
	bus.Register(domain.ActionPageLoaded, func(domain.Message) domain.Ack {
		return domain.Ack{Success: true}
	})
	bus.Register(domain.ActionTabVisible, func(domain.Message) domain.Ack {
		return domain.Ack{Success: true}
	})

	s := NewPageSession(
		fastMonitorConfig(),
		page,
		nil, // no structural sources, forces the poll fallback
		nil,
		bus,
		settings,
		infra.NopSpeaker{},
		nil,
		zap.NewNop(),
	)
	return s, bus
}

func TestPageSession_BlockedNavigationInjects(t *testing.T) {
	page := newFakePage("https://m.youtube.com/watch?v=1")
	s, _ := newTestSession(t, page)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	assert.Eventually(t, page.hasOverlay, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.OverlayVisible, s.Overlay().State())
}

func TestPageSession_AllowedNavigationStaysClean(t *testing.T) {
	page := newFakePage("https://example.com/")
	s, _ := newTestSession(t, page)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	assert.False(t, page.hasOverlay())
	assert.Equal(t, domain.OverlayAbsent, s.Overlay().State())
}

func TestPageSession_NavigateAwayRemovesOverlay(t *testing.T) {
	page := newFakePage("https://youtube.com/")
	s, _ := newTestSession(t, page)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, page.hasOverlay, time.Second, 5*time.Millisecond)

	page.setURL("https://example.com/")

	assert.Eventually(t, func() bool {
		return !page.hasOverlay()
	}, time.Second, 5*time.Millisecond)
}

func TestPageSession_IgnoreReportCrossesBus(t *testing.T) {
	page := newFakePage("https://youtube.com/")
	s, bus := newTestSession(t, page)

	var mu sync.Mutex
	var reported []domain.Message
	bus.Register(domain.ActionUserIgnoredBlock, func(msg domain.Message) domain.Ack {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, msg)
		return domain.Ack{Success: true}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, page.hasOverlay, time.Second, 5*time.Millisecond)

	s.Overlay().DismissIgnore()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reported, 1)
	assert.Equal(t, "https://youtube.com/", reported[0].URL)
	assert.NotEmpty(t, reported[0].Text, "report carries the displayed message")
}

func TestPageSession_StaleDecisionSkipped(t *testing.T) {
	page := newFakePage("https://youtube.com/")

	settings, err := infra.NewFileSettingsStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(settings.Close)

	bus := infra.NewBus(zap.NewNop())
	bus.Register(domain.ActionPageLoaded, func(domain.Message) domain.Ack {
		return domain.Ack{Success: true}
	})
	// The user navigates again while the decision is in flight: the page
	// has already moved when the "block" answer lands.
	bus.Register(domain.ActionURLChanged, func(msg domain.Message) domain.Ack {
		page.setURL("https://example.com/")
		return domain.Ack{Success: true, Blocked: true}
	})

	s := NewPageSession(fastMonitorConfig(), page, nil, nil, bus, settings, infra.NopSpeaker{}, nil, zap.NewNop())
	s.onNavigate("https://youtube.com/")

	assert.False(t, page.hasOverlay(), "stale block decision must not inject")
}

func TestPageSession_CancelUnloadsOverlay(t *testing.T) {
	page := newFakePage("https://youtube.com/")
	s, _ := newTestSession(t, page)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, page.hasOverlay, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.False(t, page.hasOverlay())
	assert.Equal(t, domain.OverlayAbsent, s.Overlay().State())
}
