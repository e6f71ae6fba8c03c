// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"sync"

	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
)

// FakePage is an in-memory page surface standing in for a browser tab.
// Safe for concurrent use; the monitor, overlay controller and the test
// all touch it from different goroutines.
type FakePage struct {
	mu      sync.Mutex
	url     string
	history []string
	overlay *domain.OverlaySpec
	locked  bool
}

// NewFakePage creates a page whose history contains only url.
func NewFakePage(url string) *FakePage {
	return &FakePage{
		url:     url,
		history: []string{url},
	}
}

// URL returns the page's current effective URL.
func (p *FakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// SetURL simulates a navigation: the URL changes and the history grows.
func (p *FakePage) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	p.history = append(p.history, url)
}

// ShowOverlay records the overlay surface.
func (p *FakePage) ShowOverlay(spec domain.OverlaySpec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overlay = &spec
	return nil
}

// RemoveOverlay tears the surface down; removing nothing is a no-op.
func (p *FakePage) RemoveOverlay() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overlay = nil
	return nil
}

// SetScrollLocked records the scroll state.
func (p *FakePage) SetScrollLocked(locked bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locked = locked
}

// HistoryDepth returns the simulated history stack depth.
func (p *FakePage) HistoryDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.history)
}

// NavigateBack pops one history entry.
func (p *FakePage) NavigateBack() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.history) > 1 {
		p.history = p.history[:len(p.history)-1]
		p.url = p.history[len(p.history)-1]
	}
	return nil
}

// NavigateTo replaces the page with the given URL.
func (p *FakePage) NavigateTo(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	p.history = append(p.history, url)
	return nil
}

// HasOverlay reports whether an overlay surface is currently shown.
func (p *FakePage) HasOverlay() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overlay != nil
}

// OverlayMessage returns the displayed despair message, or "".
func (p *FakePage) OverlayMessage() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.overlay == nil {
		return ""
	}
	return p.overlay.Message
}

// ScrollLocked reports whether scrolling is disabled.
func (p *FakePage) ScrollLocked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.locked
}

var _ domain.PageSurface = (*FakePage)(nil)
