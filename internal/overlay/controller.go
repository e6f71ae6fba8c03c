// Package overlay implements the blocking-surface state machine.
//
// An overlay lives through a single ABSENT -> VISIBLE -> ABSENT cycle per
// injection; re-entry happens only through a fresh injection request.
package overlay

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
)

const (
	// SurfaceID is the reserved element identifier; at most one surface
	// with this ID exists per page.
	SurfaceID = "focusd-sitemon-overlay"

	// DefaultTitle and DefaultFooter frame the despair message.
	DefaultTitle  = "Get back to work."
	DefaultFooter = "Blocked by focusd site_mon during work hours."

	// BlankPage is the neutral page used when there is no history to go
	// back to.
	BlankPage = "about:blank"

	// SweepInterval and ExpiryCeiling bound a stuck overlay's lifetime:
	// the periodic sweep removes any overlay older than the ceiling even
	// with no user interaction.
	SweepInterval = 30 * time.Second
	ExpiryCeiling = 5 * time.Minute

	// SpeechDelay is how long after injection the message is spoken.
	SpeechDelay = time.Second
)

// Controller owns the overlay lifecycle for one page context.
type Controller struct {
	page     domain.PageSurface
	speaker  domain.Speaker
	reporter domain.EventSink
	clock    domain.Clock
	logger   *zap.Logger
	pick     func(n int) int // message index selection, uniform random

	mu      sync.Mutex
	state   domain.OverlayState
	shownAt time.Time
	message string
	pageURL string
}

// NewController creates an overlay controller for a page.
// reporter may be nil; ignore reports are then dropped.
func NewController(
	page domain.PageSurface,
	speaker domain.Speaker,
	reporter domain.EventSink,
	clock domain.Clock,
	logger *zap.Logger,
) *Controller {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Controller{
		page:     page,
		speaker:  speaker,
		reporter: reporter,
		clock:    clock,
		logger:   logger,
		pick:     rand.Intn,
		state:    domain.OverlayAbsent,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() domain.OverlayState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Inject shows the overlay with one of messages chosen uniformly at
// random. Idempotent: if an overlay is already visible this is a no-op.
func (c *Controller) Inject(ctx context.Context, messages []string, ttsEnabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == domain.OverlayVisible {
		return nil
	}

	message := "Get back to work."
	if len(messages) > 0 {
		message = messages[c.pick(len(messages))]
	}

	spec := domain.OverlaySpec{
		SurfaceID: SurfaceID,
		Title:     DefaultTitle,
		Message:   message,
		Footer:    DefaultFooter,
		ShownAt:   c.clock.Now(),
	}

	if err := c.page.ShowOverlay(spec); err != nil {
		// Restricted page or teardown race. Logged, no retry, nothing
		// shown to the user.
		c.logger.Warn("overlay injection failed",
			zap.String("url", c.page.URL()),
			zap.Error(err))
		return err
	}

	c.page.SetScrollLocked(true)
	c.state = domain.OverlayVisible
	c.shownAt = spec.ShownAt
	c.message = message
	c.pageURL = c.page.URL()

	c.logger.Info("overlay shown",
		zap.String("url", c.pageURL),
		zap.String("message", message))

	if ttsEnabled && c.speaker != nil {
		go c.speakLater(ctx, message)
	}

	return nil
}

// speakLater voices the message once after a short delay. Speech is
// cosmetic: every failure is swallowed.
func (c *Controller) speakLater(ctx context.Context, message string) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(SpeechDelay):
	}

	if c.State() != domain.OverlayVisible {
		return
	}
	if err := c.speaker.Speak(ctx, message); err != nil {
		c.logger.Debug("speech failed", zap.Error(err))
	}
}

// DismissPrimary handles the "go back" action: back in history when there
// is somewhere to go, otherwise a neutral blank page. Any navigation
// failure falls back to simply removing the overlay.
func (c *Controller) DismissPrimary() {
	if c.State() != domain.OverlayVisible {
		return
	}

	var err error
	if c.page.HistoryDepth() > 1 {
		err = c.page.NavigateBack()
	} else {
		err = c.page.NavigateTo(BlankPage)
	}
	if err != nil {
		c.logger.Debug("go-back navigation failed, removing overlay", zap.Error(err))
	}
	c.remove(domain.DismissGoBack)
}

// DismissIgnore handles the secondary action: remove the overlay, restore
// scrolling and report the ignored block. The report is fire-and-forget;
// it may be dropped and its failure is ignored.
func (c *Controller) DismissIgnore() {
	c.mu.Lock()
	visible := c.state == domain.OverlayVisible
	url := c.pageURL
	message := c.message
	c.mu.Unlock()

	if !visible {
		return
	}

	c.remove(domain.DismissIgnored)

	if c.reporter == nil {
		return
	}
	ev := domain.IgnoredBlockEvent{
		ID:         uuid.NewString(),
		URL:        url,
		Message:    message,
		OccurredAt: c.clock.Now(),
	}
	if err := c.reporter.Report(ev); err != nil {
		c.logger.Debug("ignored-block report dropped", zap.Error(err))
	}
}

// HandleEscape removes a visible overlay on Escape key press.
func (c *Controller) HandleEscape() {
	if c.State() == domain.OverlayVisible {
		c.remove(domain.DismissEscape)
	}
}

// HandleUnload cleans up when the page goes away.
func (c *Controller) HandleUnload() {
	if c.State() == domain.OverlayVisible {
		c.remove(domain.DismissUnload)
	}
}

// EmergencyCleanup is the always-available hotkey path (Ctrl+Shift+D).
// Safe to invoke in any state, including when no overlay exists: it
// removes the surface unconditionally and restores scrolling.
func (c *Controller) EmergencyCleanup() {
	c.mu.Lock()
	c.state = domain.OverlayAbsent
	c.mu.Unlock()

	if err := c.page.RemoveOverlay(); err != nil {
		c.logger.Debug("emergency overlay removal failed", zap.Error(err))
	}
	c.page.SetScrollLocked(false)
	c.logger.Info("emergency cleanup", zap.String("reason", string(domain.DismissEmergency)))
}

// Sweep removes an overlay whose age exceeds the expiry ceiling. Called
// periodically; guards against a stuck overlay outliving its relevance.
func (c *Controller) Sweep() {
	c.mu.Lock()
	expired := c.state == domain.OverlayVisible && c.clock.Now().Sub(c.shownAt) > ExpiryCeiling
	c.mu.Unlock()

	if expired {
		c.remove(domain.DismissExpired)
	}
}

// RunSweeper runs the periodic expiry sweep until ctx is canceled.
func (c *Controller) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// remove transitions VISIBLE -> ABSENT: tear down the surface, restore
// scrolling. Removal failures are logged only; the state still resets so
// a fresh injection can follow.
func (c *Controller) remove(reason domain.DismissReason) {
	c.mu.Lock()
	if c.state == domain.OverlayAbsent {
		c.mu.Unlock()
		return
	}
	c.state = domain.OverlayAbsent
	url := c.pageURL
	c.mu.Unlock()

	if err := c.page.RemoveOverlay(); err != nil {
		c.logger.Debug("overlay removal failed", zap.Error(err))
	}
	c.page.SetScrollLocked(false)

	c.logger.Info("overlay removed",
		zap.String("url", url),
		zap.String("reason", string(reason)))
}
