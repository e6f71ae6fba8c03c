package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
)

// NavigationSource observes one class of URL change for a page and emits
// candidate URLs. Sources are interchangeable behind this interface so an
// interception adapter can later be swapped for a native listener.
type NavigationSource interface {
	// Name identifies the source in logs.
	Name() string

	// Start begins observation. Emitted URLs arrive on the returned
	// channel until ctx is canceled. Returns an error if observation
	// cannot be established.
	Start(ctx context.Context) (<-chan string, error)
}

// NavigationAPI is the pair of history-mutation entry points a page
// exposes for programmatic navigation.
type NavigationAPI interface {
	PushState(url string)
	ReplaceState(url string)
}

// HistoryAdapter wraps a NavigationAPI so that every programmatic
// navigation is observable. Its sole job is "observe navigation, emit
// event"; it performs no decisions of its own.
type HistoryAdapter struct {
	inner NavigationAPI
	ch    chan string
}

// NewHistoryAdapter wraps inner's history-mutation entry points.
// inner may be nil when there is no underlying API to forward to.
func NewHistoryAdapter(inner NavigationAPI) *HistoryAdapter {
	return &HistoryAdapter{
		inner: inner,
		ch:    make(chan string, 16),
	}
}

func (a *HistoryAdapter) Name() string { return "history" }

func (a *HistoryAdapter) Start(ctx context.Context) (<-chan string, error) {
	return a.ch, nil
}

// PushState forwards to the wrapped API and emits the navigation.
func (a *HistoryAdapter) PushState(url string) {
	if a.inner != nil {
		a.inner.PushState(url)
	}
	a.emit(url)
}

// ReplaceState forwards to the wrapped API and emits the navigation.
func (a *HistoryAdapter) ReplaceState(url string) {
	if a.inner != nil {
		a.inner.ReplaceState(url)
	}
	a.emit(url)
}

// Pop reports a back/forward navigation to the new URL.
func (a *HistoryAdapter) Pop(url string) {
	a.emit(url)
}

// emit never blocks: if the monitor cannot keep up, the event is dropped
// and the poll fallback catches the URL on its next tick.
func (a *HistoryAdapter) emit(url string) {
	select {
	case a.ch <- url:
	default:
	}
}

var _ NavigationSource = (*HistoryAdapter)(nil)
var _ NavigationAPI = (*HistoryAdapter)(nil)

// DOMObserver delivers a signal per DOM subtree mutation batch.
type DOMObserver interface {
	// Observe starts subtree observation. Returns an error if it cannot
	// be established, e.g. the document body is not yet present.
	Observe(ctx context.Context) (<-chan struct{}, error)
}

// MutationSource is the heuristic fallback for frameworks that bypass the
// history API: any subtree mutation makes it re-read the page URL.
type MutationSource struct {
	page domain.PageSurface
	obs  DOMObserver
}

func NewMutationSource(page domain.PageSurface, obs DOMObserver) *MutationSource {
	return &MutationSource{page: page, obs: obs}
}

func (s *MutationSource) Name() string { return "mutation" }

func (s *MutationSource) Start(ctx context.Context) (<-chan string, error) {
	if s.obs == nil {
		return nil, fmt.Errorf("no DOM observer available")
	}
	mutations, err := s.obs.Observe(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting DOM observation: %w", err)
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-mutations:
				if !ok {
					return
				}
				select {
				case out <- s.page.URL():
				default:
				}
			}
		}
	}()
	return out, nil
}

var _ NavigationSource = (*MutationSource)(nil)

// PollSource is the last-resort fixed-interval poll, used when structural
// observation cannot be established.
type PollSource struct {
	page     domain.PageSurface
	interval time.Duration
}

func NewPollSource(page domain.PageSurface, interval time.Duration) *PollSource {
	if interval <= 0 {
		interval = time.Second
	}
	return &PollSource{page: page, interval: interval}
}

func (s *PollSource) Name() string { return "poll" }

func (s *PollSource) Start(ctx context.Context) (<-chan string, error) {
	out := make(chan string, 16)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case out <- s.page.URL():
				default:
				}
			}
		}
	}()
	return out, nil
}

var _ NavigationSource = (*PollSource)(nil)
