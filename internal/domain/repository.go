package domain

import (
	"context"
	"time"
)

// SettingsStore persists the configuration object and the transient
// temporary-disable flag, with change notification.
// Implementation: flock-guarded JSON file with atomic writes.
type SettingsStore interface {
	// GetSettings returns the current configuration, or nil if not yet
	// initialized.
	GetSettings() (*Settings, error)

	// SetSettings replaces the configuration. Last write wins; there is no
	// transactional update path across concurrent editors.
	SetSettings(s *Settings) error

	// GetTemporaryDisabled reads the session-level blocking override.
	GetTemporaryDisabled() (bool, error)

	// SetTemporaryDisabled toggles the session-level blocking override.
	SetTemporaryDisabled(disabled bool) error

	// OnChange registers a callback invoked after any persisted change.
	// Callbacks run on the store's watcher goroutine.
	OnChange(fn func())
}

// AlarmService is the host alarm facility: named recurring triggers.
type AlarmService interface {
	// Create schedules a named alarm firing at `when`, then every
	// `period` thereafter. Creating an existing name replaces it.
	Create(name string, when time.Time, period time.Duration) error

	// ClearAll cancels every alarm.
	ClearAll() error

	// OnFire registers the single callback invoked with the alarm name.
	OnFire(fn func(name string))
}

// PageSurface is the host-provided handle to one page document. The
// overlay controller owns at most one surface per page through it.
type PageSurface interface {
	// URL returns the page's current effective URL.
	URL() string

	// ShowOverlay renders the blocking surface. Fails on restricted pages;
	// the caller logs and gives up (no retry).
	ShowOverlay(spec OverlaySpec) error

	// RemoveOverlay tears the surface down. Removing a non-existent
	// surface is a no-op.
	RemoveOverlay() error

	// SetScrollLocked disables or restores page scrolling.
	SetScrollLocked(locked bool)

	// HistoryDepth returns the page's history stack depth.
	HistoryDepth() int

	// NavigateBack goes back one history entry.
	NavigateBack() error

	// NavigateTo replaces the page with the given URL.
	NavigateTo(url string) error
}

// Speaker voices a despair message. Cosmetic: all failures are swallowed
// by callers.
type Speaker interface {
	// Speak utters text once at reduced rate, pitch and volume.
	Speak(ctx context.Context, text string) error
}

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// RunStateStore provides daemon discovery and the temporary-disable flag
// across processes. Implementation: hidden JSON file.
type RunStateStore interface {
	// RegisterDaemon saves the daemon's PID and process name.
	RegisterDaemon(pid int, name string) error

	// UpdateHeartbeat updates the liveness timestamp.
	UpdateHeartbeat() error

	// Get returns the full run state, or nil if none exists.
	Get() (*RunState, error)

	// Clear removes the run-state file (for clean restart).
	Clear() error

	// Path returns the hidden file path (for tests).
	Path() string
}

// RuntimeProbe answers whether the owning background runtime is still
// reachable. Page monitors poll this; when it reports dead they clean up
// locally and go quiet, with no retries and no user-visible error.
type RuntimeProbe interface {
	Alive() bool
}

// EventSink accepts ignored-block events. Fire-and-forget: the report
// may be dropped and callers must not depend on delivery.
type EventSink interface {
	// Report records one event, best-effort.
	Report(ev IgnoredBlockEvent) error
}

// EventReporter is the full event store: a sink plus queries.
type EventReporter interface {
	EventSink

	// Recent returns up to limit most recent events, newest first.
	Recent(limit int) ([]IgnoredBlockEvent, error)

	// Close releases resources (e.g., database connection).
	Close() error
}

// KeyProvider abstracts the source of the event-log encryption key.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// Decider is the blocking decision service. Read-only, no memoization:
// every call re-reads live configuration, so edits take effect on the
// very next navigation.
type Decider interface {
	// ShouldBlock reports whether url should be blocked right now.
	// Never returns an error to the caller: storage failures and
	// malformed URLs both degrade to "do not block".
	ShouldBlock(url string) bool
}

// Clock abstracts wall-clock time for the schedule evaluator and the
// overlay expiry sweep.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
