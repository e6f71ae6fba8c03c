// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// Schedule defines the daily blocking window.
// StartTime/EndTime are zero-padded "HH:MM" strings; StartTime < EndTime
// lexicographically. This is enforced at the edit boundary (CLI), the
// evaluator does not re-validate it. Windows crossing midnight are not
// supported.
type Schedule struct {
	Enabled   bool   `json:"enabled"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	WorkDays  []int  `json:"workDays"` // 0=Sunday .. 6=Saturday
}

// Settings is the singleton configuration object, persisted and shared
// across all contexts (daemon, CLI, page sessions).
type Settings struct {
	BlockedSites    []string `json:"blockedSites"`    // lowercase host fragments, insertion order kept
	Schedule        Schedule `json:"schedule"`
	DespairMessages []string `json:"despairMessages"` // length >= 1, enforced at edit time
	EnableTTS       bool     `json:"enableTTS"`
}

// DefaultSettings returns the configuration created on first run.
func DefaultSettings() *Settings {
	return &Settings{
		BlockedSites: []string{
			"youtube.com",
			"reddit.com",
			"twitter.com",
			"x.com",
			"facebook.com",
			"instagram.com",
			"tiktok.com",
			"twitch.tv",
		},
		Schedule: Schedule{
			Enabled:   true,
			StartTime: "09:00",
			EndTime:   "17:00",
			WorkDays:  []int{1, 2, 3, 4, 5},
		},
		DespairMessages: []string{
			"This is not what you sat down to do.",
			"Future you is watching. They look disappointed.",
			"The deadline does not care about this video.",
			"You opened this tab on autopilot. Close it on purpose.",
			"Every minute here is a minute you will want back.",
		},
		EnableTTS: false,
	}
}

// RunState is the daemon's cross-process state, persisted to a hidden
// file for discovery by the CLI and the page monitors' liveness probe.
type RunState struct {
	Version       int    `json:"version"`
	DaemonPID     int    `json:"daemon_pid"`
	DaemonName    string `json:"daemon_name"`
	LastHeartbeat int64  `json:"last_heartbeat"`
}

// OverlayState is the lifecycle state of a page's blocking surface.
type OverlayState string

const (
	OverlayAbsent  OverlayState = "absent"
	OverlayVisible OverlayState = "visible"
)

// DismissReason records why an overlay left the VISIBLE state.
type DismissReason string

const (
	DismissGoBack    DismissReason = "go_back"
	DismissIgnored   DismissReason = "ignored"
	DismissEscape    DismissReason = "escape"
	DismissUnload    DismissReason = "unload"
	DismissExpired   DismissReason = "expired"
	DismissEmergency DismissReason = "emergency"
)

// OverlaySpec describes the surface the page host must render: full
// viewport, above all page content, scroll disabled for its lifetime.
type OverlaySpec struct {
	SurfaceID string // reserved element identifier, at most one per page
	Title     string
	Message   string // the chosen despair message
	Footer    string
	ShownAt   time.Time
}

// IgnoredBlockEvent is the best-effort report emitted when the user
// dismisses an overlay via the secondary "ignore" action.
type IgnoredBlockEvent struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MessageAction discriminates messages between page contexts and the
// background context.
type MessageAction string

const (
	ActionURLChanged       MessageAction = "urlChanged"
	ActionTabVisible       MessageAction = "tabVisible"
	ActionPageLoaded       MessageAction = "pageLoaded"
	ActionUserIgnoredBlock MessageAction = "userIgnoredBlock"
	ActionUpdateSchedule   MessageAction = "updateSchedule"
	ActionCheckBlockStatus MessageAction = "checkBlockStatus"
)

// Message is the minimal cross-context payload. Notification delivery is
// best-effort: a message may be dropped if the receiving context is gone,
// and senders must not depend on delivery.
type Message struct {
	ID        string        `json:"id"`
	Action    MessageAction `json:"action"`
	URL       string        `json:"url,omitempty"`
	Text      string        `json:"text,omitempty"` // displayed message, userIgnoredBlock only
	Timestamp int64         `json:"timestamp"`
}

// Ack is the acknowledgement object for a handled message.
type Ack struct {
	Success bool `json:"success"`
	Blocked bool `json:"blocked,omitempty"` // set for checkBlockStatus
}

// Names of the two recurring daily triggers. Alarm firings are a coarse
// wake/log signal only; blocking decisions always re-derive from
// wall-clock time.
const (
	AlarmBlockingStart = "blockingStart"
	AlarmBlockingEnd   = "blockingEnd"
)
