package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
)

// mockSettingsStore implements domain.SettingsStore for testing
type mockSettingsStore struct {
	settings    *domain.Settings
	settingsErr error
	disabled    bool
	disabledErr error
}

func (m *mockSettingsStore) GetSettings() (*domain.Settings, error) {
	return m.settings, m.settingsErr
}

func (m *mockSettingsStore) SetSettings(s *domain.Settings) error {
	m.settings = s
	return nil
}

func (m *mockSettingsStore) GetTemporaryDisabled() (bool, error) {
	return m.disabled, m.disabledErr
}

func (m *mockSettingsStore) SetTemporaryDisabled(d bool) error {
	m.disabled = d
	return nil
}

func (m *mockSettingsStore) OnChange(fn func()) {}

// fixedClock implements domain.Clock for testing
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func testSettings() *domain.Settings {
	return &domain.Settings{
		BlockedSites: []string{"youtube.com"},
		Schedule: domain.Schedule{
			Enabled:   true,
			StartTime: "09:00",
			EndTime:   "17:00",
			WorkDays:  []int{1, 2, 3, 4, 5},
		},
		DespairMessages: []string{"back to work"},
	}
}

// tuesdayAt returns a Tuesday (2024-01-09) at the given time.
func tuesdayAt(hh, mm int) fixedClock {
	return fixedClock{now: time.Date(2024, 1, 9, hh, mm, 0, 0, time.UTC)}
}

func TestShouldBlock_MatchedSiteInsideWindow(t *testing.T) {
	store := &mockSettingsStore{settings: testSettings()}
	d := NewDecider(store, tuesdayAt(10, 0), zap.NewNop())

	assert.True(t, d.ShouldBlock("https://m.youtube.com/watch?v=1"))
}

func TestShouldBlock_OutsideWindow(t *testing.T) {
	store := &mockSettingsStore{settings: testSettings()}
	d := NewDecider(store, tuesdayAt(18, 0), zap.NewNop())

	assert.False(t, d.ShouldBlock("https://m.youtube.com/watch?v=1"))
}

func TestShouldBlock_TemporaryDisabledShortCircuits(t *testing.T) {
	store := &mockSettingsStore{settings: testSettings(), disabled: true}
	d := NewDecider(store, tuesdayAt(10, 0), zap.NewNop())

	assert.False(t, d.ShouldBlock("https://youtube.com/"))
}

func TestShouldBlock_UnmatchedSite(t *testing.T) {
	store := &mockSettingsStore{settings: testSettings()}
	d := NewDecider(store, tuesdayAt(10, 0), zap.NewNop())

	assert.False(t, d.ShouldBlock("https://example.com/"))
}

func TestShouldBlock_MalformedURLNeverBlocks(t *testing.T) {
	store := &mockSettingsStore{settings: testSettings()}
	d := NewDecider(store, tuesdayAt(10, 0), zap.NewNop())

	assert.False(t, d.ShouldBlock("not a url"))
	assert.False(t, d.ShouldBlock("about:blank"))
	assert.False(t, d.ShouldBlock(""))
}

func TestShouldBlock_UninitializedConfig(t *testing.T) {
	store := &mockSettingsStore{settings: nil}
	d := NewDecider(store, tuesdayAt(10, 0), zap.NewNop())

	assert.False(t, d.ShouldBlock("https://youtube.com/"))
}

func TestShouldBlock_StoreFailureFailsOpen(t *testing.T) {
	store := &mockSettingsStore{settingsErr: errors.New("storage rejected")}
	d := NewDecider(store, tuesdayAt(10, 0), zap.NewNop())

	assert.False(t, d.ShouldBlock("https://youtube.com/"))

	store = &mockSettingsStore{settings: testSettings(), disabledErr: errors.New("storage rejected")}
	d = NewDecider(store, tuesdayAt(10, 0), zap.NewNop())

	assert.False(t, d.ShouldBlock("https://youtube.com/"))
}

func TestShouldBlock_ConfigEditTakesEffectNextCall(t *testing.T) {
	store := &mockSettingsStore{settings: testSettings()}
	d := NewDecider(store, tuesdayAt(10, 0), zap.NewNop())

	assert.False(t, d.ShouldBlock("https://news.ycombinator.com/"))

	cfg := testSettings()
	cfg.BlockedSites = append(cfg.BlockedSites, "news.ycombinator.com")
	store.settings = cfg

	assert.True(t, d.ShouldBlock("https://news.ycombinator.com/"))
}

func TestShouldBlock_ScheduleOffBlocksAnytime(t *testing.T) {
	cfg := testSettings()
	cfg.Schedule.Enabled = false
	store := &mockSettingsStore{settings: cfg}

	// Saturday 03:00 - still blocked when the schedule is off.
	saturday := fixedClock{now: time.Date(2024, 1, 13, 3, 0, 0, 0, time.UTC)}
	d := NewDecider(store, saturday, zap.NewNop())

	assert.True(t, d.ShouldBlock("https://youtube.com/"))
}
