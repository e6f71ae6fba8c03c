package infra

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fireRecorder struct {
	mu    sync.Mutex
	fired []string
}

func (r *fireRecorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, name)
}

func (r *fireRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.fired...)
}

func TestTimerAlarmService_FiresAtScheduledTime(t *testing.T) {
	svc := NewTimerAlarmService()
	defer svc.ClearAll()

	rec := &fireRecorder{}
	svc.OnFire(rec.record)

	require.NoError(t, svc.Create("blockingStart", time.Now().Add(30*time.Millisecond), 0))

	assert.Eventually(t, func() bool {
		names := rec.names()
		return len(names) == 1 && names[0] == "blockingStart"
	}, time.Second, 10*time.Millisecond)
}

func TestTimerAlarmService_RecursWithPeriod(t *testing.T) {
	svc := NewTimerAlarmService()
	defer svc.ClearAll()

	rec := &fireRecorder{}
	svc.OnFire(rec.record)

	require.NoError(t, svc.Create("tick", time.Now().Add(10*time.Millisecond), 20*time.Millisecond))

	assert.Eventually(t, func() bool {
		return len(rec.names()) >= 3
	}, time.Second, 10*time.Millisecond)
}

func TestTimerAlarmService_CreateReplacesExisting(t *testing.T) {
	svc := NewTimerAlarmService()
	defer svc.ClearAll()

	rec := &fireRecorder{}
	svc.OnFire(rec.record)

	// First schedule would fire soon; replacing it must cancel that.
	require.NoError(t, svc.Create("a", time.Now().Add(20*time.Millisecond), 0))
	require.NoError(t, svc.Create("a", time.Now().Add(300*time.Millisecond), 0))

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.names(), "replaced alarm must not fire on the old schedule")
}

func TestTimerAlarmService_ClearAllCancels(t *testing.T) {
	svc := NewTimerAlarmService()

	rec := &fireRecorder{}
	svc.OnFire(rec.record)

	require.NoError(t, svc.Create("a", time.Now().Add(50*time.Millisecond), 0))
	require.NoError(t, svc.Create("b", time.Now().Add(50*time.Millisecond), 0))
	require.NoError(t, svc.ClearAll())

	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, rec.names())
}

func TestTimerAlarmService_PastTimeFiresImmediately(t *testing.T) {
	svc := NewTimerAlarmService()
	defer svc.ClearAll()

	rec := &fireRecorder{}
	svc.OnFire(rec.record)

	require.NoError(t, svc.Create("late", time.Now().Add(-time.Second), 0))

	assert.Eventually(t, func() bool {
		return len(rec.names()) == 1
	}, time.Second, 10*time.Millisecond)
}
