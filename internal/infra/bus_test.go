package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
)

func TestBus_RequestReturnsAck(t *testing.T) {
	bus := NewBus(zap.NewNop())

	bus.Register(domain.ActionCheckBlockStatus, func(msg domain.Message) domain.Ack {
		assert.Equal(t, "https://youtube.com/", msg.URL)
		assert.NotEmpty(t, msg.ID)
		assert.NotZero(t, msg.Timestamp)
		return domain.Ack{Success: true, Blocked: true}
	})

	ack, err := bus.Request(domain.ActionCheckBlockStatus, "https://youtube.com/")
	require.NoError(t, err)
	assert.True(t, ack.Success)
	assert.True(t, ack.Blocked)
}

func TestBus_RequestWithoutReceiverErrors(t *testing.T) {
	bus := NewBus(zap.NewNop())

	_, err := bus.Request(domain.ActionUpdateSchedule, "")
	assert.Error(t, err)
}

func TestBus_NotifyWithoutReceiverIsDropped(t *testing.T) {
	bus := NewBus(zap.NewNop())

	// By contract this must be silent: no panic, no error surfaced.
	bus.Notify(domain.ActionUserIgnoredBlock, "https://youtube.com/")
}

func TestBus_NotifyDelivers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var got []domain.Message
	bus.Register(domain.ActionURLChanged, func(msg domain.Message) domain.Ack {
		got = append(got, msg)
		return domain.Ack{Success: true}
	})

	bus.Notify(domain.ActionURLChanged, "https://a.example/")
	bus.Notify(domain.ActionURLChanged, "https://b.example/")

	require.Len(t, got, 2)
	assert.Equal(t, "https://a.example/", got[0].URL)
	assert.Equal(t, "https://b.example/", got[1].URL)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestBus_RegisterReplaces(t *testing.T) {
	bus := NewBus(zap.NewNop())

	bus.Register(domain.ActionPageLoaded, func(domain.Message) domain.Ack {
		return domain.Ack{Success: false}
	})
	bus.Register(domain.ActionPageLoaded, func(domain.Message) domain.Ack {
		return domain.Ack{Success: true}
	})

	ack, err := bus.Request(domain.ActionPageLoaded, "")
	require.NoError(t, err)
	assert.True(t, ack.Success)
}
