package infra

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
)

// Handler processes one message and returns its acknowledgement.
type Handler func(msg domain.Message) domain.Ack

// Bus routes protocol messages between page contexts and the background
// context. Contexts share no memory; everything crosses as a Message.
//
// Notify is a best-effort notification: with no registered receiver the
// message is dropped, by contract. Senders must not depend on delivery.
type Bus struct {
	mu       sync.RWMutex
	handlers map[domain.MessageAction]Handler
	logger   *zap.Logger
}

// NewBus creates an empty message bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[domain.MessageAction]Handler),
		logger:   logger,
	}
}

// Register installs the handler for an action, replacing any previous one.
func (b *Bus) Register(action domain.MessageAction, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[action] = h
}

// NewMessage builds a protocol message for an action and URL.
func NewMessage(action domain.MessageAction, url string) domain.Message {
	return domain.Message{
		ID:        uuid.NewString(),
		Action:    action,
		URL:       url,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Notify delivers a message best-effort. A missing receiver drops the
// message silently apart from a debug log; the ack is discarded.
func (b *Bus) Notify(action domain.MessageAction, url string) {
	b.Deliver(NewMessage(action, url))
}

// Deliver sends a fully formed message best-effort, same contract as
// Notify.
func (b *Bus) Deliver(msg domain.Message) {
	b.mu.RLock()
	h, ok := b.handlers[msg.Action]
	b.mu.RUnlock()

	if !ok {
		b.logger.Debug("notification dropped, no receiver",
			zap.String("action", string(msg.Action)))
		return
	}
	h(msg)
}

// Request delivers a message and returns its acknowledgement. Unlike
// Notify, a missing receiver is an error the caller sees.
func (b *Bus) Request(action domain.MessageAction, url string) (domain.Ack, error) {
	b.mu.RLock()
	h, ok := b.handlers[action]
	b.mu.RUnlock()

	if !ok {
		return domain.Ack{}, fmt.Errorf("no receiver for action %q", action)
	}
	return h(NewMessage(action, url)), nil
}
