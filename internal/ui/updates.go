package ui

import (
	"context"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txflow/internal/events"
)

// EventMsg carries a submission event into the program.
type EventMsg struct {
	Event events.Event
}

// UpdateSender provides non-blocking UI update sending with statistics.
// Producers never wait on the UI; when the buffer is full the update is
// dropped and counted.
type UpdateSender struct {
	msgChan        chan tea.Msg
	droppedUpdates atomic.Uint64
	sentUpdates    atomic.Uint64
	logger         *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewUpdateSender creates a sender with the given buffer size.
func NewUpdateSender(buffer int, logger *zap.Logger) *UpdateSender {
	if buffer <= 0 {
		buffer = 64
	}
	return &UpdateSender{
		msgChan: make(chan tea.Msg, buffer),
		logger:  logger.Named("ui-updates"),
		done:    make(chan struct{}),
	}
}

// SendUpdate sends a message to UI without blocking.
func (us *UpdateSender) SendUpdate(msg tea.Msg) {
	select {
	case <-us.done:
		us.droppedUpdates.Add(1)
		return
	default:
	}
	select {
	case us.msgChan <- msg:
		us.sentUpdates.Add(1)
	default:
		us.droppedUpdates.Add(1)
	}
}

// GetStats returns current statistics
func (us *UpdateSender) GetStats() (sent, dropped uint64) {
	return us.sentUpdates.Load(), us.droppedUpdates.Load()
}

// Listen waits for the next update. Re-issue it after every delivered
// message to keep listening.
func (us *UpdateSender) Listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-us.msgChan:
			return msg
		case <-us.done:
			return nil
		}
	}
}

// Close stops delivery and reports drop statistics. Safe to call twice.
func (us *UpdateSender) Close() {
	us.closeOnce.Do(func() {
		close(us.done)
		sent, dropped := us.GetStats()
		if dropped > 0 {
			us.logger.Warn("UI update statistics",
				zap.Uint64("sent", sent),
				zap.Uint64("dropped", dropped),
				zap.Float64("drop_rate", float64(dropped)/float64(sent+dropped)*100))
		}
	})
}

// Subscriber is the part of the event bus the UI needs.
type Subscriber interface {
	Subscribe(eventType events.EventType, handler events.Handler) events.Subscription
}

// BridgeEvents forwards every submission event from bus to us.
func BridgeEvents(bus Subscriber, us *UpdateSender) []events.Subscription {
	forward := events.HandlerFunc(func(_ context.Context, event events.Event) error {
		us.SendUpdate(EventMsg{Event: event})
		return nil
	})

	types := []events.EventType{
		events.PhaseChanged,
		events.TxSubmitted,
		events.TxRebuilt,
		events.TxConfirmed,
		events.TxFailed,
	}
	subs := make([]events.Subscription, 0, len(types))
	for _, t := range types {
		subs = append(subs, bus.Subscribe(t, forward))
	}
	return subs
}
