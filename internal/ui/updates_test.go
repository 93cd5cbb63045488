package ui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txflow/internal/events"
	"github.com/rovshanmuradov/solana-txflow/internal/transaction"
)

func TestUpdateSenderNonBlocking(t *testing.T) {
	sender := NewUpdateSender(10, zap.NewNop())
	defer sender.Close()

	for i := 0; i < 10; i++ {
		sender.SendUpdate(EventMsg{})
	}

	start := time.Now()
	for i := 0; i < 100; i++ {
		sender.SendUpdate(EventMsg{})
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond, "SendUpdate must not block")

	sent, dropped := sender.GetStats()
	assert.Equal(t, uint64(10), sent)
	assert.Equal(t, uint64(100), dropped)
}

func TestUpdateSenderConcurrent(t *testing.T) {
	sender := NewUpdateSender(1000, zap.NewNop())
	defer sender.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sender.SendUpdate(EventMsg{})
			}
		}()
	}
	wg.Wait()

	sent, dropped := sender.GetStats()
	assert.Equal(t, uint64(1000), sent+dropped)
}

func TestUpdateSenderAfterClose(t *testing.T) {
	sender := NewUpdateSender(4, zap.NewNop())
	sender.Close()
	sender.Close()

	assert.NotPanics(t, func() { sender.SendUpdate(EventMsg{}) })
	assert.Nil(t, sender.Listen()())
}

func TestBridgeEventsForwardsBusEvents(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), 16)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	sender := NewUpdateSender(16, zap.NewNop())
	defer sender.Close()

	subs := BridgeEvents(bus, sender)
	require.Len(t, subs, 5)

	require.NoError(t, bus.PublishSync(context.Background(), &events.PhaseChangedEvent{
		BaseEvent: events.NewBase(events.PhaseChanged),
		From:      "idle",
		To:        "signing",
	}))

	msg := sender.Listen()()
	ev, ok := msg.(EventMsg)
	require.True(t, ok)
	assert.Equal(t, events.PhaseChanged, ev.Event.Type())

	for _, s := range subs {
		s.Unsubscribe()
	}
	require.NoError(t, bus.PublishSync(context.Background(), &events.TxRebuiltEvent{
		BaseEvent: events.NewBase(events.TxRebuilt),
	}))
	sent, dropped := sender.GetStats()
	assert.Equal(t, uint64(1), sent)
	assert.Zero(t, dropped)
}

func TestTransferModelTracksEvents(t *testing.T) {
	sender := NewUpdateSender(4, zap.NewNop())
	defer sender.Close()

	sig := solana.SignatureFromBytes(make([]byte, 64))
	m := NewTransferModel("transfer", sender, nil, func() transaction.Result {
		return transaction.Result{Signature: sig}
	}, nil)

	m.Update(EventMsg{Event: &events.PhaseChangedEvent{To: "sending"}})
	assert.Equal(t, "sending", m.phase)

	m.Update(EventMsg{Event: &events.TxRebuiltEvent{Attempt: 2}})
	m.Update(EventMsg{Event: &events.TxSubmittedEvent{Signature: "abc", Attempt: 2}})
	assert.Equal(t, 1, m.rebuilds)
	assert.Equal(t, 2, m.attempt)
	assert.Equal(t, "abc", m.signature)

	_, done := m.Result()
	assert.False(t, done)

	_, cmd := m.Update(ResultMsg{Result: transaction.Result{Signature: sig}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	res, done := m.Result()
	assert.True(t, done)
	assert.True(t, res.OK())
	assert.Equal(t, "idle", m.phase)
	assert.Contains(t, m.View(), "confirmed")
}

func TestTransferModelCancelBeforeResult(t *testing.T) {
	sender := NewUpdateSender(4, zap.NewNop())
	defer sender.Close()

	canceled := false
	m := NewTransferModel("transfer", sender, nil, nil, func() { canceled = true })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, canceled)
	assert.Nil(t, cmd, "the program waits for the canceled submission to return")

	failed := transaction.NewError(transaction.CodeUserRejected, errors.New("declined"))
	m.Update(ResultMsg{Result: transaction.Result{Err: failed}})
	assert.Contains(t, m.View(), string(transaction.CodeUserRejected))
}
