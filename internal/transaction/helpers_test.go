package transaction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/solana-txflow/internal/blockchain"
	"github.com/rovshanmuradov/solana-txflow/internal/events"
	"github.com/rovshanmuradov/solana-txflow/internal/wallet"
)

// MockConnector implements blockchain.Connector.
type MockConnector struct {
	mock.Mock
}

func (m *MockConnector) GetLatestBlockhash(ctx context.Context) (blockchain.Blockhash, error) {
	args := m.Called(ctx)
	return args.Get(0).(blockchain.Blockhash), args.Error(1)
}

func (m *MockConnector) SendRawTransaction(ctx context.Context, payload []byte, opts blockchain.SendOptions) (solana.Signature, error) {
	args := m.Called(ctx, payload, opts)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockConnector) ConfirmTransaction(ctx context.Context, req blockchain.ConfirmRequest, commitment rpc.CommitmentType) (*blockchain.Confirmation, error) {
	args := m.Called(ctx, req, commitment)
	conf, _ := args.Get(0).(*blockchain.Confirmation)
	return conf, args.Error(1)
}

func testHash(b byte) solana.Hash {
	var h solana.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

func testBlockhash(b byte) blockchain.Blockhash {
	return blockchain.Blockhash{Hash: testHash(b), LastValidBlockHeight: 1000 + uint64(b)}
}

func testSig(b byte) solana.Signature {
	var s solana.Signature
	for i := range s {
		s[i] = b
	}
	return s
}

func forSig(sig solana.Signature) interface{} {
	return mock.MatchedBy(func(req blockchain.ConfirmRequest) bool {
		return req.Signature == sig
	})
}

var confirmed = &blockchain.Confirmation{Confirmed: true, Slot: 42}

// fastOptions keep retry delays negligible.
func fastOptions(extra ...Option) []Option {
	return append([]Option{
		WithBlockhashPolicy(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 1}),
		WithConfirmPolicy(RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond, Multiplier: 1}),
	}, extra...)
}

func newTestWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return wallet.FromPrivateKey(key)
}

func transferRequest(t *testing.T, signer wallet.Signer) Request {
	t.Helper()
	to := solana.NewWallet().PublicKey()
	req, err := NewRequest(signer, "test-transfer",
		system.NewTransferInstruction(1_000_000, signer.PublicKey(), to).Build())
	require.NoError(t, err)
	return req
}

// funcSigner signs through fn.
type funcSigner struct {
	pub solana.PublicKey
	fn  func(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
}

func (s *funcSigner) PublicKey() solana.PublicKey {
	return s.pub
}

func (s *funcSigner) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	return s.fn(ctx, tx)
}

func rejectingSigner(pub solana.PublicKey) *funcSigner {
	return &funcSigner{
		pub: pub,
		fn: func(context.Context, *solana.Transaction) (*solana.Transaction, error) {
			return nil, wallet.ErrUserRejected
		},
	}
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event

	// onPublish, when set, runs before the event is recorded.
	onPublish func(events.Event)
}

func (p *recordingPublisher) Publish(event events.Event) error {
	if p.onPublish != nil {
		p.onPublish(event)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) phases() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		if pc, ok := e.(*events.PhaseChangedEvent); ok {
			out = append(out, pc.To)
		}
	}
	return out
}

func (p *recordingPublisher) count(t events.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type() == t {
			n++
		}
	}
	return n
}
