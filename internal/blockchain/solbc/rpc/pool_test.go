package rpc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAPI answers GetBlockHeight and GetHealth; every other method panics
// through the nil embedded interface.
type fakeAPI struct {
	API

	mu     sync.Mutex
	calls  int
	height uint64
	err    error
	health string
}

func (f *fakeAPI) GetBlockHeight(context.Context, solanarpc.CommitmentType) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.height, f.err
}

func (f *fakeAPI) GetHealth(context.Context) (string, error) {
	return f.health, f.err
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func blockHeight(ctx context.Context, p *Pool) (uint64, error) {
	var h uint64
	err := p.Execute(ctx, "getBlockHeight", func(ctx context.Context, api API) error {
		var err error
		h, err = api.GetBlockHeight(ctx, solanarpc.CommitmentConfirmed)
		return err
	})
	return h, err
}

func newTestPool(t *testing.T, apis []*fakeAPI, opts ...PoolOption) *Pool {
	t.Helper()
	clients := make([]*NodeClient, len(apis))
	for i, api := range apis {
		clients[i] = NewNodeClient("http://node"+string(rune('a'+i)), api)
	}
	p, err := NewPoolFromClients(clients, zap.NewNop(), append([]PoolOption{WithRetries(3, 0)}, opts...)...)
	require.NoError(t, err)
	return p
}

func TestNewPoolRequiresNodes(t *testing.T) {
	_, err := NewPool(nil, zap.NewNop())
	assert.ErrorIs(t, err, ErrNoRPCNodes)

	p, err := NewPool([]string{"http://127.0.0.1:8899"}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, p.HasActiveClients())
}

func TestPoolRoundRobin(t *testing.T) {
	a, b := &fakeAPI{height: 1}, &fakeAPI{height: 2}
	p := newTestPool(t, []*fakeAPI{a, b})

	for i := 0; i < 4; i++ {
		_, err := blockHeight(context.Background(), p)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, a.callCount())
	assert.Equal(t, 2, b.callCount())
}

func TestPoolFailsOverOnTransportError(t *testing.T) {
	down := &fakeAPI{err: errors.New("dial tcp: connection refused")}
	up := &fakeAPI{height: 99}
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	p := newTestPool(t, []*fakeAPI{down, up}, WithMetrics(metrics))

	h, err := blockHeight(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), h)
	assert.False(t, p.clients[0].IsActive())
	assert.True(t, p.clients[1].IsActive())

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.calls.WithLabelValues("getBlockHeight", "failover")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.calls.WithLabelValues("getBlockHeight", "success")))

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats[0].ErrorCount)
	assert.Equal(t, uint64(1), stats[1].SuccessCount)
}

func TestPoolReturnsNodeAnswerWithoutFailover(t *testing.T) {
	answer := &jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed"}
	first := &fakeAPI{err: answer}
	second := &fakeAPI{height: 5}
	p := newTestPool(t, []*fakeAPI{first, second})

	_, err := blockHeight(context.Background(), p)
	require.Error(t, err)
	assert.True(t, IsNodeResponse(err))

	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "http://nodea", rpcErr.NodeURL)
	assert.Equal(t, "getBlockHeight", rpcErr.Method)
	assert.NotContains(t, err.Error(), "getBlockHeight")

	assert.Zero(t, second.callCount())
	assert.True(t, p.clients[0].IsActive(), "a node that answered stays in rotation")
}

func TestPoolAllNodesDown(t *testing.T) {
	boom := errors.New("EOF")
	p := newTestPool(t, []*fakeAPI{{err: boom}, {err: boom}})

	_, err := blockHeight(context.Background(), p)
	assert.ErrorIs(t, err, boom)
	assert.False(t, p.HasActiveClients())

	_, err = blockHeight(context.Background(), p)
	assert.ErrorIs(t, err, ErrNoActiveClients)
}

func TestPoolRevivesAfterCooldown(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	api := &fakeAPI{err: errors.New("connection reset by peer")}
	p := newTestPool(t, []*fakeAPI{api},
		WithCooldown(time.Minute),
		WithClock(func() time.Time { return now }))

	_, err := blockHeight(context.Background(), p)
	require.Error(t, err)
	assert.Nil(t, p.GetNextClient())

	api.mu.Lock()
	api.err = nil
	api.height = 7
	api.mu.Unlock()

	now = now.Add(59 * time.Second)
	assert.Nil(t, p.GetNextClient())

	now = now.Add(time.Second)
	h, err := blockHeight(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), h)
}

func TestPoolStopsOnCanceledContext(t *testing.T) {
	api := &fakeAPI{height: 1}
	p := newTestPool(t, []*fakeAPI{api})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := blockHeight(ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, api.callCount())
}

func TestPoolCheckHealth(t *testing.T) {
	p := newTestPool(t, []*fakeAPI{
		{health: "ok"},
		{health: "behind"},
		{err: errors.New("i/o timeout")},
	})

	healthy := p.CheckHealth(context.Background())
	assert.Equal(t, []string{"http://nodea"}, healthy)

	stats := p.Stats()
	assert.True(t, stats[0].Active)
	assert.False(t, stats[1].Active)
	assert.False(t, stats[2].Active)
}

func TestShouldFailover(t *testing.T) {
	assert.False(t, shouldFailover(nil))
	assert.False(t, shouldFailover(context.Canceled))
	assert.False(t, shouldFailover(&jsonrpc.RPCError{Code: -32005}))
	assert.True(t, shouldFailover(context.DeadlineExceeded))
	assert.True(t, shouldFailover(errors.New("unexpected EOF")))
}
