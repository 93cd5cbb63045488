// internal/blockchain/solbc/rpc/types.go
package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	DefaultTimeout  = 10 * time.Second
	MaxRetries      = 3
	RetryDelay      = 500 * time.Millisecond
	DefaultCooldown = 30 * time.Second
)

// API is the subset of the solana-go JSON-RPC client the pool routes.
type API interface {
	GetLatestBlockhash(ctx context.Context, commitment solanarpc.CommitmentType) (*solanarpc.GetLatestBlockhashResult, error)
	SendRawTransactionWithOpts(ctx context.Context, txData []byte, opts solanarpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error)
	GetBlockHeight(ctx context.Context, commitment solanarpc.CommitmentType) (uint64, error)
	GetBalance(ctx context.Context, account solana.PublicKey, commitment solanarpc.CommitmentType) (*solanarpc.GetBalanceResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment solanarpc.CommitmentType) (*solanarpc.GetTokenAccountBalanceResult, error)
	GetHealth(ctx context.Context) (string, error)
}

var _ API = (*solanarpc.Client)(nil)

// NodeClient представляет отдельный RPC узел
type NodeClient struct {
	API API
	URL string

	mutex         sync.RWMutex
	active        bool
	inactiveSince time.Time
	stats         nodeStats
}

// nodeStats содержит метрики производительности RPC узла
type nodeStats struct {
	successCount uint64
	errorCount   uint64
	latency      time.Duration
}

// NodeStats is a point-in-time copy of a node's counters.
type NodeStats struct {
	URL          string
	Active       bool
	SuccessCount uint64
	ErrorCount   uint64
	Latency      time.Duration
}

// Pool представляет пул RPC клиентов
type Pool struct {
	clients   []*NodeClient
	currIndex int
	mutex     sync.Mutex

	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	cooldown   time.Duration
	now        func() time.Time

	metrics *Metrics
	logger  *zap.Logger
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithTimeout bounds every single RPC call.
func WithTimeout(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithRetries sets how many nodes a call may be tried on and the pause
// between tries.
func WithRetries(n int, delay time.Duration) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.maxRetries = n
		}
		if delay >= 0 {
			p.retryDelay = delay
		}
	}
}

// WithCooldown sets how long a failed node stays out of rotation.
func WithCooldown(d time.Duration) PoolOption {
	return func(p *Pool) { p.cooldown = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) PoolOption {
	return func(p *Pool) { p.now = now }
}

// WithMetrics enables per-method call counters.
func WithMetrics(m *Metrics) PoolOption {
	return func(p *Pool) { p.metrics = m }
}
