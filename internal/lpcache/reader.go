package lpcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ChainSource reads token balances from the cluster.
type ChainSource interface {
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (*rpc.UiTokenAmount, error)
}

// Source tells where a position was served from.
type Source string

const (
	SourceCache Source = "cache"
	SourceStore Source = "store"
	SourceChain Source = "chain"
)

// DefaultPrefetchConcurrency bounds parallel chain reads in Prefetch.
const DefaultPrefetchConcurrency = 4

// sharedLookupTimeout bounds a lookup that no longer follows its first
// caller's cancellation.
const sharedLookupTimeout = 30 * time.Second

// Reader serves positions cache first, then store, then chain. A store
// record is used only while younger than the freshness window; chain reads
// are written back to both the store and the cache.
type Reader struct {
	cache     *Cache[Position]
	store     Store
	chain     ChainSource
	freshness time.Duration
	now       func() time.Time
	group     singleflight.Group
	logger    *zap.Logger
}

// NewReader wires a reader. A nil clock means time.Now.
func NewReader(cache *Cache[Position], store Store, chain ChainSource, freshness time.Duration, now func() time.Time, logger *zap.Logger) *Reader {
	if now == nil {
		now = time.Now
	}
	return &Reader{
		cache:     cache,
		store:     store,
		chain:     chain,
		freshness: freshness,
		now:       now,
		logger:    logger.Named("lp_reader"),
	}
}

// Get returns the position of account and where it came from. Concurrent
// calls for the same account share one lookup. The shared lookup outlives
// any single caller; each caller stops waiting when its own ctx is done.
func (r *Reader) Get(ctx context.Context, account solana.PublicKey) (Position, Source, error) {
	key := account.String()
	if p, ok := r.cache.Get(key); ok {
		return p, SourceCache, nil
	}

	type result struct {
		pos Position
		src Source
	}
	ch := r.group.DoChan(key, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()
		pos, src, err := r.load(lookupCtx, account)
		return result{pos, src}, err
	})

	select {
	case <-ctx.Done():
		return Position{}, "", ctx.Err()
	case out := <-ch:
		if out.Err != nil {
			return Position{}, "", out.Err
		}
		res := out.Val.(result)
		return res.pos, res.src, nil
	}
}

func (r *Reader) load(ctx context.Context, account solana.PublicKey) (Position, Source, error) {
	key := account.String()

	if r.store != nil {
		p, err := r.store.Load(ctx, account)
		switch {
		case err == nil && r.now().Sub(p.UpdatedAt) < r.freshness:
			r.cache.Set(key, p)
			return p, SourceStore, nil
		case err == nil:
			r.logger.Debug("Stored position is stale",
				zap.String("account", key),
				zap.Time("updated_at", p.UpdatedAt))
		case errors.Is(err, ErrNotFound):
		default:
			r.logger.Warn("Store read failed, falling back to chain",
				zap.String("account", key),
				zap.Error(err))
		}
	}

	balance, err := r.chain.GetTokenAccountBalance(ctx, account)
	if err != nil {
		return Position{}, "", fmt.Errorf("read position %s from chain: %w", key, err)
	}
	p := Position{
		Account:   account,
		Amount:    balance.Amount,
		Decimals:  balance.Decimals,
		UiAmount:  balance.UiAmountString,
		UpdatedAt: r.now(),
	}

	if r.store != nil {
		if err := r.store.Save(ctx, p); err != nil {
			r.logger.Warn("Failed to save position", zap.String("account", key), zap.Error(err))
		}
	}
	r.cache.Set(key, p)
	return p, SourceChain, nil
}

// Prefetch warms the cache for accounts with at most limit lookups in
// flight. It stops at the first error.
func (r *Reader) Prefetch(ctx context.Context, accounts []solana.PublicKey, limit int) error {
	if limit <= 0 {
		limit = DefaultPrefetchConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, account := range accounts {
		g.Go(func() error {
			_, _, err := r.Get(gctx, account)
			return err
		})
	}
	return g.Wait()
}

// Invalidate drops account from the cache, e.g. after a transaction that
// changed it was confirmed.
func (r *Reader) Invalidate(account solana.PublicKey) {
	r.cache.Delete(account.String())
}

// EvictExpired forwards to the cache.
func (r *Reader) EvictExpired() int {
	return r.cache.EvictExpired()
}
