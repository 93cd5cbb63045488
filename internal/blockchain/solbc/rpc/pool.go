// internal/blockchain/solbc/rpc/pool.go
package rpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NewPool создает пул из списка URL.
func NewPool(urls []string, logger *zap.Logger, opts ...PoolOption) (*Pool, error) {
	if len(urls) == 0 {
		return nil, ErrNoRPCNodes
	}
	clients := make([]*NodeClient, len(urls))
	for i, url := range urls {
		clients[i] = NewClient(url)
	}
	return NewPoolFromClients(clients, logger, opts...)
}

// NewPoolFromClients создает пул из готовых клиентов.
func NewPoolFromClients(clients []*NodeClient, logger *zap.Logger, opts ...PoolOption) (*Pool, error) {
	if len(clients) == 0 {
		return nil, ErrNoRPCNodes
	}
	p := &Pool{
		clients:    clients,
		currIndex:  -1,
		timeout:    DefaultTimeout,
		maxRetries: MaxRetries,
		retryDelay: RetryDelay,
		cooldown:   DefaultCooldown,
		now:        time.Now,
		logger:     logger.Named("rpc-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// GetNextClient возвращает следующий активный клиент из пула по кругу.
// Узлы, чей cool-down истёк, возвращаются в ротацию.
func (p *Pool) GetNextClient() *NodeClient {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	now := p.now()
	for i := 0; i < len(p.clients); i++ {
		p.currIndex = (p.currIndex + 1) % len(p.clients)
		if p.clients[p.currIndex].reviveIfCooled(now, p.cooldown) {
			return p.clients[p.currIndex]
		}
	}
	return nil
}

// HasActiveClients проверяет наличие активных клиентов в пуле
func (p *Pool) HasActiveClients() bool {
	for _, client := range p.clients {
		if client.IsActive() {
			return true
		}
	}
	return false
}

// Stats returns a snapshot of every node.
func (p *Pool) Stats() []NodeStats {
	out := make([]NodeStats, len(p.clients))
	for i, c := range p.clients {
		out[i] = c.Stats()
	}
	return out
}

// Execute runs operation on the next active node. Transport failures take
// the node out of rotation and the call moves on to the next node; an error
// answer from a node is returned as is.
func (p *Pool) Execute(ctx context.Context, method string, operation func(context.Context, API) error) error {
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		client := p.GetNextClient()
		if client == nil {
			if lastErr != nil {
				return lastErr
			}
			return ErrNoActiveClients
		}

		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		start := time.Now()
		err := operation(callCtx, client.API)
		cancel()
		client.UpdateMetrics(err == nil, time.Since(start))

		if err == nil {
			p.metrics.record(method, "success")
			return nil
		}
		lastErr = NewError(err, client.URL, method)

		if ctx.Err() != nil {
			p.metrics.record(method, "error")
			return ctx.Err()
		}
		if !shouldFailover(err) {
			p.metrics.record(method, "error")
			return lastErr
		}

		p.metrics.record(method, "failover")
		client.deactivate(p.now())
		p.logger.Debug("RPC request failed, trying next node",
			zap.String("url", client.URL),
			zap.String("method", method),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < p.maxRetries-1 && p.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.retryDelay):
			}
		}
	}
	return lastErr
}

// CheckHealth probes every node concurrently with getHealth and updates
// its rotation status. It returns the URLs that answered "ok".
func (p *Pool) CheckHealth(ctx context.Context) []string {
	healthy := make([]bool, len(p.clients))

	g, gctx := errgroup.WithContext(ctx)
	for i, client := range p.clients {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, p.timeout)
			defer cancel()

			start := time.Now()
			status, err := client.API.GetHealth(callCtx)
			client.UpdateMetrics(err == nil, time.Since(start))
			if err != nil || status != "ok" {
				p.logger.Warn("Node health check failed",
					zap.String("url", client.URL),
					zap.String("status", status),
					zap.Error(err))
				client.deactivate(p.now())
				return nil
			}
			client.mutex.Lock()
			client.active = true
			client.mutex.Unlock()
			healthy[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var urls []string
	for i, ok := range healthy {
		if ok {
			urls = append(urls, p.clients[i].URL)
		}
	}
	return urls
}
