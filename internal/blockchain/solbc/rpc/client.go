// internal/blockchain/solbc/rpc/client.go
package rpc

import (
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
)

// NewClient создает новый NodeClient поверх solana-go JSON-RPC клиента.
func NewClient(url string) *NodeClient {
	return NewNodeClient(url, solanarpc.New(url))
}

// NewNodeClient wraps an existing API implementation.
func NewNodeClient(url string, api API) *NodeClient {
	return &NodeClient{
		API:    api,
		URL:    url,
		active: true,
	}
}

// Stats возвращает текущие метрики узла
func (c *NodeClient) Stats() NodeStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return NodeStats{
		URL:          c.URL,
		Active:       c.active,
		SuccessCount: c.stats.successCount,
		ErrorCount:   c.stats.errorCount,
		Latency:      c.stats.latency,
	}
}

// IsActive возвращает текущий статус активности узла
func (c *NodeClient) IsActive() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.active
}

func (c *NodeClient) deactivate(at time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.active = false
	c.inactiveSince = at
}

// reviveIfCooled re-enables a node whose cool-down has elapsed and reports
// whether the node is usable.
func (c *NodeClient) reviveIfCooled(now time.Time, cooldown time.Duration) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.active && now.Sub(c.inactiveSince) >= cooldown {
		c.active = true
	}
	return c.active
}

// UpdateMetrics обновляет метрики узла
func (c *NodeClient) UpdateMetrics(success bool, latency time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if success {
		c.stats.successCount++
	} else {
		c.stats.errorCount++
	}

	if c.stats.latency == 0 {
		c.stats.latency = latency
		return
	}
	c.stats.latency = (c.stats.latency + latency) / 2 // скользящее среднее
}
