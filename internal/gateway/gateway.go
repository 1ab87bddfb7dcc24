// Package gateway hands configurations from the REST layer to the dispatch loop.
package gateway

import (
	"sync"

	"github.com/edirooss/zmux-analytics/internal/domain/analytics"
	"go.uber.org/zap"
)

// Gateway is an unbounded FIFO of pending configurations.
//
// Producers (HTTP handlers, the config file watcher) call Put; the single
// consumer (the dispatch loop) calls TryTake once per iteration. Nothing is
// ever dropped: intermediate updates are applied in order on later iterations.
type Gateway struct {
	log *zap.Logger

	mu      sync.Mutex
	pending []*analytics.Configuration
	latest  *analytics.Configuration
}

// New returns an empty gateway.
func New(log *zap.Logger) *Gateway {
	return &Gateway{log: log.Named("gateway")}
}

// Put enqueues cfg without blocking and records it as the latest configuration.
func (g *Gateway) Put(cfg *analytics.Configuration) {
	g.mu.Lock()
	g.pending = append(g.pending, cfg)
	g.latest = cfg
	n := len(g.pending)
	g.mu.Unlock()

	g.log.Debug("configuration queued", zap.Int("pending", n))
}

// Seed records cfg as the latest configuration without queueing it.
// Used at boot when the loop has already been primed with cfg.
func (g *Gateway) Seed(cfg *analytics.Configuration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latest = cfg
}

// TryTake pops the oldest pending configuration, if any. It never blocks.
func (g *Gateway) TryTake() (*analytics.Configuration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.pending) == 0 {
		return nil, false
	}
	cfg := g.pending[0]
	g.pending[0] = nil
	g.pending = g.pending[1:]
	return cfg, true
}

// Latest returns the most recently accepted configuration.
func (g *Gateway) Latest() (*analytics.Configuration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latest, g.latest != nil
}

// Len reports how many configurations are waiting to be applied.
func (g *Gateway) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}
