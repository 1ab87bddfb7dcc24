package gateway

import (
	"sync"
	"testing"

	"github.com/edirooss/zmux-analytics/internal/domain/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func cfgWithPort(port int) *analytics.Configuration {
	return &analytics.Configuration{
		Record:     analytics.ActionConfig{IP: "127.0.0.1", Port: port},
		MoveCamera: analytics.ActionConfig{IP: "127.0.0.1", Port: port},
	}
}

func TestGateway_Empty(t *testing.T) {
	g := New(zap.NewNop())

	_, ok := g.TryTake()
	assert.False(t, ok)

	_, ok = g.Latest()
	assert.False(t, ok)
	assert.Zero(t, g.Len())
}

func TestGateway_FIFO(t *testing.T) {
	g := New(zap.NewNop())
	g.Put(cfgWithPort(1))
	g.Put(cfgWithPort(2))
	g.Put(cfgWithPort(3))

	latest, ok := g.Latest()
	require.True(t, ok)
	assert.Equal(t, 3, latest.Record.Port)
	assert.Equal(t, 3, g.Len())

	for want := 1; want <= 3; want++ {
		cfg, ok := g.TryTake()
		require.True(t, ok)
		assert.Equal(t, want, cfg.Record.Port)
	}
	_, ok = g.TryTake()
	assert.False(t, ok)

	// latest survives draining
	latest, ok = g.Latest()
	require.True(t, ok)
	assert.Equal(t, 3, latest.Record.Port)
}

func TestGateway_Seed(t *testing.T) {
	g := New(zap.NewNop())
	g.Seed(cfgWithPort(9))

	latest, ok := g.Latest()
	require.True(t, ok)
	assert.Equal(t, 9, latest.Record.Port)
	assert.Zero(t, g.Len())
}

func TestGateway_ConcurrentProducers(t *testing.T) {
	g := New(zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g.Put(cfgWithPort(i*100 + j + 1))
			}
		}(i)
	}

	taken := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		if _, ok := g.TryTake(); ok {
			taken++
			continue
		}
		select {
		case <-done:
			for {
				if _, ok := g.TryTake(); !ok {
					assert.Equal(t, 800, taken)
					return
				}
				taken++
			}
		default:
		}
	}
}
