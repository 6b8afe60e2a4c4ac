package ingest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbitrage-core/internal/graph"
)

func newTestProcessor(t *testing.T, queueSize int) (*Processor, *graph.Graph) {
	t.Helper()
	g := graph.New(10)
	p := New(g, queueSize, nil)
	return p, g
}

func TestSubmit_RejectsInvalidSymbol(t *testing.T) {
	p, _ := newTestProcessor(t, 8)
	err := p.Submit("binance", "BTCUSDT", 100, 101, 1, time.Now())
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedSymbol)
	assert.Equal(t, uint64(1), p.Processed(), "rejected ticks still count toward messages_processed")
}

func TestSubmit_RejectsBothSidesNonPositive(t *testing.T) {
	p, _ := newTestProcessor(t, 8)
	err := p.Submit("binance", "BTC/USDT", 0, 0, 1, time.Now())
	assert.ErrorIs(t, err, ErrNonPositivePrice)
	assert.Equal(t, uint64(1), p.Processed(), "rejected ticks still count toward messages_processed")
}

func TestSubmit_QueueFullReturnsError(t *testing.T) {
	p, _ := newTestProcessor(t, 1)

	// fill the single slot without a worker draining it
	require.NoError(t, p.Submit("binance", "BTC/USDT", 100, 101, 1, time.Now()))
	err := p.Submit("binance", "ETH/USDT", 100, 101, 1, time.Now())
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, uint64(2), p.Processed(), "a queue-full rejection still counts as a received call")
}

func TestProcessor_AppliesEdgesEndToEnd(t *testing.T) {
	p, g := newTestProcessor(t, 16)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx, 2)
	defer func() {
		cancel()
		p.Stop()
	}()

	require.NoError(t, p.Submit("binance", "BTC/USDT", 50000, 50010, 1.5, time.Now()))

	require.Eventually(t, func() bool {
		_, ok := g.Index("BTC_binance")
		return ok
	}, time.Second, time.Millisecond)

	u, ok := g.Index("BTC_binance")
	require.True(t, ok)
	v, ok := g.Index("USDT_binance")
	require.True(t, ok)

	require.Eventually(t, func() bool {
		return !math.IsInf(g.Weight(u, v), 1)
	}, time.Second, time.Millisecond)

	assert.InDelta(t, -math.Log(50000), g.Weight(u, v), 1e-6)
	assert.InDelta(t, -math.Log(1.0/50010), g.Weight(v, u), 1e-6)
}

func TestProcessor_PartialPriceStillApplies(t *testing.T) {
	p, g := newTestProcessor(t, 16)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx, 1)
	defer func() {
		cancel()
		p.Stop()
	}()

	// only bid is usable; ask is non-positive
	require.NoError(t, p.Submit("binance", "BTC/USDT", 50000, 0, 1, time.Now()))

	require.Eventually(t, func() bool {
		u, uok := g.Index("BTC_binance")
		v, vok := g.Index("USDT_binance")
		return uok && vok && !math.IsInf(g.Weight(u, v), 1)
	}, time.Second, time.Millisecond)

	u, _ := g.Index("BTC_binance")
	v, _ := g.Index("USDT_binance")
	assert.True(t, math.IsInf(g.Weight(v, u), 1), "ask-side edge should remain unset")
}
