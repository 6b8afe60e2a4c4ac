package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbitrage-core/internal/graph"
	"arbitrage-core/pkg/utils"
)

// writeRate writes a directed edge u->v carrying the exchange rate
// (quote received per 1 unit of base), converting it to the graph's
// log-weight representation the way internal/ingest does.
func writeRate(t *testing.T, g *graph.Graph, u, v int, rate float64, seq uint64) {
	t.Helper()
	w, ok := utils.EdgeWeight(rate)
	require.True(t, ok)
	require.True(t, g.WriteEdge(u, v, w, seq))
}

func buildTriangle(t *testing.T) (*graph.Graph, int, int, int) {
	t.Helper()
	g := graph.New(10)
	a, _ := g.UpsertIndex("A_venue1")
	b, _ := g.UpsertIndex("B_venue1")
	c, _ := g.UpsertIndex("C_venue1")

	// A -> B -> C -> A with product 2.0 * 2.0 * 0.3 = 1.2 => +20% profit
	writeRate(t, g, a, b, 2.0, 1)
	writeRate(t, g, b, c, 2.0, 1)
	writeRate(t, g, c, a, 0.3, 1)
	return g, a, b, c
}

func TestScan_FindsProfitableTriangle(t *testing.T) {
	g, _, _, _ := buildTriangle(t)

	d := New(g, Config{
		MinProfitThreshold:      1.0,
		EnableTriangleArbitrage: true,
		EnableCrossExchange:     true,
	}, nil)

	opps := d.Scan()
	require.Len(t, opps, 1)
	assert.InDelta(t, 20.0, opps[0].ProfitPercentage, 1e-6)
	assert.Equal(t, []string{"venue1"}, opps[0].Venues)
	assert.Len(t, opps[0].Path, 3)
}

func TestScan_RejectsBelowThreshold(t *testing.T) {
	g, _, _, _ := buildTriangle(t)

	d := New(g, Config{
		MinProfitThreshold:      50.0, // cycle only yields 20%
		EnableTriangleArbitrage: true,
		EnableCrossExchange:     true,
	}, nil)

	assert.Empty(t, d.Scan())
}

func TestScan_NoNegativeCycleYieldsNothing(t *testing.T) {
	g := graph.New(10)
	a, _ := g.UpsertIndex("A_venue1")
	b, _ := g.UpsertIndex("B_venue1")
	writeRate(t, g, a, b, 1.0, 1) // no profit anywhere

	d := New(g, Config{MinProfitThreshold: 0.01, EnableTriangleArbitrage: true, EnableCrossExchange: true}, nil)
	assert.Empty(t, d.Scan())
}

// A two-node round trip can be numerically "negative" but is discarded:
// a cycle must span at least 3 nodes to count as arbitrage.
func TestScan_TwoNodeCycleDiscarded(t *testing.T) {
	g := graph.New(10)
	a, _ := g.UpsertIndex("USD_X")
	b, _ := g.UpsertIndex("EUR_X")
	writeRate(t, g, a, b, 1.2, 1)
	writeRate(t, g, b, a, 1.2, 1)

	d := New(g, Config{MinProfitThreshold: 0.01, EnableTriangleArbitrage: true, EnableCrossExchange: true}, nil)
	assert.Empty(t, d.Scan())
}

func TestScan_TriangleModeDisabled(t *testing.T) {
	g, _, _, _ := buildTriangle(t)

	d := New(g, Config{
		MinProfitThreshold:      1.0,
		EnableTriangleArbitrage: false,
		EnableCrossExchange:     true,
	}, nil)

	assert.Empty(t, d.Scan())
}

// buildCrossExchangeTriangle wires a 3-node cycle spanning two venues:
// USD_venue1 -> EUR_venue1 -> USD_venue2 -> USD_venue1, product
// 1.1*1.1*1.05 ≈ 1.2705 => ~27% profit.
func buildCrossExchangeTriangle(t *testing.T) (*graph.Graph, int, int, int) {
	t.Helper()
	g := graph.New(10)
	a, _ := g.UpsertIndex("USD_venue1")
	b, _ := g.UpsertIndex("EUR_venue1")
	c, _ := g.UpsertIndex("USD_venue2")

	writeRate(t, g, a, b, 1.1, 1)
	writeRate(t, g, b, c, 1.1, 1)
	writeRate(t, g, c, a, 1.05, 1)
	return g, a, b, c
}

func TestScan_CrossExchangeCycleDetected(t *testing.T) {
	g, _, _, _ := buildCrossExchangeTriangle(t)

	d := New(g, Config{
		MinProfitThreshold:      1.0,
		EnableTriangleArbitrage: true,
		EnableCrossExchange:     true,
	}, nil)

	opps := d.Scan()
	require.Len(t, opps, 1)
	assert.ElementsMatch(t, []string{"venue1", "venue2"}, opps[0].Venues)
	assert.Len(t, opps[0].Path, 3)
}

func TestScan_CrossExchangeModeDisabled(t *testing.T) {
	g, _, _, _ := buildCrossExchangeTriangle(t)

	d := New(g, Config{
		MinProfitThreshold:      1.0,
		EnableTriangleArbitrage: true,
		EnableCrossExchange:     false,
	}, nil)

	assert.Empty(t, d.Scan())
}

func TestScan_MaxVolumeClampedToPositionSize(t *testing.T) {
	g, a, b, c := buildTriangle(t)
	g.WriteVolume(a, b, 500)
	g.WriteVolume(b, c, 10) // the binding constraint
	g.WriteVolume(c, a, 1000)

	d := New(g, Config{
		MinProfitThreshold:      1.0,
		EnableTriangleArbitrage: true,
		EnableCrossExchange:     true,
		MaxPositionSize:         1000,
	}, nil)

	opps := d.Scan()
	require.Len(t, opps, 1)
	assert.InDelta(t, 10.0, opps[0].MaxVolume, 1e-9)
}

func TestScan_MaxVolumeNeverExceedsPositionSize(t *testing.T) {
	g, a, b, c := buildTriangle(t)
	g.WriteVolume(a, b, 5000)
	g.WriteVolume(b, c, 5000)
	g.WriteVolume(c, a, 5000)

	d := New(g, Config{
		MinProfitThreshold:      1.0,
		EnableTriangleArbitrage: true,
		EnableCrossExchange:     true,
		MaxPositionSize:         100,
	}, nil)

	opps := d.Scan()
	require.Len(t, opps, 1)
	assert.InDelta(t, 100.0, opps[0].MaxVolume, 1e-9)
}

func TestDedupKey_RotationInvariant(t *testing.T) {
	k1 := dedupKey([]string{"A_x", "B_x", "C_x"})
	k2 := dedupKey([]string{"B_x", "C_x", "A_x"})
	k3 := dedupKey([]string{"C_x", "A_x", "B_x"})
	assert.Equal(t, k1, k2)
	assert.Equal(t, k1, k3)

	// a different traversal direction is a different economic cycle
	k4 := dedupKey([]string{"A_x", "C_x", "B_x"})
	assert.NotEqual(t, k1, k4)
}

func TestUniqueVenues(t *testing.T) {
	assert.Equal(t, []string{"binance"}, uniqueVenues([]string{"BTC_binance", "ETH_binance"}))
	assert.Equal(t, []string{"binance", "okx"}, uniqueVenues([]string{"BTC_binance", "USD_okx", "BTC_binance"}))
}
