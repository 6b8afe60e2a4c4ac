// Package detector implements the cycle detector: a periodic
// Bellman-Ford scan of the price graph that surfaces negative-weight
// cycles as arbitrage opportunities. Each scan takes a snapshot under a
// short lock and computes lock-free against it, so a long scan never
// holds the graph's lock.
package detector

import (
	"math"
	"strings"
	"time"

	"arbitrage-core/internal/graph"
	"arbitrage-core/internal/metrics"
	"arbitrage-core/internal/models"
	"arbitrage-core/pkg/utils"
)

const relaxEpsilon = 1e-12

// Config controls which cycles the detector surfaces.
type Config struct {
	MinProfitThreshold      float64 // percent, must be > 0
	EnableTriangleArbitrage bool    // cycles confined to a single venue
	EnableCrossExchange     bool    // cycles spanning more than one venue
	MaxPositionSize         float64 // upper clamp for Opportunity.MaxVolume
	MaxCyclesPerScan        int     // candidate cap per Scan (0 = default)
}

// Detector periodically scans a graph.Graph for negative-weight cycles.
type Detector struct {
	g   *graph.Graph
	cfg Config
	log *utils.Logger
}

// New creates a Detector over g.
func New(g *graph.Graph, cfg Config, log *utils.Logger) *Detector {
	if cfg.MaxCyclesPerScan <= 0 {
		cfg.MaxCyclesPerScan = 16
	}
	if log == nil {
		log = utils.GetGlobalLogger()
	}
	return &Detector{g: g, cfg: cfg, log: log}
}

// Scan takes a snapshot of the graph and returns every opportunity that
// passes the configured threshold and mode filters. Safe to call from a
// single goroutine on a timer. Each call is independent: a cycle still
// open on consecutive scans is reported again on each one, it is only
// deduplicated against its own rotations within a single scan.
func (d *Detector) Scan() []*models.Opportunity {
	start := time.Now()
	snap := d.g.Snapshot()

	candidates := findNegativeCycles(snap, d.cfg.MaxCyclesPerScan)
	seen := make(map[string]struct{}, len(candidates))

	var out []*models.Opportunity
	for _, c := range candidates {
		opp := d.evaluate(snap, c, seen)
		if opp != nil {
			out = append(out, opp)
		}
	}

	metrics.RecordDetectionPass(float64(time.Since(start).Microseconds()) / 1000.0)
	return out
}

// evaluate converts one candidate cycle (node indices into snap) into an
// Opportunity, or nil if it is filtered out.
func (d *Detector) evaluate(snap graph.Snapshot, cycle []int, seen map[string]struct{}) *models.Opportunity {
	weightSum, minVolume := cycleWeightAndVolume(snap, cycle)
	profitPct := utils.CycleProfitPercentage(weightSum)

	if profitPct < d.cfg.MinProfitThreshold {
		metrics.RecordCycleRejected("below_threshold")
		return nil
	}

	names := make([]string, len(cycle))
	for i, idx := range cycle {
		names[i] = snap.Names[idx]
	}

	venues := uniqueVenues(names)
	isTriangle := len(venues) <= 1
	kind := "cross_exchange"
	if isTriangle {
		kind = "triangle"
	}
	if isTriangle && !d.cfg.EnableTriangleArbitrage {
		metrics.RecordCycleRejected("mode_disabled")
		return nil
	}
	if !isTriangle && !d.cfg.EnableCrossExchange {
		metrics.RecordCycleRejected("mode_disabled")
		return nil
	}

	key := dedupKey(names)
	if _, dup := seen[key]; dup {
		metrics.RecordCycleRejected("duplicate")
		return nil
	}
	seen[key] = struct{}{}

	maxVolume := utils.Clamp(minVolume, 0, d.cfg.MaxPositionSize)

	opp := &models.Opportunity{
		ID:               models.NewOpportunityID(),
		Path:             names,
		ProfitPercentage: profitPct,
		Confidence:       utils.CycleConfidence(profitPct, len(cycle)),
		Venues:           venues,
		MaxVolume:        maxVolume,
		DetectedAt:       time.Now(),
	}

	metrics.RecordOpportunity(kind)
	return opp
}

// cycleWeightAndVolume sums edge weights around the cycle and returns the
// minimum observed volume across its edges (0 if no edge recorded one).
func cycleWeightAndVolume(snap graph.Snapshot, cycle []int) (weightSum, minVolume float64) {
	minVolume = math.Inf(1)
	haveVolume := false
	for i := range cycle {
		u := cycle[i]
		v := cycle[(i+1)%len(cycle)]
		weightSum += snap.At(u, v)
		if vol := snap.VolumeAt(u, v); vol > 0 {
			haveVolume = true
			if vol < minVolume {
				minVolume = vol
			}
		}
	}
	if !haveVolume {
		minVolume = 0
	}
	return weightSum, minVolume
}

// uniqueVenues extracts the venue suffix ("CURRENCY_venue") from each
// node name, deduplicated in order of first appearance.
func uniqueVenues(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	var venues []string
	for _, n := range names {
		idx := strings.LastIndexByte(n, '_')
		if idx < 0 {
			continue
		}
		venue := n[idx+1:]
		if _, ok := seen[venue]; !ok {
			seen[venue] = struct{}{}
			venues = append(venues, venue)
		}
	}
	return venues
}

// dedupKey builds a rotation-invariant key for a cycle's node names: the
// same cycle walked from a different starting point produces the same
// key. Direction is preserved, so the reverse walk produces a different
// key - a price cycle and its inverse are economically distinct.
func dedupKey(names []string) string {
	if len(names) == 0 {
		return ""
	}
	minIdx := 0
	for i, n := range names {
		if n < names[minIdx] {
			minIdx = i
		}
	}
	rotated := make([]string, len(names))
	for i := range names {
		rotated[i] = names[(minIdx+i)%len(names)]
	}
	return strings.Join(rotated, ">")
}

// findNegativeCycles returns up to maxCycles disjoint negative-weight
// cycles found in snap, as slices of node indices in traversal order.
// After each cycle is found, its edges are masked to +Inf so the next
// pass can surface a different cycle instead of rediscovering the same
// one (the graph itself is untouched - this masks a private copy).
func findNegativeCycles(snap graph.Snapshot, maxCycles int) [][]int {
	n := snap.N
	if n < 3 {
		return nil // no cycle can span fewer than 3 nodes
	}

	weights := make([]float64, len(snap.Weight))
	copy(weights, snap.Weight)

	var cycles [][]int
	for len(cycles) < maxCycles {
		cycle := bellmanFordNegativeCycle(n, weights)
		if cycle == nil {
			break
		}
		cycles = append(cycles, cycle)
		for i := range cycle {
			a := cycle[i]
			b := cycle[(i+1)%len(cycle)]
			weights[a*n+b] = math.Inf(1)
		}
	}
	return cycles
}

// bellmanFordNegativeCycle runs Bellman-Ford seeded with dist[i]=0 for
// every node (equivalent to an implicit virtual source connected to all
// nodes with zero-weight edges), so any negative cycle reachable from
// anywhere in the graph is found in a single pass. After n-1 relaxation
// rounds, one further round that still relaxes an edge indicates a
// negative cycle; the offending node is walked back n times to land
// inside the cycle before extraction, and the extracted loop is verified
// to actually close (parent[cycle[0]] == cycle[last]) before it is
// trusted - a plain parent-array walk can otherwise return a dangling
// path that never returns to its start.
func bellmanFordNegativeCycle(n int, weights []float64) []int {
	dist := make([]float64, n)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = -1
	}

	x := -1
	for iter := 0; iter < n; iter++ {
		x = -1
		for u := 0; u < n; u++ {
			for v := 0; v < n; v++ {
				if u == v {
					continue
				}
				w := weights[u*n+v]
				if math.IsInf(w, 1) {
					continue
				}
				if dist[u]+w < dist[v]-relaxEpsilon {
					dist[v] = dist[u] + w
					parent[v] = u
					x = v
				}
			}
		}
		if x == -1 {
			return nil
		}
	}

	for i := 0; i < n; i++ {
		x = parent[x]
		if x == -1 {
			return nil
		}
	}

	cycle := make([]int, 0, n)
	visited := make(map[int]bool, n)
	start := x
	for {
		if visited[x] {
			break
		}
		visited[x] = true
		cycle = append(cycle, x)
		x = parent[x]
		if x == -1 {
			return nil
		}
	}

	// reverse so the cycle reads in edge-traversal order (parent points
	// backwards from v to u)
	for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
		cycle[i], cycle[j] = cycle[j], cycle[i]
	}

	if len(cycle) < 3 {
		return nil // a round trip through fewer than 3 nodes is not an arbitrage cycle
	}
	if parent[cycle[0]] != cycle[len(cycle)-1] {
		return nil
	}

	_ = start
	return cycle
}
