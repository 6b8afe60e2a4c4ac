// Package graph holds the live price graph: a dense adjacency matrix of
// log-transformed exchange rates between currency-venue nodes, plus the
// name -> index map that assigns each node a dense integer identity.
//
// A single piece of shared-mutable state with one lock guards the whole
// thing, rather than separate locks for the matrix and the index -
// splitting them risks a reader observing one direction of a tick's
// update but not the other.
package graph

import (
	"math"
	"sync"
)

// Graph is the price graph store. A missing weight means no live quote
// supports that direction and is represented as +Inf.
type Graph struct {
	mu sync.RWMutex

	maxN int // compile/start-time ceiling (max_currencies)
	n    int // live dimension: number of currency nodes seen so far

	index map[string]int // name -> dense index, append-only
	names []string       // index -> name

	weight []float64 // flat maxN*maxN matrix, weight[i*maxN+j] = w(i,j)
	seq    []uint64   // flat maxN*maxN matrix, sequence that last wrote weight[i*maxN+j]
	volume []float64 // flat maxN*maxN matrix, last observed tick volume feeding w(i,j)
}

// New allocates a Graph with capacity for maxN currency nodes.
func New(maxN int) *Graph {
	if maxN <= 0 {
		maxN = 100
	}
	g := &Graph{
		maxN:   maxN,
		index:  make(map[string]int, maxN),
		names:  make([]string, 0, maxN),
		weight: make([]float64, maxN*maxN),
		seq:    make([]uint64, maxN*maxN),
		volume: make([]float64, maxN*maxN),
	}
	for i := range g.weight {
		g.weight[i] = math.Inf(1)
	}
	return g
}

// UpsertIndex returns the dense index for name, assigning a new one on
// first sighting. Idempotent and monotonic: once assigned, an index is
// never reused or reassigned to a different name.
func (g *Graph) UpsertIndex(name string) (int, bool) {
	g.mu.RLock()
	if i, ok := g.index[name]; ok {
		g.mu.RUnlock()
		return i, true
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	// double-check: another writer may have inserted it while we waited for
	// the write lock.
	if i, ok := g.index[name]; ok {
		return i, true
	}

	if g.n >= g.maxN {
		return 0, false
	}

	i := g.n
	g.index[name] = i
	g.names = append(g.names, name)
	g.weight[i*g.maxN+i] = 0 // self-loop fixed at 0
	g.seq[i*g.maxN+i] = 0
	g.n++
	return i, true
}

// WriteEdge sets w(u,v) = weight iff sequence exceeds the edge's current
// writer sequence. Never allocates a new index - callers must upsert u and
// v first. Returns true if the write was applied.
func (g *Graph) WriteEdge(u, v int, weight float64, sequence uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.writeEdgeLocked(u, v, weight, sequence)
}

func (g *Graph) writeEdgeLocked(u, v int, weight float64, sequence uint64) bool {
	if u == v {
		return false // self-loop stays fixed at 0
	}
	idx := u*g.maxN + v
	if sequence <= g.seq[idx] {
		return false // stale write, last-writer-wins by sequence
	}
	g.weight[idx] = weight
	g.seq[idx] = sequence
	return true
}

// WriteTickEdges applies both directed edges produced by a single tick as
// one logical update: the detector must never observe only one of the two.
// Either write may be skipped independently (non-positive bid/ask), but
// both are applied under the same critical section.
func (g *Graph) WriteTickEdges(u, v int, sequence uint64, haveBidWeight bool, bidWeight float64, haveAskWeight bool, askWeight float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if haveBidWeight {
		g.writeEdgeLocked(u, v, bidWeight, sequence)
	}
	if haveAskWeight {
		g.writeEdgeLocked(v, u, askWeight, sequence)
	}
}

// WriteVolume records the most recently observed tick volume feeding
// edge u->v. Unlike WriteEdge this is not sequence-gated: volume is
// informational (Opportunity.MaxVolume), not part of the shortest-path
// weight, so last-write-wins by arrival order is acceptable.
func (g *Graph) WriteVolume(u, v int, vol float64) {
	if u == v || vol <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.volume[u*g.maxN+v] = vol
}

// Snapshot is a point-in-time, internally consistent copy of the live
// n×n submatrix and the index names, for the detector to scan without
// holding the graph's lock.
type Snapshot struct {
	N      int
	Names  []string
	Weight []float64 // flat n*n
	Volume []float64 // flat n*n, last observed tick volume per edge
}

// At returns w(u,v) from the snapshot.
func (s *Snapshot) At(u, v int) float64 {
	return s.Weight[u*s.N+v]
}

// VolumeAt returns the last observed tick volume for edge u->v, or 0 if
// none has been recorded.
func (s *Snapshot) VolumeAt(u, v int) float64 {
	return s.Volume[u*s.N+v]
}

// Snapshot copies the live portion of the graph under a read lock.
func (g *Graph) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := g.n
	names := make([]string, n)
	copy(names, g.names)

	w := make([]float64, n*n)
	vol := make([]float64, n*n)
	for i := 0; i < n; i++ {
		srcOff := i * g.maxN
		dstOff := i * n
		copy(w[dstOff:dstOff+n], g.weight[srcOff:srcOff+n])
		copy(vol[dstOff:dstOff+n], g.volume[srcOff:srcOff+n])
	}

	return Snapshot{N: n, Names: names, Weight: w, Volume: vol}
}

// Len returns the current live dimension (number of currency nodes).
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.n
}

// Weight returns the current w(u,v), mainly for tests and diagnostics.
func (g *Graph) Weight(u, v int) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.weight[u*g.maxN+v]
}

// Index returns the dense index for name if it has been assigned.
func (g *Graph) Index(name string) (int, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	i, ok := g.index[name]
	return i, ok
}
