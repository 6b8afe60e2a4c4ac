// Package ingest implements the tick processor: the hot path that turns
// raw bid/ask quotes into log-weighted edges in the price graph. Submit
// does the minimum work on the caller's goroutine (validate, stamp a
// sequence, enqueue) and returns; a pool of workers drains the queue and
// writes the derived edges.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"arbitrage-core/internal/graph"
	"arbitrage-core/internal/metrics"
	"arbitrage-core/internal/models"
	"arbitrage-core/pkg/utils"
)

var (
	// ErrQueueFull is returned by Submit when the ingress queue has no
	// spare capacity. The caller (exchange connector) decides whether to
	// retry, drop, or apply its own backpressure.
	ErrQueueFull = errors.New("ingest: queue is full")

	// ErrMalformedSymbol is returned when symbol does not match the
	// BASE/QUOTE format.
	ErrMalformedSymbol = errors.New("ingest: malformed symbol")

	// ErrNonPositivePrice is returned when neither bid nor ask is usable.
	ErrNonPositivePrice = errors.New("ingest: tick has no usable bid or ask")

	// ErrGraphCapacity describes a graph with no room left for a new
	// currency-venue node. Submit does not return it: capacity is only
	// discovered on the drain worker, which drops the tick and counts it
	// under the "graph_capacity" rejection reason.
	ErrGraphCapacity = errors.New("ingest: graph is at max_currencies capacity")
)

// Processor validates incoming ticks, assigns them a monotonic sequence
// number, and applies their derived edges to the price graph off the
// caller's goroutine.
type Processor struct {
	graph  *graph.Graph
	queue  chan *models.Tick
	pool   sync.Pool
	seq    atomic.Uint64
	log    *utils.Logger
	wg     sync.WaitGroup

	processed   atomic.Uint64
	overflows   atomic.Uint64
	avgLatency  atomic.Uint64 // float64 bits, EWMA of apply() latency in microseconds
}

// New creates a Processor writing into g, with an ingress queue of
// capacity queueSize.
func New(g *graph.Graph, queueSize int, log *utils.Logger) *Processor {
	if queueSize <= 0 {
		queueSize = 65536
	}
	if log == nil {
		log = utils.GetGlobalLogger()
	}
	p := &Processor{
		graph: g,
		queue: make(chan *models.Tick, queueSize),
		log:   log,
	}
	p.pool.New = func() interface{} { return &models.Tick{} }
	return p
}

// Start launches workers goroutines draining the ingress queue. It
// returns immediately; call Stop (or cancel ctx) to shut down.
func (p *Processor) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
}

// Stop waits for all worker goroutines to drain and exit. The caller
// must have already cancelled the context passed to Start.
func (p *Processor) Stop() {
	p.wg.Wait()
}

// QueueDepth returns the number of ticks currently buffered, for the
// engine's performance stats and metrics.
func (p *Processor) QueueDepth() int {
	return len(p.queue)
}

// Processed returns the total number of Submit calls received, whether
// or not the tick was accepted onto the graph.
func (p *Processor) Processed() uint64 {
	return p.processed.Load()
}

// Overflows returns the total number of Submit calls rejected because the
// ingress queue was full.
func (p *Processor) Overflows() uint64 {
	return p.overflows.Load()
}

// AvgLatencyUs returns the EWMA of apply() latency in microseconds.
func (p *Processor) AvgLatencyUs() float64 {
	return math.Float64frombits(p.avgLatency.Load())
}

// recordLatency folds one observation into the EWMA under a lock-free
// compare-and-swap loop, so the hot path never blocks on a mutex for a
// single float64 update.
func (p *Processor) recordLatency(us float64) {
	const alpha = 0.1
	for {
		old := p.avgLatency.Load()
		oldVal := math.Float64frombits(old)
		newVal := us
		if oldVal != 0 {
			newVal = oldVal*(1-alpha) + us*alpha
		}
		if p.avgLatency.CompareAndSwap(old, math.Float64bits(newVal)) {
			return
		}
	}
}

// Submit validates and enqueues a tick for asynchronous processing.
// Non-blocking: returns ErrQueueFull immediately if the queue is at
// capacity rather than stalling the caller's hot path. Every call counts
// toward messages_processed, including ones rejected for a malformed
// symbol or non-positive price - the counter tracks calls received, not
// just edges written.
func (p *Processor) Submit(venue, symbol string, bid, ask, volume float64, ts time.Time) error {
	p.processed.Add(1)

	if err := utils.ValidateSymbol(symbol); err != nil {
		metrics.RecordTickRejected("invalid_symbol")
		return fmt.Errorf("%w: %v", ErrMalformedSymbol, err)
	}
	if bid <= 0 && ask <= 0 {
		metrics.RecordTickRejected("non_positive_price")
		return ErrNonPositivePrice
	}

	t := p.pool.Get().(*models.Tick)
	t.Venue = venue
	t.Symbol = symbol
	t.Bid = bid
	t.Ask = ask
	t.Volume = volume
	t.Timestamp = ts
	t.Sequence = p.seq.Add(1)

	select {
	case p.queue <- t:
		return nil
	default:
		t.Reset()
		p.pool.Put(t)
		p.overflows.Add(1)
		metrics.RecordTickRejected("queue_full")
		metrics.RecordBufferOverflow("ingress_queue")
		return ErrQueueFull
	}
}

func (p *Processor) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-p.queue:
			p.apply(t)
			t.Reset()
			p.pool.Put(t)
		}
	}
}

// apply turns one tick into up to two graph edges: base->quote keyed by
// the bid rate (sell 1 base, receive bid quote) and quote->base keyed by
// the inverse ask rate (spend ask quote to buy 1 base). Either direction
// may be skipped independently - a non-positive price on one side never
// blocks the other.
func (p *Processor) apply(t *models.Tick) {
	start := time.Now()

	base, quote := t.BaseQuote()
	if base == "" || quote == "" {
		metrics.RecordTickRejected("invalid_symbol")
		return
	}

	u, ok := p.graph.UpsertIndex(base + "_" + t.Venue)
	if !ok {
		metrics.RecordTickRejected("graph_capacity")
		return
	}
	v, ok := p.graph.UpsertIndex(quote + "_" + t.Venue)
	if !ok {
		metrics.RecordTickRejected("graph_capacity")
		return
	}

	var haveBid, haveAsk bool
	var bidWeight, askWeight float64

	if t.Bid > 0 {
		if w, ok := utils.EdgeWeight(t.Bid); ok {
			bidWeight, haveBid = w, true
		}
	}
	if t.Ask > 0 {
		if w, ok := utils.EdgeWeight(1 / t.Ask); ok {
			askWeight, haveAsk = w, true
		}
	}

	if !haveBid && !haveAsk {
		metrics.RecordTickRejected("non_positive_price")
		return
	}

	p.graph.WriteTickEdges(u, v, t.Sequence, haveBid, bidWeight, haveAsk, askWeight)
	if t.Volume > 0 {
		if haveBid {
			p.graph.WriteVolume(u, v, t.Volume)
		}
		if haveAsk {
			p.graph.WriteVolume(v, u, t.Volume)
		}
	}
	us := float64(time.Since(start).Microseconds())
	p.recordLatency(us)
	metrics.UpdateActiveCurrencies(p.graph.Len())
	metrics.RecordTickProcessed(us / 1000.0)
}
