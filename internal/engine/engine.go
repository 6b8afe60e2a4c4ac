package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"arbitrage-core/internal/config"
	"arbitrage-core/internal/detector"
	"arbitrage-core/internal/graph"
	"arbitrage-core/internal/ingest"
	"arbitrage-core/internal/metrics"
	"arbitrage-core/internal/models"
	"arbitrage-core/pkg/utils"
)

// State is the engine's lifecycle state. A plain string-state +
// transition-table machine generalized to an atomic.Int32 + CAS loop,
// since there is exactly one engine instance shared across every
// caller goroutine.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var validTransitions = map[State][]State{
	StateIdle:     {StateRunning},
	StateRunning:  {StateStopping},
	StateStopping: {StateStopped},
	StateStopped:  {StateRunning},
}

func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

var (
	// ErrEngineNotRunning is returned by UpdatePrice when the engine is
	// not in StateRunning.
	ErrEngineNotRunning = errors.New("engine: not running")

	// ErrInvalidTransition is returned by Start/Stop when called from a
	// state that cannot reach the requested one (e.g. Stop while Idle).
	ErrInvalidTransition = errors.New("engine: invalid lifecycle transition")
)

// Engine owns the price graph, the tick processor, and the cycle
// detector, runs detection on a fixed period, and fans newly found
// opportunities out to subscribers.
type Engine struct {
	cfg config.EngineConfig
	log *utils.Logger

	g         *graph.Graph
	processor *ingest.Processor
	detector  *detector.Detector
	ring      *ring
	dispatch  *dispatcher

	state  atomic.Int32
	cancel context.CancelFunc
	wg     sync.WaitGroup

	opportunitiesFound  atomic.Uint64
	detectionLatencyUs  atomic.Uint64 // float64 bits, duration of the last scan
}

// New builds an Engine from cfg. The graph, processor and detector are
// constructed here so the caller never has to wire internal packages
// together by hand.
func New(cfg config.EngineConfig, log *utils.Logger) *Engine {
	if log == nil {
		log = utils.GetGlobalLogger()
	}

	g := graph.New(cfg.MaxCurrencies)
	proc := ingest.New(g, cfg.IngressQueueSize, log)
	det := detector.New(g, detector.Config{
		MinProfitThreshold:      cfg.MinProfitThreshold,
		EnableTriangleArbitrage: cfg.EnableTriangleArbitrage,
		EnableCrossExchange:     cfg.EnableCrossExchange,
		MaxPositionSize:         cfg.MaxPositionSize,
	}, log)

	e := &Engine{
		cfg:       cfg,
		log:       log,
		g:         g,
		processor: proc,
		detector:  det,
		ring:      newRing(cfg.OpportunityRingCapacity),
		dispatch:  newDispatcher(log),
	}
	e.state.Store(int32(StateIdle))
	return e
}

// IsRunning reports whether the engine is currently accepting ticks and
// running detection passes.
func (e *Engine) IsRunning() bool {
	return State(e.state.Load()) == StateRunning
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) transition(to State) bool {
	for {
		cur := State(e.state.Load())
		if !canTransition(cur, to) {
			return false
		}
		if e.state.CompareAndSwap(int32(cur), int32(to)) {
			return true
		}
	}
}

// Start transitions the engine to running, launches the ingest workers,
// the periodic detection loop, and the metrics summary loop. Idempotent:
// calling Start while already Running is a no-op.
func (e *Engine) Start(ctx context.Context, ingestWorkers int) error {
	if e.IsRunning() {
		return nil
	}
	if !e.transition(StateRunning) {
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidTransition, e.State())
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.processor.Start(runCtx, ingestWorkers)

	e.wg.Add(2)
	go e.detectLoop(runCtx)
	go e.metricsLoop(runCtx)

	metrics.SetEngineRunning(true)
	e.log.Info("engine started", utils.Int("ingest_workers", ingestWorkers))
	return nil
}

// Stop transitions the engine to stopping, cancels background work and
// blocks until everything has drained, including any opportunity
// dispatch still in flight.
func (e *Engine) Stop() error {
	if !e.transition(StateStopping) {
		return fmt.Errorf("%w: cannot stop from %s", ErrInvalidTransition, e.State())
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.processor.Stop()
	e.wg.Wait()
	e.dispatch.wait()

	metrics.SetEngineRunning(false)
	e.transition(StateStopped)
	e.log.Info("engine stopped")
	return nil
}

// detectLoop runs Scan on a fixed period until ctx is cancelled, pushing
// every surfaced opportunity into the ring and out to subscribers.
func (e *Engine) detectLoop(ctx context.Context) {
	defer e.wg.Done()

	period := e.cfg.DetectionPeriod
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.runScan()
		}
	}
}

// metricsLoop logs a structured summary of the engine's operating
// counters on a fixed 10-second cadence, independent of the detection
// period, until ctx is cancelled.
func (e *Engine) metricsLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := e.GetPerformanceStats()
			e.log.Info("metrics summary",
				utils.Int64("messages_processed", int64(stats.MessagesProcessed)),
				utils.Int64("opportunities_found", int64(stats.OpportunitiesFound)),
				utils.Float64("avg_latency_us", stats.AvgLatencyUs),
				utils.Float64("detection_latency_us", stats.DetectionLatencyUs),
				utils.Int("goroutines", runtime.NumGoroutine()),
			)
		}
	}
}

func (e *Engine) runScan() {
	metrics.UpdateIngressQueueDepth(e.processor.QueueDepth())

	start := time.Now()
	opps := e.detector.Scan()
	e.detectionLatencyUs.Store(math.Float64bits(float64(time.Since(start).Microseconds())))

	for _, opp := range opps {
		e.opportunitiesFound.Add(1)
		e.ring.push(opp)
		e.dispatch.dispatch(opp)
	}
}

// UpdatePrice feeds one bid/ask quote into the graph. Thin wrapper over
// the processor's Submit so callers never need to import internal/ingest
// directly. Fails with ErrEngineNotRunning outside StateRunning, before
// and after the engine's lifetime.
func (e *Engine) UpdatePrice(venue, symbol string, bid, ask, volume float64, ts time.Time) error {
	if !e.IsRunning() {
		return ErrEngineNotRunning
	}
	return e.processor.Submit(venue, symbol, bid, ask, volume, ts)
}

// RegisterCallback subscribes cb to every opportunity found by future
// detection passes, returning an unsubscribe function.
func (e *Engine) RegisterCallback(cb Callback) (unsubscribe func()) {
	return e.dispatch.register(cb)
}

// GetRecentOpportunities returns up to limit most-recently found
// opportunities in chronological order (oldest of the window first).
// limit <= 0 returns everything the ring currently holds.
func (e *Engine) GetRecentOpportunities(limit int) []*models.Opportunity {
	return e.ring.recent(limit)
}

// GetPerformanceStats returns a point-in-time snapshot of the engine's
// operating metrics. There is no historical aggregation: the engine
// keeps no state across restarts.
func (e *Engine) GetPerformanceStats() models.Stats {
	return models.Stats{
		MessagesProcessed:  e.processor.Processed(),
		OpportunitiesFound: e.opportunitiesFound.Load(),
		AvgLatencyUs:       e.processor.AvgLatencyUs(),
		DetectionLatencyUs: math.Float64frombits(e.detectionLatencyUs.Load()),
		ActiveCurrencies:   e.g.Len(),
		BufferOverflows:    e.processor.Overflows(),
		Running:            e.IsRunning(),
	}
}
