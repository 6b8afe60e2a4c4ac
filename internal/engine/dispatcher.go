package engine

import (
	"runtime/debug"
	"sync"
	"sync/atomic"

	"arbitrage-core/internal/metrics"
	"arbitrage-core/internal/models"
	"arbitrage-core/pkg/utils"
)

// Callback receives one newly detected opportunity. Dispatched on its
// own goroutine, one per delivery, so a slow or panicking subscriber
// never blocks the detection loop or other subscribers; it must not
// assume it runs on any particular goroutine across calls.
type Callback func(*models.Opportunity)

type subscriber struct {
	id int64
	cb Callback
}

// dispatcher fans a detected opportunity out to every registered
// subscriber. A short RLock snapshots the registry, then every
// callback is invoked with no lock held, so a slow or misbehaving
// subscriber never blocks registration/unregistration. Each delivery
// runs on its own goroutine and is wrapped in a recover(), so neither a
// blocking call nor a panic in one subscriber affects any other.
type dispatcher struct {
	mu     sync.RWMutex
	subs   map[int64]Callback
	nextID atomic.Int64
	log    *utils.Logger
	wg     sync.WaitGroup
}

func newDispatcher(log *utils.Logger) *dispatcher {
	return &dispatcher{subs: make(map[int64]Callback), log: log}
}

// register adds cb to the fan-out set and returns an unsubscribe func.
func (d *dispatcher) register(cb Callback) (unsubscribe func()) {
	id := d.nextID.Add(1)
	d.mu.Lock()
	d.subs[id] = cb
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.subs, id)
		d.mu.Unlock()
	}
}

// dispatch calls every registered callback with opp, each on its own
// goroutine. A panicking callback is recovered, logged and counted; it
// does not stop delivery to the remaining subscribers and does not
// unregister the offender - a transient panic should not silently cut a
// subscriber off forever.
func (d *dispatcher) dispatch(opp *models.Opportunity) {
	d.mu.RLock()
	if len(d.subs) == 0 {
		d.mu.RUnlock()
		return
	}
	snapshot := make([]subscriber, 0, len(d.subs))
	for id, cb := range d.subs {
		snapshot = append(snapshot, subscriber{id: id, cb: cb})
	}
	d.mu.RUnlock()

	for _, s := range snapshot {
		d.wg.Add(1)
		go func(s subscriber) {
			defer d.wg.Done()
			d.invoke(s.cb, opp)
		}(s)
	}
}

// wait blocks until every in-flight dispatch goroutine has returned.
// Called during Engine.Stop so shutdown does not race subscriber calls
// still touching state the caller is about to tear down.
func (d *dispatcher) wait() {
	d.wg.Wait()
}

func (d *dispatcher) invoke(cb Callback, opp *models.Opportunity) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordSubscriberPanic()
			if d.log != nil {
				d.log.Error("recovered panic in opportunity subscriber",
					utils.Any("panic", r),
					utils.String("stack", string(debug.Stack())),
				)
			}
		}
	}()
	cb(opp)
}

// count returns the number of currently registered subscribers.
func (d *dispatcher) count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}
