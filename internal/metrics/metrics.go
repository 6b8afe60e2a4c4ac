// Package metrics предоставляет Prometheus-метрики движка обнаружения
// циклов: латентность обработки тиков и сканирования графа, счётчики
// найденных возможностей, состояние графа и переполнения очередей.
// Один пакет package-level promauto коллекторов плюс Record*/Update*
// хелперы поверх них.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============ Латентность ============

// TickProcessingLatency - время применения одного тика к графу воркером
// (без ожидания в очереди).
var TickProcessingLatency = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "arbcycle",
		Subsystem: "ingest",
		Name:      "tick_processing_latency_ms",
		Help:      "Time to apply one tick's edges to the graph in milliseconds, excluding queue wait",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	},
)

// DetectionLatency - длительность одного скана Беллмана-Форда.
var DetectionLatency = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "arbcycle",
		Subsystem: "detector",
		Name:      "detection_latency_ms",
		Help:      "Duration of a single Bellman-Ford cycle detection pass in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250},
	},
)

// ============ Счётчики событий ============

// TicksProcessed - общее число принятых тиков.
var TicksProcessed = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "arbcycle",
		Subsystem: "ingest",
		Name:      "ticks_processed_total",
		Help:      "Total number of ticks accepted by the processor",
	},
)

// TicksRejected - тики, отброшенные валидацией, по причине.
var TicksRejected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbcycle",
		Subsystem: "ingest",
		Name:      "ticks_rejected_total",
		Help:      "Total number of ticks rejected, labeled by reason",
	},
	[]string{"reason"}, // invalid_symbol, non_positive_price, queue_full, graph_capacity
)

// OpportunitiesFound - найденные и прошедшие порог циклы.
var OpportunitiesFound = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbcycle",
		Subsystem: "detector",
		Name:      "opportunities_found_total",
		Help:      "Total number of arbitrage opportunities emitted, labeled by kind",
	},
	[]string{"kind"}, // triangle, cross_exchange
)

// CyclesRejected - кандидаты-циклы, отброшенные после фильтрации.
var CyclesRejected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbcycle",
		Subsystem: "detector",
		Name:      "cycles_rejected_total",
		Help:      "Cycle candidates discarded during filtering",
	},
	[]string{"reason"}, // below_threshold, duplicate, mode_disabled
)

// BufferOverflows - переполнения входных/выходных буферов.
var BufferOverflows = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbcycle",
		Subsystem: "engine",
		Name:      "buffer_overflows_total",
		Help:      "Number of buffer overflows, labeled by buffer",
	},
	[]string{"buffer"}, // ingress_queue (the only buffer recorded)
)

// SubscriberPanics - восстановленные паники в обработчиках подписчиков.
var SubscriberPanics = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "arbcycle",
		Subsystem: "engine",
		Name:      "subscriber_panics_total",
		Help:      "Number of panics recovered from opportunity subscriber callbacks",
	},
)

// ============ Состояние ============

// ActiveCurrencies - текущая размерность графа (число узлов).
var ActiveCurrencies = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "arbcycle",
		Subsystem: "graph",
		Name:      "active_currencies",
		Help:      "Current number of currency-venue nodes in the price graph",
	},
)

// EngineRunning - 1, если движок запущен.
var EngineRunning = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "arbcycle",
		Subsystem: "engine",
		Name:      "running",
		Help:      "1 if the engine is running, 0 otherwise",
	},
)

// IngressQueueDepth - текущая заполненность входной очереди.
var IngressQueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "arbcycle",
		Subsystem: "ingest",
		Name:      "ingress_queue_depth",
		Help:      "Current number of ticks buffered in the ingress queue",
	},
)

// ============ Вспомогательные функции ============

// RecordTickProcessed записывает факт принятия тика и его латентность.
func RecordTickProcessed(latencyMs float64) {
	TicksProcessed.Inc()
	TickProcessingLatency.Observe(latencyMs)
}

// RecordTickRejected записывает отклонённый тик с причиной.
func RecordTickRejected(reason string) {
	TicksRejected.WithLabelValues(reason).Inc()
}

// RecordDetectionPass записывает длительность одного скана детектора.
func RecordDetectionPass(latencyMs float64) {
	DetectionLatency.Observe(latencyMs)
}

// RecordOpportunity записывает найденную возможность по её типу.
func RecordOpportunity(kind string) {
	OpportunitiesFound.WithLabelValues(kind).Inc()
}

// RecordCycleRejected записывает отброшенного кандидата-цикл.
func RecordCycleRejected(reason string) {
	CyclesRejected.WithLabelValues(reason).Inc()
}

// RecordBufferOverflow записывает переполнение именованного буфера.
func RecordBufferOverflow(buffer string) {
	BufferOverflows.WithLabelValues(buffer).Inc()
}

// RecordSubscriberPanic записывает восстановленную панику подписчика.
func RecordSubscriberPanic() {
	SubscriberPanics.Inc()
}

// UpdateActiveCurrencies обновляет размер графа.
func UpdateActiveCurrencies(n int) {
	ActiveCurrencies.Set(float64(n))
}

// SetEngineRunning обновляет состояние движка.
func SetEngineRunning(running bool) {
	if running {
		EngineRunning.Set(1)
	} else {
		EngineRunning.Set(0)
	}
}

// UpdateIngressQueueDepth обновляет глубину входной очереди.
func UpdateIngressQueueDepth(depth int) {
	IngressQueueDepth.Set(float64(depth))
}
