package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "moltpool_workers_total",
			Help: "Total number of worker slots by lifecycle state",
		},
		[]string{"state"},
	)

	WorkerRestartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moltpool_worker_restarts_total",
			Help: "Total number of worker restarts by worker id",
		},
		[]string{"worker_id"},
	)

	WorkerCrashesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moltpool_worker_crashes_total",
			Help: "Total number of worker slots latched Crashed",
		},
		[]string{"worker_id"},
	)

	WorkerMemoryBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "moltpool_worker_memory_bytes",
			Help: "Last reported resident memory per worker",
		},
		[]string{"worker_id"},
	)

	WorkerActiveRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "moltpool_worker_active_requests",
			Help: "In-flight request count per worker",
		},
		[]string{"worker_id"},
	)

	// Routing metrics
	RoutingDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moltpool_routing_decisions_total",
			Help: "Total number of routing decisions by outcome",
		},
		[]string{"outcome"}, // cached, new_assignment, force_assigned
	)

	RoutingTableSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "moltpool_routing_table_size",
			Help: "Number of cached user-to-worker assignments",
		},
	)

	// Request metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moltpool_requests_total",
			Help: "Total number of requests dispatched by outcome",
		},
		[]string{"outcome"}, // success, failure, timeout
	)

	RequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moltpool_request_duration_seconds",
			Help:    "Request round-trip duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	QueuedRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "moltpool_queued_requests",
			Help: "Total pending request correlations summed across workers",
		},
	)

	// Startup/shutdown metrics
	WorkerStartupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moltpool_worker_startup_duration_seconds",
			Help:    "Time taken for a worker slot to reach Ready",
			Buckets: prometheus.DefBuckets,
		},
	)

	PoolStopDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moltpool_pool_stop_duration_seconds",
			Help:    "Time taken to drain and stop every worker slot",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
		},
	)
)

func init() {
	prometheus.MustRegister(WorkersTotal)
	prometheus.MustRegister(WorkerRestartsTotal)
	prometheus.MustRegister(WorkerCrashesTotal)
	prometheus.MustRegister(WorkerMemoryBytes)
	prometheus.MustRegister(WorkerActiveRequests)
	prometheus.MustRegister(RoutingDecisionsTotal)
	prometheus.MustRegister(RoutingTableSize)
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(QueuedRequests)
	prometheus.MustRegister(WorkerStartupDuration)
	prometheus.MustRegister(PoolStopDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
