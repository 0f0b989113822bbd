package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline, pool, and search Prometheus metrics.
var (
	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sumview",
			Name:      "jobs_total",
			Help:      "Jobs finished by terminal status",
		},
		[]string{"status"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sumview",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"stage", "status"},
	)

	PoolLoadedUnits = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sumview",
			Name:      "pool_loaded_units",
			Help:      "Computation units currently cached by the resource pool",
		},
		[]string{"kind", "tier"},
	)

	PoolInFlightLoads = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sumview",
			Name:      "pool_inflight_loads",
			Help:      "Unit load operations currently admitted past the gate",
		},
		[]string{"kind"},
	)

	PoolLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sumview",
			Name:      "pool_loads_total",
			Help:      "Unit load attempts by outcome",
		},
		[]string{"kind", "tier", "result"}, // "ok" / "error"
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sumview",
			Name:      "search_requests_total",
			Help:      "Hybrid search requests by outcome",
		},
		[]string{"result"}, // "ok" / "degraded" / "error"
	)
)

var coreMetricsRegistered bool

// RegisterCoreMetrics registers pipeline, pool, and search metrics.
// Must be called once from main.
func RegisterCoreMetrics() {
	if coreMetricsRegistered {
		return
	}
	prometheus.MustRegister(JobsTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(PoolLoadedUnits)
	prometheus.MustRegister(PoolInFlightLoads)
	prometheus.MustRegister(PoolLoadsTotal)
	prometheus.MustRegister(SearchRequestsTotal)
	coreMetricsRegistered = true
}
