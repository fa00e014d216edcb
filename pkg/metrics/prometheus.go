package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pnode_tracker",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pnode_tracker",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Refresh cycle metrics
	RefreshCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pnode_tracker",
			Subsystem: "refresh",
			Name:      "cycles_total",
			Help:      "Total number of refresh cycles",
		},
		[]string{"status"},
	)

	RefreshCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pnode_tracker",
			Subsystem: "refresh",
			Name:      "cycle_duration_seconds",
			Help:      "Refresh cycle duration in seconds",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	FleetNodesCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "pnode_tracker",
			Subsystem: "fleet",
			Name:      "nodes_count",
			Help:      "Number of fleet nodes by status",
		},
		[]string{"status"},
	)

	// Seed fetch metrics
	SeedFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pnode_tracker",
			Subsystem: "directory",
			Name:      "seed_fetch_total",
			Help:      "Total number of per-seed fetch attempts",
		},
		[]string{"status"},
	)

	// Latency probe metrics
	ProbeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pnode_tracker",
			Subsystem: "probe",
			Name:      "attempts_total",
			Help:      "Total number of TCP latency probes",
		},
		[]string{"status"},
	)

	ProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pnode_tracker",
			Subsystem: "probe",
			Name:      "duration_seconds",
			Help:      "TCP latency probe duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2},
		},
	)

	// Geo lookup metrics
	GeoLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pnode_tracker",
			Subsystem: "geo",
			Name:      "lookups_total",
			Help:      "Total number of geo lookups by outcome",
		},
		[]string{"outcome"},
	)

	GeoCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pnode_tracker",
			Subsystem: "geo",
			Name:      "cache_size",
			Help:      "Number of entries in the geo cache",
		},
	)

	// Database metrics
	DatabaseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pnode_tracker",
			Subsystem: "database",
			Name:      "errors_total",
			Help:      "Total number of database errors",
		},
		[]string{"operation"},
	)
)

// Metrics provides convenience methods for recording metrics
type Metrics struct{}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	HttpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	HttpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRefreshCycle records a completed refresh cycle
func (m *Metrics) RecordRefreshCycle(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	RefreshCyclesTotal.WithLabelValues(status).Inc()
	RefreshCycleDuration.Observe(duration.Seconds())
}

// RecordSeedFetch records a per-seed fetch attempt
func (m *Metrics) RecordSeedFetch(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	SeedFetchTotal.WithLabelValues(status).Inc()
}

// RecordProbe records a TCP latency probe
func (m *Metrics) RecordProbe(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	ProbeTotal.WithLabelValues(status).Inc()
	ProbeDuration.Observe(duration.Seconds())
}

// RecordGeoLookup records a geo lookup outcome: hit, miss or error
func (m *Metrics) RecordGeoLookup(outcome string) {
	GeoLookupsTotal.WithLabelValues(outcome).Inc()
}

// UpdateFleetCounts updates the fleet node gauges
func (m *Metrics) UpdateFleetCounts(total, online int) {
	FleetNodesCount.WithLabelValues("total").Set(float64(total))
	FleetNodesCount.WithLabelValues("online").Set(float64(online))
}

// RecordDatabaseError records a database error
func (m *Metrics) RecordDatabaseError(operation string) {
	DatabaseErrorsTotal.WithLabelValues(operation).Inc()
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
