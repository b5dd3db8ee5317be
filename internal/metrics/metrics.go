// Package metrics owns the Prometheus registry and every metric the
// dispatch service exports. Register once at startup; Handler serves them.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dispatch"

var (
	// Registry is the dedicated registry for the API.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, route pattern and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// TravelEstimates counts travel-time estimates by the strategy that
	// served them (e.g. "google_distance_matrix", "haversine").
	TravelEstimates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "travel_estimates_total",
			Help:      "Travel-time estimates, by serving strategy.",
		},
		[]string{"source"},
	)

	// TravelCache counts cache lookups.
	// Label result: "hit", "miss" or "error".
	TravelCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "travel_cache_total",
			Help:      "Travel-time cache lookups, by result.",
		},
		[]string{"result"},
	)

	// Suggestions counts optimization suggestions by the strategy that
	// produced the returned value ("reasoning", "reasoning_raw", "deterministic").
	Suggestions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_total",
			Help:      "Optimization suggestions returned, by strategy.",
		},
		[]string{"strategy"},
	)

	// ExternalCallDuration measures outbound calls.
	// Labels:
	//   - service: "distance_matrix" or "reasoning"
	//   - outcome: "ok", "error", "timeout" or "rate_limited"
	ExternalCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_call_duration_seconds",
			Help:      "Duration of outbound calls to routing and reasoning services.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
		},
		[]string{"service", "outcome"},
	)

	// SnapshotSize observes how many records a fleet snapshot carried.
	// Label kind: "technicians", "appointments" or "unassigned_jobs".
	SnapshotSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      "Records per fleet snapshot, by kind.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
		[]string{"kind"},
	)
)

var regOnce sync.Once

// RegisterDefault registers every collector on Registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(TravelEstimates)
		Registry.MustRegister(TravelCache)
		Registry.MustRegister(Suggestions)
		Registry.MustRegister(ExternalCallDuration)
		Registry.MustRegister(SnapshotSize)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
