package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// OptimizeRuns counts optimizer calls by outcome (ok, invalid, error)
	OptimizeRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "uav_optimize_runs_total", Help: "Optimizer runs by outcome."},
		[]string{"outcome"},
	)
	// OptimizeDuration tracks optimizer wall time in seconds
	OptimizeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "uav_optimize_duration_seconds", Help: "Optimizer wall time in seconds.", Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10)},
	)
	// CourseWaypoints tracks the waypoint count N of optimized courses
	CourseWaypoints = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "uav_course_waypoints", Help: "Waypoints per optimized course.", Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000}},
	)
	// SkippedRatio tracks the share of waypoints skipped by the optimal path
	SkippedRatio = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "uav_skipped_ratio", Help: "Fraction of waypoints skipped.", Buckets: prometheus.LinearBuckets(0, 0.1, 11)},
	)
	// RateLimited counts requests rejected by the limiter
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "http_rate_limited_total", Help: "Requests rejected with 429."},
	)
)

// RegisterDefault registers collectors to the dedicated registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(OptimizeRuns)
		Registry.MustRegister(OptimizeDuration)
		Registry.MustRegister(CourseWaypoints)
		Registry.MustRegister(SkippedRatio)
		Registry.MustRegister(RateLimited)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
