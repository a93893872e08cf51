package api

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"uavpath/internal/metrics"
)

// MetricsHandler serves the dedicated registry.
func MetricsHandler() http.Handler {
	metrics.RegisterDefault()
	return promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		dur := time.Since(start)
		log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, dur)
	})
}

// instrument records request counts and durations by route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		path := metricPath(r.URL.Path)
		code := strconv.Itoa(rec.code)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, code).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, code).Observe(time.Since(start).Seconds())
	})
}

// otherPath labels every request that matches no registered route.
const otherPath = "other"

var metricRoutes = map[string]bool{
	"/v1/optimize":         true,
	"/v1/optimizer/config": true,
	"/v1/runs":             true,
	"/v1/runs/stream":      true,
	"/healthz":             true,
	"/readyz":              true,
	"/metrics":             true,
	"/debug/build":         true,
}

// metricPath maps a request path to a fixed route label so that label
// cardinality stays bounded.
func metricPath(p string) string {
	if metricRoutes[p] {
		return p
	}
	rest := strings.TrimPrefix(p, "/v1/runs/")
	if rest == p || rest == "" {
		return otherPath
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1:
		return "/v1/runs/{id}"
	case len(parts) == 2 && parts[1] == "solution":
		return "/v1/runs/{id}/solution"
	}
	return otherPath
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the WebSocket upgrader take over the connection.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("hijack not supported")
	}
	s.code = http.StatusSwitchingProtocols
	return h.Hijack()
}
