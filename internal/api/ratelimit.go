package api

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"uavpath/internal/metrics"
)

// maxClients bounds the limiter table; it is reset when full.
const maxClients = 10000

// ClientLimiter keeps one token bucket per client IP.
type ClientLimiter struct {
	mu    sync.Mutex
	rps   rate.Limit
	burst int
	m     map[string]*rate.Limiter
}

// NewClientLimiter returns a limiter allowing rps requests per second with
// the given burst per client. rps <= 0 disables limiting.
func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ClientLimiter{rps: rate.Limit(rps), burst: burst, m: map[string]*rate.Limiter{}}
}

// Allow reports whether the client may make a request now.
func (c *ClientLimiter) Allow(client string) bool {
	if c == nil || c.rps <= 0 {
		return true
	}
	c.mu.Lock()
	l, ok := c.m[client]
	if !ok {
		if len(c.m) >= maxClients {
			c.m = map[string]*rate.Limiter{}
		}
		l = rate.NewLimiter(c.rps, c.burst)
		c.m[client] = l
	}
	c.mu.Unlock()
	return l.Allow()
}

// Middleware rejects over-limit requests with 429. Health probes are exempt.
func (c *ClientLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" {
			next.ServeHTTP(w, r)
			return
		}
		if !c.Allow(clientIP(r)) {
			metrics.RateLimited.Inc()
			w.Header().Set("Retry-After", "1")
			writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
