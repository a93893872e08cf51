package api

import (
	"context"
	"log"
	"net/http"

	"uavpath/internal/config"
	"uavpath/internal/store"
)

// RunsTopic is the broker topic completed runs are published on.
const RunsTopic = "runs"

type Server struct {
	Store   store.Store
	Broker  EventBroker
	Limiter *ClientLimiter
	Cfg     config.Config
}

// NewServer creates a Server. If no database URL is configured, uses the
// in-memory store; without a Redis URL, the in-memory broker.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if cfg.Store.DatabaseURL == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.Store.Migrate {
			if err := sp.Migrate(context.Background()); err != nil {
				return nil, err
			}
		}
		s = sp
	}
	// Broker selection
	var broker EventBroker
	if cfg.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			log.Printf("redis broker unavailable, using in-memory: %v", err)
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	return &Server{Store: s, Broker: broker, Limiter: NewClientLimiter(cfg.HTTP.RateRPS, cfg.HTTP.RateBurst), Cfg: cfg}, nil
}

// Routes registers every endpoint on a new mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Optimization
	mux.HandleFunc("/v1/optimize", s.OptimizeHandler)
	mux.HandleFunc("/v1/optimizer/config", s.OptimizerConfigHandler)

	// Runs
	mux.HandleFunc("/v1/runs", s.RunsIndexHandler)
	mux.HandleFunc("/v1/runs/stream", s.RunStreamHandler)
	mux.HandleFunc("/v1/runs/", s.RunByIDHandler)

	// Health, metrics, debug
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.Handle("/metrics", MetricsHandler())
	mux.HandleFunc("/debug/build", s.DebugJSON)

	return logMiddleware(instrument(s.Limiter.Middleware(mux)))
}
