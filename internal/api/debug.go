package api

import (
	"net/http"
	"time"

	"uavpath/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"addr":             s.Cfg.HTTP.Addr,
			"rateRps":          s.Cfg.HTTP.RateRPS,
			"rateBurst":        s.Cfg.HTTP.RateBurst,
			"workers":          s.Cfg.Workers,
			"hasDatabaseUrl":   s.Cfg.Store.DatabaseURL != "",
			"hasRedisUrl":      s.Cfg.RedisURL != "",
		},
	})
}
