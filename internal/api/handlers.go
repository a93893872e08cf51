package api

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"uavpath/internal/course"
	"uavpath/internal/courseio"
	"uavpath/internal/metrics"
	"uavpath/internal/model"
	"uavpath/internal/opt"
	"uavpath/internal/store"
)

// OptimizeHandler handles POST /v1/optimize.
//
// A JSON body is a model.OptimizeRequest. A text/plain body is a course file;
// speed, waitTime and workers then come from the query string.
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var (
		c       course.Course
		p       course.Params
		label   string
		workers int
		err     error
	)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "text/plain" {
		c, p, workers, err = s.parseTextCourse(w, r)
		label = r.URL.Query().Get("label")
	} else {
		var req model.OptimizeRequest
		if derr := decodeJSON(w, r, &req); derr != nil {
			metrics.OptimizeRuns.WithLabelValues("invalid").Inc()
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", derr.Error(), r.URL.Path)
			return
		}
		c, p, err = validateOptimizeRequest(&req, s.Cfg.UAV)
		label, workers = req.Label, req.Workers
	}
	if err != nil {
		metrics.OptimizeRuns.WithLabelValues("invalid").Inc()
		writeProblem(w, http.StatusBadRequest, problemTitle(err), err.Error(), r.URL.Path)
		return
	}
	if workers == 0 {
		workers = s.Cfg.Workers
	}

	start := time.Now()
	res, err := opt.OptimizeWith(c, p, opt.Options{Workers: workers})
	elapsed := time.Since(start)
	if err != nil {
		metrics.OptimizeRuns.WithLabelValues("invalid").Inc()
		writeProblem(w, http.StatusBadRequest, problemTitle(err), err.Error(), r.URL.Path)
		return
	}
	metrics.OptimizeRuns.WithLabelValues("ok").Inc()
	metrics.OptimizeDuration.Observe(elapsed.Seconds())
	metrics.CourseWaypoints.Observe(float64(res.Waypoints))
	if res.Waypoints > 0 {
		metrics.SkippedRatio.Observe(float64(len(res.Skipped())) / float64(res.Waypoints))
	}

	run := newRun(label, c, p, res, elapsed)
	if err := s.Store.SaveRun(r.Context(), run); err != nil {
		metrics.OptimizeRuns.WithLabelValues("error").Inc()
		writeProblem(w, http.StatusInternalServerError, "Save run failed", err.Error(), r.URL.Path)
		return
	}
	s.Broker.Publish(RunsTopic, model.RunEvent{Type: "run.completed", Run: run, TS: time.Now().UTC().Format(time.RFC3339)})
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) parseTextCourse(w http.ResponseWriter, r *http.Request) (course.Course, course.Params, int, error) {
	c, err := courseio.Read(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return course.Course{}, course.Params{}, 0, err
	}
	p := s.Cfg.UAV
	q := r.URL.Query()
	if p.Speed, err = queryFloat(q.Get("speed"), p.Speed); err != nil {
		return course.Course{}, course.Params{}, 0, fmt.Errorf("%w: speed: %v", course.ErrInvalidParameter, err)
	}
	if p.WaitTime, err = queryFloat(q.Get("waitTime"), p.WaitTime); err != nil {
		return course.Course{}, course.Params{}, 0, fmt.Errorf("%w: waitTime: %v", course.ErrInvalidParameter, err)
	}
	workers := 0
	if v := q.Get("workers"); v != "" {
		if workers, err = strconv.Atoi(v); err != nil || workers < 0 || workers > maxWorkers {
			return course.Course{}, course.Params{}, 0, fmt.Errorf("%w: workers must be in [0,%d]", course.ErrInvalidParameter, maxWorkers)
		}
	}
	return c, p, workers, nil
}

func queryFloat(v string, def float64) (float64, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

func problemTitle(err error) string {
	switch {
	case errors.Is(err, course.ErrInvalidParameter):
		return "Invalid parameter"
	case errors.Is(err, course.ErrMalformedCourse):
		return "Malformed course"
	case errors.Is(err, course.ErrInvalidInput):
		return "Invalid input"
	default:
		return "Invalid optimize request"
	}
}

func newRun(label string, c course.Course, p course.Params, res opt.Result, elapsed time.Duration) model.Run {
	b := c.Bound()
	return model.Run{
		ID:        uuid.NewString(),
		Label:     label,
		Waypoints: res.Waypoints,
		Speed:     p.Speed,
		WaitTime:  p.WaitTime,
		MinTime:   res.MinTime,
		Path:      append([]int{}, res.Path...),
		Visited:   res.Visited(),
		Skipped:   res.Skipped(),
		Breakdown: model.Breakdown(res.Breakdown),
		Bound: model.Bound{
			Min: model.XY{X: b.Min.X(), Y: b.Min.Y()},
			Max: model.XY{X: b.Max.X(), Y: b.Max.Y()},
		},
		ElapsedMs: float64(elapsed.Microseconds()) / 1000,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// OptimizerConfigHandler returns the defaults applied to requests that omit them
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, 200, map[string]any{"defaults": map[string]any{
		"speed":    s.Cfg.UAV.Speed,
		"waitTime": s.Cfg.UAV.WaitTime,
		"workers":  s.Cfg.Workers,
	}})
}

// RunsIndexHandler handles GET /v1/runs
func (s *Server) RunsIndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/runs" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cursor := r.URL.Query().Get("cursor")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListRuns(r.Context(), cursor, limit)
	if err != nil {
		writeProblem(w, 500, "List runs failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id} and GET /v1/runs/{id}/solution
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(rest, "/")
	run, err := s.Store.GetRun(r.Context(), parts[0])
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, 404, "Run not found", parts[0], r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, 500, "Get run failed", err.Error(), r.URL.Path)
		return
	}
	switch {
	case len(parts) == 1:
		writeJSON(w, 200, run)
	case len(parts) == 2 && parts[1] == "solution":
		// same rendering as the CLI's solution file
		n, err := courseio.ParseNumbering(r.URL.Query().Get("numbering"))
		if err != nil {
			writeProblem(w, 400, "Invalid numbering", err.Error(), r.URL.Path)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_ = courseio.Write(w, opt.Result{MinTime: run.MinTime, Path: run.Path, Waypoints: run.Waypoints}, n)
	default:
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
	}
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}
