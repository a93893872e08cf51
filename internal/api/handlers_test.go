package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"uavpath/internal/config"
	"uavpath/internal/metrics"
	"uavpath/internal/model"
)

const sampleJSON = `{"label":"demo","start":{"x":0,"y":0},"terminal":{"x":100,"y":100},
"waypoints":[{"x":30,"y":30,"penalty":90},{"x":60,"y":60,"penalty":80},{"x":10,"y":90,"penalty":10}]}`

const sampleText = "3\n0 0\n100 100\n30 30 90\n60 60 80\n10 90 10\n0\n"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(config.Default())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func postOptimize(t *testing.T, s *Server, body, contentType, query string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/optimize"+query, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	s.OptimizeHandler(rr, req)
	return rr
}

func decodeRun(t *testing.T, rr *httptest.ResponseRecorder) model.Run {
	t.Helper()
	var run model.Run
	if err := json.Unmarshal(rr.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v: %s", err, rr.Body.String())
	}
	return run
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != 200 {
		t.Fatalf("health: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != 200 {
		t.Fatalf("ready: got %d", rr.Code)
	}
}

func TestOptimizeJSON(t *testing.T) {
	s := newTestServer(t)
	before := testutil.ToFloat64(metrics.OptimizeRuns.WithLabelValues("ok"))
	rr := postOptimize(t, s, sampleJSON, "application/json", "")
	if rr.Code != 200 {
		t.Fatalf("optimize: %d %s", rr.Code, rr.Body.String())
	}
	run := decodeRun(t, rr)
	if run.ID == "" || run.Label != "demo" {
		t.Fatalf("bad run header: %+v", run)
	}
	if math.Abs(run.MinTime-110.711) > 5e-4 {
		t.Fatalf("minTime = %v", run.MinTime)
	}
	if len(run.Visited) != 2 || run.Visited[0] != 1 || run.Visited[1] != 2 {
		t.Fatalf("visited = %v", run.Visited)
	}
	if len(run.Skipped) != 1 || run.Skipped[0] != 3 {
		t.Fatalf("skipped = %v", run.Skipped)
	}
	if run.Speed != 2 || run.WaitTime != 10 {
		t.Fatalf("defaults not applied: %+v", run)
	}
	if run.Bound.Max.X != 100 || run.Bound.Min.Y != 0 {
		t.Fatalf("bound = %+v", run.Bound)
	}
	if got := testutil.ToFloat64(metrics.OptimizeRuns.WithLabelValues("ok")); got != before+1 {
		t.Fatalf("ok counter %v, want %v", got, before+1)
	}

	// stored and retrievable
	rr = httptest.NewRecorder()
	s.RunByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/"+run.ID, nil))
	if rr.Code != 200 {
		t.Fatalf("get run: %d", rr.Code)
	}
	if got := decodeRun(t, rr); got.MinTime != run.MinTime {
		t.Fatalf("stored minTime %v != %v", got.MinTime, run.MinTime)
	}

	rr = httptest.NewRecorder()
	s.RunByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/"+run.ID+"/solution", nil))
	if rr.Code != 200 || rr.Body.String() != "110.711\n1\n2\n" {
		t.Fatalf("solution: %d %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	s.RunByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/"+run.ID+"/solution?numbering=full", nil))
	if rr.Body.String() != "110.711\n0\n1\n2\n4\n" {
		t.Fatalf("full solution: %q", rr.Body.String())
	}
}

func TestOptimizeTextWithOverrides(t *testing.T) {
	s := newTestServer(t)
	rr := postOptimize(t, s, "0\n0 0\n30 40\n", "text/plain; charset=utf-8", "?speed=5&waitTime=1.5&label=direct")
	if rr.Code != 200 {
		t.Fatalf("optimize text: %d %s", rr.Code, rr.Body.String())
	}
	run := decodeRun(t, rr)
	if run.MinTime != 11.5 || run.Label != "direct" {
		t.Fatalf("got %+v", run)
	}
	if len(run.Path) != 2 || run.Path[1] != 1 {
		t.Fatalf("path = %v", run.Path)
	}

	rr = postOptimize(t, s, sampleText, "text/plain", "?workers=4")
	if rr.Code != 200 {
		t.Fatalf("optimize text workers: %d %s", rr.Code, rr.Body.String())
	}
}

func TestOptimizeRejects(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		name, body, ct, query, title string
	}{
		{"zero speed", `{"start":{"x":0,"y":0},"terminal":{"x":1,"y":1},"speed":0}`, "application/json", "", "Invalid parameter"},
		{"negative wait", `{"start":{"x":0,"y":0},"terminal":{"x":1,"y":1},"waitTime":-1}`, "application/json", "", "Invalid parameter"},
		{"missing terminal", `{"start":{"x":0,"y":0}}`, "application/json", "", "Malformed course"},
		{"negative penalty", `{"start":{"x":0,"y":0},"terminal":{"x":1,"y":1},"waypoints":[{"x":1,"y":1,"penalty":-2}]}`, "application/json", "", "Invalid input"},
		{"bad workers", `{"start":{"x":0,"y":0},"terminal":{"x":1,"y":1},"workers":1000}`, "application/json", "", "Invalid parameter"},
		{"unknown field", `{"start":{"x":0,"y":0},"terminal":{"x":1,"y":1},"speeed":3}`, "application/json", "", "Invalid JSON"},
		{"trailing json", `{"start":{"x":0,"y":0},"terminal":{"x":1,"y":1}} {}`, "application/json", "", "Invalid JSON"},
		{"text negative count", "-1\n0 0\n1 1\n", "text/plain", "", "Invalid input"},
		{"text short", "2\n0 0\n1 1\n3 3 3\n", "text/plain", "", "Malformed course"},
		{"text bad speed", sampleText, "text/plain", "?speed=-4", "Invalid parameter"},
		{"text unparsable speed", sampleText, "text/plain", "?speed=fast", "Invalid parameter"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := postOptimize(t, s, tc.body, tc.ct, tc.query)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("want 400, got %d: %s", rr.Code, rr.Body.String())
			}
			var p Problem
			if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
				t.Fatalf("decode problem: %v", err)
			}
			if p.Title != tc.title {
				t.Fatalf("title %q, want %q (%s)", p.Title, tc.title, p.Detail)
			}
		})
	}

	rr := httptest.NewRecorder()
	s.OptimizeHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/optimize", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET optimize: %d", rr.Code)
	}
}

func TestRunsIndexAndNotFound(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		if rr := postOptimize(t, s, sampleJSON, "application/json", ""); rr.Code != 200 {
			t.Fatalf("optimize: %d", rr.Code)
		}
	}
	rr := httptest.NewRecorder()
	s.RunsIndexHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs?limit=2", nil))
	if rr.Code != 200 {
		t.Fatalf("runs index: %d", rr.Code)
	}
	var idx struct {
		Items      []model.Run `json:"items"`
		NextCursor string      `json:"nextCursor"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &idx); err != nil {
		t.Fatalf("decode index: %v", err)
	}
	if len(idx.Items) != 2 || idx.NextCursor == "" {
		t.Fatalf("page = %d items, cursor %q", len(idx.Items), idx.NextCursor)
	}

	rr = httptest.NewRecorder()
	s.RunByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/does-not-exist", nil))
	if rr.Code != 404 {
		t.Fatalf("missing run: %d", rr.Code)
	}
}

func TestOptimizerConfig(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.OptimizerConfigHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/optimizer/config", nil))
	var body struct{ Defaults map[string]float64 `json:"defaults"` }
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Defaults["speed"] != 2 || body.Defaults["waitTime"] != 10 {
		t.Fatalf("defaults = %v", body.Defaults)
	}
}

func TestRoutesRateLimitAndMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.RateRPS = 0.001
	cfg.HTTP.RateBurst = 2
	s, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	h := s.Routes()

	codes := []int{}
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/optimizer/config", nil))
		codes = append(codes, rr.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	// probes bypass the limiter
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != 200 {
		t.Fatalf("healthz limited: %d", rr.Code)
	}

	// a different client still has its own bucket
	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	h.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("metrics: %d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("http_rate_limited_total")) {
		t.Fatalf("metrics body missing limiter counter")
	}
}

func TestRunStreamWebSocket(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/runs/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var ack wsMessage
	if err := conn.ReadJSON(&ack); err != nil || ack.Type != "connection_ack" {
		t.Fatalf("ack: %+v %v", ack, err)
	}

	resp, err := http.Post(srv.URL+"/v1/optimize", "application/json", strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	var run model.Run
	_ = json.NewDecoder(resp.Body).Decode(&run)
	_ = resp.Body.Close()

	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if msg.Type != "next" {
		t.Fatalf("type = %s", msg.Type)
	}
	var evt model.RunEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if evt.Type != "run.completed" || evt.Run.ID != run.ID {
		t.Fatalf("event = %+v, want run %s", evt, run.ID)
	}
}

func TestMetricPath(t *testing.T) {
	cases := map[string]string{
		"/v1/runs/abc":          "/v1/runs/{id}",
		"/v1/runs/abc/solution": "/v1/runs/{id}/solution",
		"/v1/runs/stream":       "/v1/runs/stream",
		"/v1/optimize":          "/v1/optimize",
		"/healthz":              "/healthz",
		"/v1/runs/":             "other",
		"/v1/runs/abc/extra/x":  "other",
		"/wp-admin/setup.php":   "other",
		"/v1/optimize/nested":   "other",
	}
	for in, want := range cases {
		if got := metricPath(in); got != want {
			t.Fatalf("metricPath(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestOptimizeLargeCoordinates(t *testing.T) {
	s := newTestServer(t)
	body := `{"start":{"x":0,"y":0},"terminal":{"x":3e200,"y":4e200},"speed":1e200,"waitTime":10}`
	rr := postOptimize(t, s, body, "application/json", "")
	if rr.Code != 200 {
		t.Fatalf("optimize: %d %s", rr.Code, rr.Body.String())
	}
	run := decodeRun(t, rr)
	if math.Abs(run.MinTime-15) > 1e-9 {
		t.Fatalf("minTime = %v, want 15", run.MinTime)
	}
	if len(run.Path) != 2 || run.Path[1] != 1 {
		t.Fatalf("path = %v", run.Path)
	}
}

func TestOptimizeOverflowRejectedAndNotStored(t *testing.T) {
	s := newTestServer(t)
	body := `{"start":{"x":-1e308,"y":0},"terminal":{"x":1e308,"y":0},"speed":1,"waitTime":0}`
	rr := postOptimize(t, s, body, "application/json", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d: %s", rr.Code, rr.Body.String())
	}
	var p Problem
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	if p.Title != "Invalid input" {
		t.Fatalf("title = %q (%s)", p.Title, p.Detail)
	}
	runs, _, err := s.Store.ListRuns(context.Background(), "", 10)
	if err != nil || len(runs) != 0 {
		t.Fatalf("runs = %v, err = %v", runs, err)
	}
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusOK, map[string]float64{"minTime": math.Inf(1)})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type = %q", ct)
	}
}
