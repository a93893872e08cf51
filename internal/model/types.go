package model

// Wire types for the HTTP API

type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type WaypointIn struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Penalty float64 `json:"penalty"`
}

// OptimizeRequest is the body of POST /v1/optimize. Nil Speed/WaitTime take
// the server defaults; explicit values are validated, never replaced.
type OptimizeRequest struct {
	Label     string       `json:"label,omitempty"`
	Start     *XY          `json:"start"`
	Terminal  *XY          `json:"terminal"`
	Waypoints []WaypointIn `json:"waypoints"`
	Speed     *float64     `json:"speed,omitempty"`
	WaitTime  *float64     `json:"waitTime,omitempty"`
	Workers   int          `json:"workers,omitempty"`
}

type Breakdown struct {
	Travel  float64 `json:"travel"`
	Wait    float64 `json:"wait"`
	Penalty float64 `json:"penalty"`
}

type Bound struct {
	Min XY `json:"min"`
	Max XY `json:"max"`
}

// Run is one stored optimization.
type Run struct {
	ID        string    `json:"id"`
	Label     string    `json:"label,omitempty"`
	Waypoints int       `json:"waypoints"`
	Speed     float64   `json:"speed"`
	WaitTime  float64   `json:"waitTime"`
	MinTime   float64   `json:"minTime"`
	Path      []int     `json:"path"`
	Visited   []int     `json:"visited"`
	Skipped   []int     `json:"skipped"`
	Breakdown Breakdown `json:"breakdown"`
	Bound     Bound     `json:"bound"`
	ElapsedMs float64   `json:"elapsedMs"`
	CreatedAt string    `json:"createdAt"`
}

// RunEvent is pushed to stream subscribers.
type RunEvent struct {
	Type string `json:"type"` // run.completed
	Run  Run    `json:"run"`
	TS   string `json:"ts"`
}
