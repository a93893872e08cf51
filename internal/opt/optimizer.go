// Package opt computes the minimum-time visit/skip plan for a UAV course.
package opt

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"uavpath/internal/course"
)

// Result is the optimal visiting plan for one course.
type Result struct {
	MinTime   float64
	Path      []int // 0, visited waypoints, N+1; strictly increasing
	Waypoints int   // N
	Breakdown Breakdown
}

// Breakdown splits MinTime into its components along Path. The three parts
// sum to MinTime up to floating-point rounding.
type Breakdown struct {
	Travel  float64 `json:"travel"`
	Wait    float64 `json:"wait"`
	Penalty float64 `json:"penalty"`
}

// Visited returns the interior indices of Path (the waypoints flown to).
func (r Result) Visited() []int {
	if len(r.Path) < 2 {
		return []int{}
	}
	return append([]int{}, r.Path[1:len(r.Path)-1]...)
}

// Skipped returns every waypoint index in 1..N that is not on Path.
func (r Result) Skipped() []int {
	out := []int{}
	k := 1
	for i := 1; i <= r.Waypoints; i++ {
		for k < len(r.Path) && r.Path[k] < i {
			k++
		}
		if k < len(r.Path) && r.Path[k] == i {
			continue
		}
		out = append(out, i)
	}
	return out
}

// Pred is an optional predecessor index. The zero value means "none".
type Pred struct {
	idx int
	ok  bool
}

func some(i int) Pred { return Pred{idx: i, ok: true} }

// Index returns the predecessor and whether one exists.
func (p Pred) Index() (int, bool) { return p.idx, p.ok }

// Optimize computes the minimum total time to fly c from start to terminal,
// visiting or skipping each waypoint, and the visiting sequence that
// achieves it.
//
// dp[i] is the best time with point i visited; for each earlier visited
// point j the candidate is dp[j] + |j,i|/speed + penalties of j+1..i-1, and
// dp[i] adds the wait time to the smallest candidate. The terminal is
// charged the wait time like every other visited point. On equal candidates
// the smallest j wins, so the output is deterministic.
func Optimize(c course.Course, p course.Params) (Result, error) {
	return OptimizeWith(c, p, Options{})
}

// OptimizeWith is Optimize with tuning options. The result is bit-identical
// to Optimize for any Options.
func OptimizeWith(c course.Course, p course.Params, o Options) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	n := c.Len()
	if n < 2 {
		return Result{}, fmt.Errorf("%w: course needs start and terminal, has %d points", course.ErrMalformedCourse, n)
	}

	dp := make([]float64, n)
	prev := make([]Pred, n)
	scan := newScanner(c, p, dp, o)
	for i := 1; i < n; i++ {
		best, j := scan.min(i)
		if math.IsInf(best, 1) {
			return Result{}, fmt.Errorf("%w: time to reach point %d overflows", course.ErrInvalidInput, i)
		}
		dp[i] = best + p.WaitTime
		prev[i] = some(j)
	}

	path, err := backtrace(prev)
	if err != nil {
		return Result{}, err
	}
	return Result{
		MinTime:   dp[n-1],
		Path:      path,
		Waypoints: c.Waypoints(),
		Breakdown: breakdown(c, p, path),
	}, nil
}

// candidate is the time to be at i having last visited j.
func candidate(c course.Course, p course.Params, dp []float64, j, i int) float64 {
	d := distance(c.At(j).Loc, c.At(i).Loc)
	return dp[j] + d/p.Speed + c.SkipPenalty(j, i)
}

// distance is the Euclidean distance between a and b. It uses math.Hypot so
// that coordinates far beyond 1e154 do not overflow.
func distance(a, b orb.Point) float64 {
	return math.Hypot(a[0]-b[0], a[1]-b[1])
}

// scanRange returns the first minimum of candidate(j, i) for j in [lo, hi).
func scanRange(c course.Course, p course.Params, dp []float64, i, lo, hi int) (float64, int) {
	best, arg := math.Inf(1), lo
	for j := lo; j < hi; j++ {
		if v := candidate(c, p, dp, j, i); v < best {
			best, arg = v, j
		}
	}
	return best, arg
}

// backtrace walks prev from the terminal back to the start.
func backtrace(prev []Pred) ([]int, error) {
	last := len(prev) - 1
	path := []int{last}
	for cur := last; cur != 0; {
		j, ok := prev[cur].Index()
		if !ok || j >= cur {
			return nil, fmt.Errorf("opt: broken predecessor chain at %d", cur)
		}
		path = append(path, j)
		cur = j
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path, nil
}

func breakdown(c course.Course, p course.Params, path []int) Breakdown {
	var b Breakdown
	for k := 1; k < len(path); k++ {
		j, i := path[k-1], path[k]
		b.Travel += distance(c.At(j).Loc, c.At(i).Loc) / p.Speed
		b.Penalty += c.SkipPenalty(j, i)
		b.Wait += p.WaitTime
	}
	return b
}
