// Package course holds the ordered point sequence a UAV flies and the
// parameters it flies it with.
package course

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

var (
	// ErrInvalidParameter reports a non-positive speed or a negative wait time.
	ErrInvalidParameter = errors.New("course: invalid parameter")
	// ErrInvalidInput reports a bad waypoint count or a non-numeric field.
	ErrInvalidInput = errors.New("course: invalid input")
	// ErrMalformedCourse reports missing start/terminal data or missing waypoints.
	ErrMalformedCourse = errors.New("course: malformed course")
)

// Point is one entry of a Course. For waypoints Penalty is the cost of
// skipping it; start and terminal always carry a zero penalty.
type Point struct {
	Loc     orb.Point
	Penalty float64
}

// Course is the immutable sequence [start, wp_1..wp_N, terminal].
type Course struct {
	pts    []Point
	prefix []float64
}

// New validates the inputs and builds a Course. The waypoint slice is copied.
func New(start, terminal orb.Point, waypoints []Point) (Course, error) {
	if !finitePoint(start) {
		return Course{}, fmt.Errorf("%w: start coordinates %v", ErrInvalidInput, start)
	}
	if !finitePoint(terminal) {
		return Course{}, fmt.Errorf("%w: terminal coordinates %v", ErrInvalidInput, terminal)
	}
	pts := make([]Point, 0, len(waypoints)+2)
	pts = append(pts, Point{Loc: start})
	for i, w := range waypoints {
		if !finitePoint(w.Loc) {
			return Course{}, fmt.Errorf("%w: waypoint %d coordinates %v", ErrInvalidInput, i+1, w.Loc)
		}
		if math.IsNaN(w.Penalty) || math.IsInf(w.Penalty, 0) || w.Penalty < 0 {
			return Course{}, fmt.Errorf("%w: waypoint %d penalty %v", ErrInvalidInput, i+1, w.Penalty)
		}
		pts = append(pts, Point{Loc: w.Loc, Penalty: w.Penalty})
	}
	pts = append(pts, Point{Loc: terminal})

	// prefix[i] = penalty of waypoints 1..i; the terminal adds nothing.
	prefix := make([]float64, len(pts))
	for i := 1; i < len(pts); i++ {
		prefix[i] = prefix[i-1] + pts[i].Penalty
		if math.IsInf(prefix[i], 1) {
			return Course{}, fmt.Errorf("%w: total penalty through waypoint %d overflows", ErrInvalidInput, i)
		}
	}
	return Course{pts: pts, prefix: prefix}, nil
}

// Len is the number of points including start and terminal.
func (c Course) Len() int { return len(c.pts) }

// Waypoints is the number of real waypoints N.
func (c Course) Waypoints() int {
	if len(c.pts) < 2 {
		return 0
	}
	return len(c.pts) - 2
}

// Terminal returns the terminal index N+1.
func (c Course) Terminal() int { return len(c.pts) - 1 }

// At returns point i. It panics if i is out of range.
func (c Course) At(i int) Point { return c.pts[i] }

// Points returns a copy of the full point sequence.
func (c Course) Points() []Point { return append([]Point(nil), c.pts...) }

// PenaltyPrefix returns the cumulative skip penalty of waypoints 1..i.
func (c Course) PenaltyPrefix(i int) float64 { return c.prefix[i] }

// SkipPenalty is the total penalty of the waypoints strictly between j and i.
func (c Course) SkipPenalty(j, i int) float64 {
	return c.prefix[i-1] - c.prefix[j]
}

// TotalPenalty is the penalty of skipping every waypoint.
func (c Course) TotalPenalty() float64 {
	if len(c.prefix) == 0 {
		return 0
	}
	return c.prefix[len(c.prefix)-1]
}

// Bound is the bounding box of all points in the course.
func (c Course) Bound() orb.Bound {
	mp := make(orb.MultiPoint, len(c.pts))
	for i, p := range c.pts {
		mp[i] = p.Loc
	}
	return mp.Bound()
}

func finitePoint(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
