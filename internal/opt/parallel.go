package opt

import (
	"golang.org/x/sync/errgroup"

	"uavpath/internal/course"
)

// DefaultMinChunk is the smallest predecessor range handed to one worker.
const DefaultMinChunk = 2048

// Options tune how the predecessor scan runs. The zero value scans
// sequentially.
type Options struct {
	// Workers > 1 splits the predecessor scan of each point across up to
	// this many goroutines. Points are still finalised left to right.
	Workers int
	// MinChunk is the smallest j-range worth a goroutine; 0 means DefaultMinChunk.
	MinChunk int
}

type scanner struct {
	c     course.Course
	p     course.Params
	dp    []float64
	o     Options
	bests []float64
	args  []int
}

func newScanner(c course.Course, p course.Params, dp []float64, o Options) *scanner {
	if o.MinChunk <= 0 {
		o.MinChunk = DefaultMinChunk
	}
	s := &scanner{c: c, p: p, dp: dp, o: o}
	if o.Workers > 1 {
		s.bests = make([]float64, o.Workers)
		s.args = make([]int, o.Workers)
	}
	return s
}

// min returns the first minimal candidate over j in [0, i) and its j.
func (s *scanner) min(i int) (float64, int) {
	chunks := 1
	if s.o.Workers > 1 {
		chunks = i / s.o.MinChunk
		if chunks > s.o.Workers {
			chunks = s.o.Workers
		}
	}
	if chunks <= 1 {
		return scanRange(s.c, s.p, s.dp, i, 0, i)
	}

	size := (i + chunks - 1) / chunks
	var g errgroup.Group
	for k := 0; k < chunks; k++ {
		lo, hi := k*size, (k+1)*size
		if hi > i {
			hi = i
		}
		g.Go(func() error {
			s.bests[k], s.args[k] = scanRange(s.c, s.p, s.dp, i, lo, hi)
			return nil
		})
	}
	_ = g.Wait()

	// merge in index order; strict < keeps the earliest chunk on ties
	best, arg := s.bests[0], s.args[0]
	for k := 1; k < chunks; k++ {
		if s.bests[k] < best {
			best, arg = s.bests[k], s.args[k]
		}
	}
	return best, arg
}
