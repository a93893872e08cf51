package api

import (
	"fmt"

	"github.com/paulmach/orb"

	"uavpath/internal/course"
	"uavpath/internal/model"
)

const maxWorkers = 64

// validateOptimizeRequest turns a request into a course and UAV params.
// Errors wrap the course error taxonomy.
func validateOptimizeRequest(req *model.OptimizeRequest, defaults course.Params) (course.Course, course.Params, error) {
	if req.Start == nil || req.Terminal == nil {
		return course.Course{}, course.Params{}, fmt.Errorf("%w: start and terminal are required", course.ErrMalformedCourse)
	}
	if req.Workers < 0 || req.Workers > maxWorkers {
		return course.Course{}, course.Params{}, fmt.Errorf("%w: workers must be in [0,%d]", course.ErrInvalidParameter, maxWorkers)
	}
	p := defaults
	if req.Speed != nil {
		p.Speed = *req.Speed
	}
	if req.WaitTime != nil {
		p.WaitTime = *req.WaitTime
	}
	if err := p.Validate(); err != nil {
		return course.Course{}, course.Params{}, err
	}
	wps := make([]course.Point, len(req.Waypoints))
	for i, w := range req.Waypoints {
		wps[i] = course.Point{Loc: orb.Point{w.X, w.Y}, Penalty: w.Penalty}
	}
	c, err := course.New(orb.Point{req.Start.X, req.Start.Y}, orb.Point{req.Terminal.X, req.Terminal.Y}, wps)
	if err != nil {
		return course.Course{}, course.Params{}, err
	}
	return c, p, nil
}
