// Package courseio reads course files and writes solution files.
//
// A course file is a sequence of whitespace separated tokens:
//
//	N
//	start_x start_y
//	terminal_x terminal_y
//	x_1 y_1 penalty_1
//	...
//	x_N y_N penalty_N
//	0
//
// The trailing 0 end marker may be omitted.
package courseio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/paulmach/orb"

	"uavpath/internal/course"
)

type tokens struct {
	sc *bufio.Scanner
}

func (t *tokens) next() (string, bool, error) {
	if !t.sc.Scan() {
		return "", false, t.sc.Err()
	}
	return t.sc.Text(), true, nil
}

// float reads one number. A missing token is reported with missing.
func (t *tokens) float(what string, missing error) (float64, error) {
	tok, ok, err := t.next()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", missing, what)
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %q is not a number", course.ErrInvalidInput, what, tok)
	}
	return v, nil
}

func (t *tokens) point(what string) (orb.Point, error) {
	x, err := t.float(what+" x", course.ErrMalformedCourse)
	if err != nil {
		return orb.Point{}, err
	}
	y, err := t.float(what+" y", course.ErrMalformedCourse)
	if err != nil {
		return orb.Point{}, err
	}
	return orb.Point{x, y}, nil
}

// Read parses one course from r.
func Read(r io.Reader) (course.Course, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	t := &tokens{sc: sc}

	tok, ok, err := t.next()
	if err != nil {
		return course.Course{}, err
	}
	if !ok {
		return course.Course{}, fmt.Errorf("%w: missing waypoint count", course.ErrInvalidInput)
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return course.Course{}, fmt.Errorf("%w: waypoint count %q is not an integer", course.ErrInvalidInput, tok)
	}
	if n < 0 {
		return course.Course{}, fmt.Errorf("%w: waypoint count %d must be non-negative", course.ErrInvalidInput, n)
	}

	start, err := t.point("start")
	if err != nil {
		return course.Course{}, err
	}
	term, err := t.point("terminal")
	if err != nil {
		return course.Course{}, err
	}

	var wps []course.Point
	for i := 1; i <= n; i++ {
		what := "waypoint " + strconv.Itoa(i)
		x, err := t.float(what+" x", course.ErrMalformedCourse)
		if err != nil {
			return course.Course{}, err
		}
		y, err := t.float(what+" y", course.ErrMalformedCourse)
		if err != nil {
			return course.Course{}, err
		}
		pen, err := t.float(what+" penalty", course.ErrMalformedCourse)
		if err != nil {
			return course.Course{}, err
		}
		wps = append(wps, course.Point{Loc: orb.Point{x, y}, Penalty: pen})
	}

	tok, ok, err = t.next()
	if err != nil {
		return course.Course{}, err
	}
	if ok {
		if m, err := strconv.Atoi(tok); err != nil || m != 0 {
			return course.Course{}, fmt.Errorf("%w: expected end marker 0 after %d waypoints, got %q", course.ErrInvalidInput, n, tok)
		}
		if extra, more, err := t.next(); err != nil {
			return course.Course{}, err
		} else if more {
			return course.Course{}, fmt.Errorf("%w: unexpected %q after end marker", course.ErrInvalidInput, extra)
		}
	}

	return course.New(start, term, wps)
}

// ReadFile parses the course stored at path.
func ReadFile(path string) (course.Course, error) {
	f, err := os.Open(path)
	if err != nil {
		return course.Course{}, err
	}
	defer func() { _ = f.Close() }()
	c, err := Read(f)
	if err != nil {
		return course.Course{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
