package courseio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"uavpath/internal/opt"
)

// Numbering selects which indices follow the time line in a solution file.
type Numbering int

const (
	// NumberingVisited lists only the visited waypoints, numbered 1..N.
	NumberingVisited Numbering = iota
	// NumberingFull lists the whole path, 0 for start and N+1 for terminal.
	NumberingFull
)

func (n Numbering) String() string {
	switch n {
	case NumberingVisited:
		return "visited"
	case NumberingFull:
		return "full"
	default:
		return fmt.Sprintf("Numbering(%d)", int(n))
	}
}

// ParseNumbering maps "visited" or "full" to a Numbering.
func ParseNumbering(s string) (Numbering, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "visited":
		return NumberingVisited, nil
	case "full":
		return NumberingFull, nil
	default:
		return 0, fmt.Errorf("unknown numbering %q (want visited or full)", s)
	}
}

// Write renders res: the minimal time with three decimals on the first
// line, then one index per line.
func Write(w io.Writer, res opt.Result, n Numbering) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%.3f\n", res.MinTime)
	idx := res.Visited()
	if n == NumberingFull {
		idx = res.Path
	}
	for _, i := range idx {
		fmt.Fprintf(bw, "%d\n", i)
	}
	return bw.Flush()
}

// WriteFile writes res to path. The file only appears once fully written.
func WriteFile(path string, res opt.Result, n Numbering) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if err = Write(tmp, res, n); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
