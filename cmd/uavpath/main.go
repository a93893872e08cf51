// Command uavpath solves one course file and writes the solution file.
//
//	uavpath [flags] <input> <output> [speed] [wait_time]
//
// The solution file holds the minimal time with three decimals, followed by
// the visited waypoint indices (1..N) one per line. With -full the indices
// are the whole path instead: 0 for start, N+1 for terminal.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"uavpath/internal/buildinfo"
	"uavpath/internal/config"
	"uavpath/internal/courseio"
	"uavpath/internal/opt"
)

var errUsage = errors.New("usage")

func main() {
	log.SetFlags(0)
	log.SetPrefix("uavpath: ")
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("uavpath", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "YAML config file")
	full := fs.Bool("full", false, "write the full path (0..N+1) instead of visited waypoints")
	workers := fs.Int("workers", -1, "goroutines for the predecessor scan (overrides config)")
	version := fs.Bool("version", false, "print build info and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: uavpath [flags] <input> <output> [speed] [wait_time]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *version {
		fmt.Fprintln(stderr, buildinfo.String())
		return 0
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}
	in, out, err := applyArgs(&cfg, fs.Args())
	if err != nil {
		if errors.Is(err, errUsage) {
			fs.Usage()
			return 2
		}
		log.Printf("%v", err)
		return 1
	}
	if *full {
		cfg.Numbering = "full"
	}
	if *workers >= 0 {
		cfg.Workers = *workers
	}
	numbering, err := courseio.ParseNumbering(cfg.Numbering)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}

	c, err := courseio.ReadFile(in)
	if err != nil {
		log.Printf("read: %v", err)
		return 1
	}
	start := time.Now()
	res, err := opt.OptimizeWith(c, cfg.UAV, opt.Options{Workers: cfg.Workers})
	if err != nil {
		log.Printf("optimize: %v", err)
		return 1
	}
	if err := courseio.WriteFile(out, res, numbering); err != nil {
		log.Printf("write: %v", err)
		return 1
	}
	log.Printf("%s: %d waypoints, %d visited, time %.3f (%v)", in, res.Waypoints, len(res.Visited()), res.MinTime, time.Since(start))
	return 0
}

// applyArgs takes the positional arguments and overrides the UAV params
// with the optional speed and wait time.
func applyArgs(cfg *config.Config, args []string) (in, out string, err error) {
	if len(args) < 2 || len(args) > 4 {
		return "", "", errUsage
	}
	in, out = args[0], args[1]
	if len(args) > 2 {
		if cfg.UAV.Speed, err = strconv.ParseFloat(args[2], 64); err != nil {
			return "", "", fmt.Errorf("speed %q: %w", args[2], err)
		}
	}
	if len(args) > 3 {
		if cfg.UAV.WaitTime, err = strconv.ParseFloat(args[3], 64); err != nil {
			return "", "", fmt.Errorf("wait time %q: %w", args[3], err)
		}
	}
	return in, out, nil
}
