// Command quakegen writes synthetic USGS-style earthquake CSV for trying
// quakeview: a batch of events, then optionally a steady trickle of new
// events, revisions of earlier ones and malformed rows to a file that
// quakeview --follow can tail.
package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
)

func main() {
	var (
		count       int
		rate        float64
		outPath     string
		appendMode  bool
		dupRatio    float64
		badRatio    float64
		seed        int64
		durationStr string
	)
	flag.IntVarP(&count, "count", "n", 500, "events written up front")
	flag.Float64Var(&rate, "rate", 0, "events per second appended after the batch; 0 exits after the batch")
	flag.StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	flag.BoolVar(&appendMode, "append", false, "append to --out instead of truncating it")
	flag.Float64Var(&dupRatio, "dup-ratio", 0.05, "fraction of rows that revise an earlier event")
	flag.Float64Var(&badRatio, "bad-ratio", 0.02, "fraction of malformed rows")
	flag.Int64Var(&seed, "seed", 0, "random seed (default: time based)")
	flag.StringVar(&durationStr, "duration", "", "optional run duration (e.g. 30s, 2m); empty runs until interrupted")
	flag.Parse()

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	abort := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		close(abort)
	}()

	var deadline time.Time
	if durationStr != "" {
		d, err := time.ParseDuration(durationStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid duration: %v\n", err)
			os.Exit(2)
		}
		deadline = time.Now().Add(d)
	}
	shouldStop := func() bool {
		select {
		case <-abort:
			return true
		default:
		}
		return !deadline.IsZero() && time.Now().After(deadline)
	}

	out := os.Stdout
	writeHeader := true
	if outPath != "" {
		flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		if appendMode {
			flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
		f, err := os.OpenFile(outPath, flags, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if st, err := f.Stat(); err == nil && st.Size() > 0 {
			writeHeader = false
		}
		out = f
	}

	g := newGenerator(seed, time.Now().UTC().Add(-7*24*time.Hour))
	g.dupRatio, g.badRatio = dupRatio, badRatio
	bw := bufio.NewWriter(out)
	w := csv.NewWriter(bw)
	if writeHeader {
		_ = w.Write(header)
	}
	for i := 0; i < count; i++ {
		_ = w.Write(g.next())
	}
	w.Flush()
	_ = bw.Flush()
	if outPath != "" {
		fmt.Fprintf(os.Stderr, "wrote %d rows to %s\n", count, outPath)
	}
	if rate <= 0 {
		return
	}

	fmt.Fprintf(os.Stderr, "appending at %.2f rows/s\n", rate)
	interval := time.Duration(float64(time.Second) / rate)
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for !shouldStop() {
		select {
		case <-ticker.C:
			g.clock = time.Now().UTC()
			_ = w.Write(g.next())
			w.Flush()
			_ = bw.Flush()
		case <-abort:
		}
	}
}
