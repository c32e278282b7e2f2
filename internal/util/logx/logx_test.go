package logx

import (
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestRingKeepsRecentLines(t *testing.T) {
	Setup("debug", "text", false)
	for i := 0; i < maxLines+10; i++ {
		Debugf("line %d", i)
	}
	lines := Lines()
	if len(lines) != maxLines {
		t.Fatalf("got %d lines, want %d", len(lines), maxLines)
	}
	if !strings.Contains(lines[len(lines)-1], "line 509") {
		t.Fatalf("last line = %q", lines[len(lines)-1])
	}
}

func TestLevelFilters(t *testing.T) {
	Setup("warn", "json", false)
	Infof("hidden")
	if strings.Contains(Dump(), "hidden") {
		t.Fatalf("info line should be filtered")
	}
	Warnf("shown %s", "now")
	if !strings.Contains(Dump(), `"msg":"shown now"`) {
		t.Fatalf("warn line missing from json output: %s", Dump())
	}
}

func TestSetupWhileLogging(t *testing.T) {
	Setup("info", "text", false)
	captured := Logger()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Infof("worker %d line %d", i, j)
				captured.Info("captured", "worker", i)
			}
		}(i)
	}
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			Setup("info", "json", false)
		} else {
			Setup("info", "text", false)
		}
	}
	wg.Wait()

	Setup("error", "json", false)
	captured.Warn("stale logger below level")
	if strings.Contains(Dump(), "stale logger below level") {
		t.Fatalf("captured logger should follow the new level")
	}
	captured.Error("stale logger still in ring")
	if !strings.Contains(Dump(), "stale logger still in ring") {
		t.Fatalf("captured logger should still write to the ring")
	}
	if Logger() == captured {
		t.Fatalf("Setup should install a new logger")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("WARNING") != slog.LevelWarn || ParseLevel("bogus") != slog.LevelInfo {
		t.Fatalf("unexpected level mapping")
	}
}
