package main

import (
	"testing"
	"time"
)

func TestGeneratorRowsMatchHeader(t *testing.T) {
	g := newGenerator(1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	g.dupRatio, g.badRatio = 0.2, 0.1
	for i := 0; i < 200; i++ {
		if row := g.next(); len(row) != len(header) {
			t.Fatalf("row %d has %d fields, want %d", i, len(row), len(header))
		}
	}
}

func TestRevisionKeepsIDWithLaterUpdate(t *testing.T) {
	g := newGenerator(7, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	orig := g.next()
	rev := g.revision()
	if rev[11] != orig[11] {
		t.Fatalf("revision id = %s, want %s", rev[11], orig[11])
	}
	if rev[12] <= orig[12] {
		t.Fatalf("revision updated %s not after %s", rev[12], orig[12])
	}
	if rev[19] != "reviewed" {
		t.Fatalf("revision status = %s", rev[19])
	}
}

func TestEventsAdvanceInTime(t *testing.T) {
	g := newGenerator(3, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	prev := ""
	for i := 0; i < 50; i++ {
		row := g.event()
		if row[0] <= prev {
			t.Fatalf("time %s not after %s", row[0], prev)
		}
		prev = row[0]
	}
}
