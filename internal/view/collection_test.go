package view

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"quakeview/internal/model"
)

func TestMain(m *testing.M) {
	Debug = true
	os.Exit(m.Run())
}

var base = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func quake(id string, mag float64, updatedMin int) model.Record {
	return model.Record{
		ID:        id,
		Time:      base,
		Magnitude: mag,
		Updated:   base.Add(time.Duration(updatedMin) * time.Minute),
	}
}

func byMagDesc(a, b model.Record) int {
	switch {
	case a.Magnitude > b.Magnitude:
		return -1
	case a.Magnitude < b.Magnitude:
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}

func ids(recs []model.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func chunk(recs ...model.Record) model.Chunk { return model.Chunk{Records: recs} }

func TestApplySortsAndIndexes(t *testing.T) {
	c := NewCollection(byMagDesc, nil)
	c.Apply(chunk(quake("a", 2, 0), quake("b", 5, 0)))
	c.Apply(chunk(quake("c", 3, 0), quake("d", 6, 0)))
	if diff := cmp.Diff([]string{"d", "b", "c", "a"}, ids(c.Records())); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	for i := 0; i < c.Len(); i++ {
		r, ok := c.Query(i)
		if !ok || c.IndexOf(r.ID) != i {
			t.Fatalf("query/indexOf disagree at %d", i)
		}
	}
	if c.IndexOf("zzz") != -1 {
		t.Fatalf("absent id should be -1")
	}
}

func TestApplyKeepsLatestUpdated(t *testing.T) {
	c := NewCollection(byMagDesc, nil)
	c.Apply(chunk(quake("x", 3, 10)))

	res := c.Apply(chunk(quake("x", 4, 5)))
	if res.Ignored != 1 || c.Len() != 1 {
		t.Fatalf("older duplicate should be ignored: %+v", res)
	}
	if r, _ := c.Query(0); r.Magnitude != 3 {
		t.Fatalf("older record replaced the newer one")
	}

	res = c.Apply(chunk(quake("x", 4.5, 20)))
	if res.Replaced != 1 || c.Len() != 1 {
		t.Fatalf("newer duplicate should replace: %+v", res)
	}
	if r, _ := c.Query(0); r.Magnitude != 4.5 {
		t.Fatalf("got mag %v, want 4.5", r.Magnitude)
	}

	res = c.Apply(chunk(quake("x", 9, 20)))
	if res.Ignored != 1 {
		t.Fatalf("equal updated should keep the first seen: %+v", res)
	}
}

func TestApplyDuplicateWithinChunk(t *testing.T) {
	c := NewCollection(byMagDesc, nil)
	c.Apply(chunk(quake("y", 1, 0), quake("y", 2, 1), quake("y", 3, 0)))
	if c.Len() != 1 || c.Total() != 1 {
		t.Fatalf("len=%d total=%d", c.Len(), c.Total())
	}
	if r, _ := c.Query(0); r.Magnitude != 2 {
		t.Fatalf("got mag %v, want 2", r.Magnitude)
	}
}

func TestPredicateAndComparatorRecompute(t *testing.T) {
	c := NewCollection(byMagDesc, nil)
	var recs []model.Record
	for i := 0; i < 1000; i++ {
		recs = append(recs, quake(fmt.Sprintf("q%04d", i), float64(i%100)/10, 0))
	}
	c.Apply(model.Chunk{Records: recs})
	v := c.Version()

	c.SetPredicate(func(r model.Record) bool { return r.Magnitude >= 9.6 })
	if c.Len() != 40 || c.Total() != 1000 {
		t.Fatalf("len=%d total=%d", c.Len(), c.Total())
	}
	if c.Version() == v {
		t.Fatalf("version should advance")
	}

	c.SetComparator(func(a, b model.Record) int { return strings.Compare(a.ID, b.ID) })
	if r, _ := c.Query(0); r.ID != "q0096" {
		t.Fatalf("first = %s", r.ID)
	}

	c.Apply(chunk(quake("late", 9.9, 0), quake("low", 1, 0)))
	if c.IndexOf("late") < 0 || c.IndexOf("low") != -1 {
		t.Fatalf("new records must pass through the predicate")
	}
	if _, ok := c.Get("low"); !ok {
		t.Fatalf("filtered record should still be stored")
	}
}

func TestSliceClamps(t *testing.T) {
	c := NewCollection(byMagDesc, nil)
	c.Apply(chunk(quake("a", 1, 0), quake("b", 2, 0)))
	if got := len(c.Slice(-5, 10)); got != 2 {
		t.Fatalf("slice len = %d", got)
	}
	if got := len(c.Slice(5, 1)); got != 0 {
		t.Fatalf("slice len = %d", got)
	}
}

func TestReset(t *testing.T) {
	c := NewCollection(byMagDesc, nil)
	c.Apply(chunk(quake("a", 1, 0)))
	c.Reset()
	if c.Len() != 0 || c.Total() != 0 || c.IndexOf("a") != -1 {
		t.Fatalf("reset left data behind")
	}
}

func TestCheckPanicsOnCorruptIndex(t *testing.T) {
	c := NewCollection(byMagDesc, nil)
	c.Apply(chunk(quake("a", 1, 0), quake("b", 2, 0)))
	c.index["a"] = 0
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	c.check()
}
