package view

import (
	"math/rand"
	"testing"
)

func TestWindowInitialRange(t *testing.T) {
	w := NewWindow(60, 600, 2)
	w.SetCount(1000)
	if r := w.Range(); r != (Range{0, 12}) {
		t.Fatalf("range = %+v", r)
	}
	if w.OffsetForRange() != 0 || w.TotalExtent() != 60000 {
		t.Fatalf("offset=%d extent=%d", w.OffsetForRange(), w.TotalExtent())
	}
}

func TestWindowScrolledRange(t *testing.T) {
	w := NewWindow(60, 600, 2)
	w.SetCount(1000)
	w.ScrollTo(6030) // item 100, half scrolled
	r := w.Range()
	if r.Start != 98 || r.End != 113 {
		t.Fatalf("range = %+v", r)
	}
	if w.OffsetForRange() != 98*60 {
		t.Fatalf("offsetForRange = %d", w.OffsetForRange())
	}
}

func TestWindowEmpty(t *testing.T) {
	w := NewWindow(0, 600, 3)
	if w.ItemHeight() != 1 {
		t.Fatalf("item height must stay positive")
	}
	if r := w.Range(); r.Len() != 0 {
		t.Fatalf("range = %+v", r)
	}
	if w.TotalExtent() != 0 || w.Offset() != 0 {
		t.Fatalf("empty window should have no extent")
	}
}

func TestWindowShrinkClampsOffset(t *testing.T) {
	w := NewWindow(60, 600, 2)
	w.SetCount(1000)
	w.ScrollTo(50000)
	w.SetCount(40)
	if w.Offset() != 40*60-600 {
		t.Fatalf("offset = %d", w.Offset())
	}
	if r := w.Range(); r.End != 40 {
		t.Fatalf("range = %+v", r)
	}
	w.SetCount(3)
	if w.Offset() != 0 {
		t.Fatalf("offset = %d", w.Offset())
	}
}

func TestWindowRangeBoundsProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		ih := rng.Intn(100) + 1
		w := NewWindow(ih, rng.Intn(2000), rng.Intn(10))
		n := rng.Intn(5000)
		w.SetCount(n)
		w.ScrollTo(rng.Intn(n*ih + 1000))
		r := w.Range()
		if r.Start < 0 || r.Start > r.End || r.End > n {
			t.Fatalf("bad range %+v for n=%d", r, n)
		}

		shrunk := rng.Intn(n + 1)
		if shrunk < w.Offset()/ih {
			w.SetCount(shrunk)
			if shrunk > 0 && w.Range().End != shrunk {
				t.Fatalf("after shrink to %d range = %+v", shrunk, w.Range())
			}
		}
	}
}

func TestCenterOn(t *testing.T) {
	w := NewWindow(60, 600, 0)
	w.SetCount(1000)
	w.CenterOn(100)
	if w.Offset() != 100*60-300+30 {
		t.Fatalf("offset = %d", w.Offset())
	}
	if !w.Visible().Contains(100) {
		t.Fatalf("centered item not visible")
	}
	w.CenterOn(2)
	if w.Offset() != 0 {
		t.Fatalf("offset = %d", w.Offset())
	}
	w.CenterOn(999)
	if w.Offset() != w.MaxOffset() {
		t.Fatalf("offset = %d, max %d", w.Offset(), w.MaxOffset())
	}
}

func TestEnsureVisible(t *testing.T) {
	w := NewWindow(1, 10, 0)
	w.SetCount(100)
	w.EnsureVisible(15)
	if w.Offset() != 6 {
		t.Fatalf("offset = %d", w.Offset())
	}
	w.EnsureVisible(10)
	if w.Offset() != 6 {
		t.Fatalf("visible row should not scroll, offset = %d", w.Offset())
	}
	w.EnsureVisible(2)
	if w.Offset() != 2 {
		t.Fatalf("offset = %d", w.Offset())
	}
}

func TestResizeClamps(t *testing.T) {
	w := NewWindow(1, 10, 0)
	w.SetCount(20)
	w.ScrollTo(10)
	w.Resize(15)
	if w.Offset() != 5 {
		t.Fatalf("offset = %d", w.Offset())
	}
}
