package view

// Range is the half-open index range [Start, End) materialized for rendering.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r Range) Len() int { return r.End - r.Start }

func (r Range) Contains(i int) bool { return i >= r.Start && i < r.End }

// Window virtualizes a slice of n items of fixed height inside a container.
// Offsets and heights share one unit: pixels in a browser, rows in the TUI.
type Window struct {
	offset          int
	itemHeight      int
	containerHeight int
	overscan        int
	count           int
}

func NewWindow(itemHeight, containerHeight, overscan int) *Window {
	w := &Window{}
	w.SetItemHeight(itemHeight)
	w.Resize(containerHeight)
	w.SetOverscan(overscan)
	return w
}

func (w *Window) Offset() int          { return w.offset }
func (w *Window) ItemHeight() int      { return w.itemHeight }
func (w *Window) ContainerHeight() int { return w.containerHeight }
func (w *Window) Overscan() int        { return w.overscan }
func (w *Window) Count() int           { return w.count }

// SetItemHeight changes the row height; values below 1 become 1.
func (w *Window) SetItemHeight(h int) {
	if h < 1 {
		h = 1
	}
	w.itemHeight = h
	w.clamp()
}

func (w *Window) SetOverscan(n int) {
	w.overscan = max(0, n)
}

// Range returns the window including overscan.
func (w *Window) Range() Range {
	if w.count == 0 {
		return Range{}
	}
	start := max(0, w.offset/w.itemHeight-w.overscan)
	end := min(w.count, ceilDiv(w.offset+w.containerHeight, w.itemHeight)+w.overscan)
	if end < start {
		end = start
	}
	return Range{Start: start, End: end}
}

// Visible returns the strictly visible range, without overscan.
func (w *Window) Visible() Range {
	if w.count == 0 {
		return Range{}
	}
	start := min(w.count, w.offset/w.itemHeight)
	end := min(w.count, ceilDiv(w.offset+w.containerHeight, w.itemHeight))
	return Range{Start: start, End: max(start, end)}
}

// OffsetForRange is the translation placing the materialized range at its
// absolute position.
func (w *Window) OffsetForRange() int { return w.Range().Start * w.itemHeight }

// TotalExtent is the full scrollable height.
func (w *Window) TotalExtent() int { return w.count * w.itemHeight }

// MaxOffset is the largest offset that still fills the container.
func (w *Window) MaxOffset() int {
	return max(0, w.count*w.itemHeight-w.containerHeight)
}

// SetCount sets the length of the slice being viewed and clamps the offset
// when it shrinks.
func (w *Window) SetCount(n int) {
	w.count = max(0, n)
	w.clamp()
}

// ScrollTo sets the offset, clamped to [0, MaxOffset].
func (w *Window) ScrollTo(offset int) {
	w.offset = offset
	w.clamp()
}

func (w *Window) ScrollBy(delta int) { w.ScrollTo(w.offset + delta) }

// Resize changes the container height.
func (w *Window) Resize(containerHeight int) {
	w.containerHeight = max(0, containerHeight)
	w.clamp()
}

// CenterOn scrolls so item i sits in the middle of the container.
func (w *Window) CenterOn(i int) {
	w.ScrollTo(max(0, i*w.itemHeight-w.containerHeight/2+w.itemHeight/2))
}

// EnsureVisible scrolls the minimum amount to bring item i fully on screen.
func (w *Window) EnsureVisible(i int) {
	if i < 0 || i >= w.count {
		return
	}
	top := i * w.itemHeight
	bottom := top + w.itemHeight
	switch {
	case top < w.offset:
		w.ScrollTo(top)
	case bottom > w.offset+w.containerHeight:
		w.ScrollTo(bottom - w.containerHeight)
	}
}

func (w *Window) clamp() {
	w.offset = max(0, min(w.offset, w.MaxOffset()))
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
