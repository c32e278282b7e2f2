package view

// Source identifies which view initiated a selection.
type Source int

const (
	SourceNone Source = iota
	SourcePrimary
	SourceSecondary
)

func (s Source) String() string {
	switch s {
	case SourcePrimary:
		return "primary"
	case SourceSecondary:
		return "secondary"
	}
	return "none"
}

func (s Source) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Source) UnmarshalText(b []byte) error {
	*s = ParseSource(string(b))
	return nil
}

// ParseSource maps "primary"/"secondary" to a Source; anything else is SourceNone.
func ParseSource(s string) Source {
	switch s {
	case "primary":
		return SourcePrimary
	case "secondary":
		return SourceSecondary
	}
	return SourceNone
}

// Selection is replaced atomically on every change.
type Selection struct {
	ID      string `json:"id,omitempty"`
	Source  Source `json:"source"`
	Present bool   `json:"present"` // id is in the filtered view
	Visible bool   `json:"visible"` // and inside the visible window
	Index   int    `json:"index"`   // position in the filtered view, -1 when absent
	Version uint64 `json:"version"`
}

// Reposition describes what Select did to the window.
type Reposition struct {
	PageChanged bool `json:"pageChanged"`
	Page        int  `json:"page,omitempty"`
	Offset      int  `json:"offset"`
	Moved       bool `json:"moved"`
	Suppressed  bool `json:"suppressed"` // the initiating view already shows the record
}

// Coordinator keeps the selection consistent across views and moves the
// shared window and paginator to reveal the selected record.
type Coordinator struct {
	coll      *Collection
	pager     *Paginator
	win       *Window
	paginated bool

	state      Selection
	renderedBy Source
	subs       map[Source][]*subscriber
	version    uint64
}

type subscriber struct {
	fn func(Selection)
}

func NewCoordinator(coll *Collection, pager *Paginator, win *Window, paginated bool) *Coordinator {
	return &Coordinator{
		coll:      coll,
		pager:     pager,
		win:       win,
		paginated: paginated,
		state:     Selection{Index: -1},
		subs:      map[Source][]*subscriber{},
	}
}

func (c *Coordinator) SetPaginated(on bool) { c.paginated = on }

func (c *Coordinator) Paginated() bool { return c.paginated }

// MarkRendered records which view last drew the current window.
func (c *Coordinator) MarkRendered(src Source) { c.renderedBy = src }

func (c *Coordinator) RenderedBy() Source { return c.renderedBy }

// Subscribe registers fn for selection changes on behalf of view src and
// returns a function that removes it.
func (c *Coordinator) Subscribe(src Source, fn func(Selection)) func() {
	s := &subscriber{fn: fn}
	c.subs[src] = append(c.subs[src], s)
	return func() {
		list := c.subs[src]
		for i, x := range list {
			if x == s {
				c.subs[src] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

func (c *Coordinator) Selection() Selection { return c.state }

// Version increases on every selection change.
func (c *Coordinator) Version() uint64 { return c.version }

// Select makes id the selection on behalf of src and repositions the window
// so the record is shown, unless src already shows it.
func (c *Coordinator) Select(id string, src Source) Reposition {
	c.version++
	c.state = Selection{ID: id, Source: src, Index: c.coll.IndexOf(id), Version: c.version}
	if c.state.Index < 0 {
		c.notify(SourceNone)
		return Reposition{}
	}
	c.state.Present = true

	if src != SourceNone && src == c.renderedBy && c.visible(c.state.Index) {
		c.state.Visible = true
		c.notify(src)
		return Reposition{Suppressed: true}
	}

	var rep Reposition
	if c.paginated {
		target := c.pager.PageContaining(c.state.Index)
		if target != c.pager.Current().Number {
			c.pager.GoToPage(target)
			c.win.SetCount(c.pager.Current().Len())
			c.win.ScrollTo(0)
			rep.PageChanged = true
		} else {
			c.win.CenterOn(c.state.Index - c.pager.Current().Start)
		}
		rep.Page = c.pager.Current().Number
	} else {
		c.win.CenterOn(c.state.Index)
	}
	rep.Offset = c.win.Offset()
	rep.Moved = true
	c.state.Visible = c.visible(c.state.Index)
	c.notify(SourceNone)
	return rep
}

// ClearSelection drops the selection without touching the window.
func (c *Coordinator) ClearSelection() {
	c.version++
	c.state = Selection{Index: -1, Version: c.version}
	c.notify(SourceNone)
}

// Refresh recomputes presence and visibility after the collection, page or
// window changed. Subscribers hear about it only when something changed.
func (c *Coordinator) Refresh() {
	if c.state.ID == "" {
		return
	}
	idx := c.coll.IndexOf(c.state.ID)
	present := idx >= 0
	visible := present && c.visible(idx)
	if idx == c.state.Index && present == c.state.Present && visible == c.state.Visible {
		return
	}
	c.version++
	c.state.Index, c.state.Present, c.state.Visible, c.state.Version = idx, present, visible, c.version
	c.notify(SourceNone)
}

// SliceStart is the collection index of the first item in the viewed slice.
func (c *Coordinator) SliceStart() int {
	if c.paginated {
		return c.pager.Current().Start
	}
	return 0
}

func (c *Coordinator) visible(idx int) bool {
	local := idx
	if c.paginated {
		p := c.pager.Current()
		if idx < p.Start || idx >= p.End {
			return false
		}
		local = idx - p.Start
	}
	return c.win.Visible().Contains(local)
}

// notify calls every subscriber except those registered for skip.
func (c *Coordinator) notify(skip Source) {
	for src, list := range c.subs {
		if skip != SourceNone && src == skip {
			continue
		}
		for _, s := range list {
			s.fn(c.state)
		}
	}
}
