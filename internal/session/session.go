package session

import (
	"context"
	"time"

	"quakeview/internal/filter"
	"quakeview/internal/ingest"
	"quakeview/internal/model"
	"quakeview/internal/util/logx"
	"quakeview/internal/view"
)

type State string

const (
	StateIdle     State = "idle"
	StateLoading  State = "loading"
	StateComplete State = "complete"
	StateFailed   State = "failed"
)

// Status describes the current generation for status bars and the API.
type Status struct {
	Gen         uint64               `json:"gen"`
	RunID       string               `json:"runId,omitempty"`
	Source      string               `json:"source,omitempty"`
	State       State                `json:"state"`
	Follow      bool                 `json:"follow"`
	RowsSeen    int                  `json:"rowsSeen"`
	Rejected    int                  `json:"rejected"`
	Records     int                  `json:"records"`
	Total       int                  `json:"total"`
	Bytes       int64                `json:"bytes"`
	Warning     *model.RejectWarning `json:"warning,omitempty"`
	Err         string               `json:"error,omitempty"`
	UpdatedAt   time.Time            `json:"updatedAt"`
	CompletedAt time.Time            `json:"completedAt,omitempty"`
}

// Frame is everything a rendering surface needs for one paint.
type Frame struct {
	VisibleSlice   []model.Record `json:"visibleSlice"`
	SliceStart     int            `json:"sliceStart"` // collection index of the first item in the viewed slice
	Range          view.Range     `json:"range"`
	OffsetForRange int            `json:"offsetForRange"`
	TotalExtent    int            `json:"totalExtent"`
	ScrollOffset   int            `json:"scrollOffset"`
	Paginated      bool           `json:"paginated"`
	CurrentPage    int            `json:"currentPage"`
	TotalPages     int            `json:"totalPages"`
	Selection      view.Selection `json:"selection"`
	SortField      string         `json:"sortField"`
	SortDesc       bool           `json:"sortDesc"`
	Status         Status         `json:"status"`
}

type Options struct {
	Paginate        bool
	PageSize        int
	ItemHeight      int
	ContainerHeight int
	Overscan        int
	SortField       string
	SortDesc        bool
	Ingest          ingest.Options
}

// Session owns the collection, paginator, window and selection for one
// catalog and applies ingestion events to them. It is not safe for
// concurrent use; callers serialize access.
type Session struct {
	coll  *view.Collection
	pager *view.Paginator
	win   *view.Window
	coord *view.Coordinator
	ing   *ingest.Ingestor

	stream         *ingest.Stream
	source         ingest.Source
	gen            uint64
	replacePending bool
	status         Status

	sortField string
	sortDesc  bool
	criteria  filter.Criteria
	now       func() time.Time
}

func New(opts Options) *Session {
	if opts.SortField == "" {
		opts.SortField = model.FieldTime
	}
	coll := view.NewCollection(filter.Comparator(opts.SortField, opts.SortDesc), nil)
	pager := view.NewPaginator(opts.PageSize)
	win := view.NewWindow(opts.ItemHeight, opts.ContainerHeight, opts.Overscan)
	return &Session{
		coll:      coll,
		pager:     pager,
		win:       win,
		coord:     view.NewCoordinator(coll, pager, win, opts.Paginate),
		ing:       ingest.New(opts.Ingest),
		status:    Status{State: StateIdle},
		sortField: opts.SortField,
		sortDesc:  opts.SortDesc,
		now:       time.Now,
	}
}

func (s *Session) Collection() *view.Collection   { return s.coll }
func (s *Session) Coordinator() *view.Coordinator { return s.coord }
func (s *Session) Window() *view.Window           { return s.win }
func (s *Session) Paginator() *view.Paginator     { return s.pager }
func (s *Session) Stream() *ingest.Stream         { return s.stream }
func (s *Session) Source() ingest.Source          { return s.source }
func (s *Session) Status() Status                 { return s.status }
func (s *Session) Criteria() filter.Criteria      { return s.criteria }

// Load starts a new generation reading src. With replace set, existing
// records are dropped when the first chunk of the new generation arrives, so
// a failed load keeps the previous data.
func (s *Session) Load(ctx context.Context, src ingest.Source, replace bool) *ingest.Stream {
	s.stream = s.ing.Start(ctx, src)
	s.source = src
	s.gen = s.stream.Gen()
	s.replacePending = replace
	s.status = Status{
		Gen:       s.gen,
		RunID:     s.stream.RunID(),
		Source:    src.Name(),
		State:     StateLoading,
		Follow:    s.stream.Follows(),
		Records:   s.coll.Len(),
		Total:     s.coll.Total(),
		UpdatedAt: s.now(),
	}
	return s.stream
}

type oneShot interface{ OneShot() bool }

// CanRefresh reports whether the last source can be read again.
func (s *Session) CanRefresh() bool {
	if s.source == nil {
		return false
	}
	if o, ok := s.source.(oneShot); ok && o.OneShot() {
		return false
	}
	return true
}

// Refresh reloads the last source as a new generation and merges the result
// into the current records. It returns nil when nothing was loaded or the
// source cannot be read twice.
func (s *Session) Refresh(ctx context.Context) *ingest.Stream {
	if !s.CanRefresh() {
		return nil
	}
	if inv, ok := s.source.(interface{ Invalidate() }); ok {
		inv.Invalidate()
	}
	return s.Load(ctx, s.source, false)
}

// Stop cancels the in-flight generation.
func (s *Session) Stop() { s.ing.Stop() }

// Handle applies ev if it belongs to the current generation and reports
// whether it did. Events from older generations are dropped.
func (s *Session) Handle(ev ingest.Event) bool {
	if s.stream == nil || ev.Gen != s.gen {
		logx.Debugf("session: drop %s event from stale gen=%d (current %d)", ev.Kind, ev.Gen, s.gen)
		return false
	}
	if s.status.State != StateLoading {
		// terminal already applied; Next repeats it
		return false
	}
	s.status.RowsSeen = ev.RowsSeen
	s.status.Rejected = ev.Rejected
	s.status.Bytes = s.stream.BytesRead()
	s.status.UpdatedAt = s.now()
	switch ev.Kind {
	case ingest.KindChunk:
		if s.replacePending {
			s.coll.Reset()
			s.pager.Reset()
			s.win.ScrollTo(0)
			s.replacePending = false
		}
		res := s.coll.Apply(ev.Chunk)
		if ev.Chunk.Warning != nil {
			s.status.Warning = ev.Chunk.Warning
		}
		logx.Debugf("session: gen=%d chunk +%d ~%d =%d", ev.Gen, res.Added, res.Replaced, res.Ignored)
		s.sync()
	case ingest.KindComplete:
		s.status.State = StateComplete
		s.status.CompletedAt = s.status.UpdatedAt
	case ingest.KindFailed:
		s.status.State = StateFailed
		s.status.Err = ev.Err.Error()
		s.replacePending = false
	}
	s.status.Records = s.coll.Len()
	s.status.Total = s.coll.Total()
	return true
}

// Pump pulls and applies events from the current stream until it ends.
func (s *Session) Pump(ctx context.Context) ingest.Event {
	for {
		ev := s.stream.Next(ctx)
		s.Handle(ev)
		if ev.Terminal() {
			return ev
		}
	}
}

// sync propagates a collection change to the paginator, window and selection.
func (s *Session) sync() {
	s.pager.SetCount(s.coll.Len())
	if s.coord.Paginated() {
		s.win.SetCount(s.pager.Current().Len())
	} else {
		s.win.SetCount(s.coll.Len())
	}
	s.coord.Refresh()
}

// SetSort changes the ordering and returns to the first page.
func (s *Session) SetSort(field string, desc bool) {
	s.sortField, s.sortDesc = field, desc
	s.coll.SetComparator(filter.Comparator(field, desc))
	s.resetPosition()
}

func (s *Session) Sort() (string, bool) { return s.sortField, s.sortDesc }

// SetFilter compiles c into the collection predicate and returns to the
// first page.
func (s *Session) SetFilter(c filter.Criteria) error {
	pred, err := filter.Predicate(c)
	if err != nil {
		return err
	}
	s.criteria = c
	s.coll.SetPredicate(pred)
	s.resetPosition()
	return nil
}

func (s *Session) resetPosition() {
	s.pager.Reset()
	s.win.ScrollTo(0)
	s.sync()
}

// SetPaginated switches between one virtualized list and fixed-size pages.
func (s *Session) SetPaginated(on bool) {
	s.coord.SetPaginated(on)
	s.resetPosition()
}

func (s *Session) SetPageSize(n int) {
	s.pager.SetPageSize(n)
	s.sync()
}

func (s *Session) GoToPage(p int) int {
	n := s.pager.GoToPage(p)
	s.win.ScrollTo(0)
	s.sync()
	return n
}

func (s *Session) NextPage() bool {
	ok := s.pager.NextPage()
	if ok {
		s.win.ScrollTo(0)
		s.sync()
	}
	return ok
}

func (s *Session) PreviousPage() bool {
	ok := s.pager.PreviousPage()
	if ok {
		s.win.ScrollTo(0)
		s.sync()
	}
	return ok
}

func (s *Session) Scroll(offset int) {
	s.win.ScrollTo(offset)
	s.coord.Refresh()
}

func (s *Session) ScrollBy(delta int) {
	s.win.ScrollBy(delta)
	s.coord.Refresh()
}

func (s *Session) Resize(containerHeight int) {
	s.win.Resize(containerHeight)
	s.coord.Refresh()
}

// Select routes a row activation from view src through the coordinator.
func (s *Session) Select(id string, src view.Source) view.Reposition {
	return s.coord.Select(id, src)
}

// MarkRendered records that view src painted the current window.
func (s *Session) MarkRendered(src view.Source) { s.coord.MarkRendered(src) }

func (s *Session) ClearSelection() { s.coord.ClearSelection() }

// MoveCursor moves the selection by delta rows within the filtered view on
// behalf of src, scrolling just enough to keep it on screen.
func (s *Session) MoveCursor(delta int, src view.Source) {
	n := s.coll.Len()
	if n == 0 {
		return
	}
	idx := s.coord.Selection().Index
	if idx < 0 {
		idx = s.coord.SliceStart() + s.win.Visible().Start
		delta = 0
	}
	idx = max(0, min(n-1, idx+delta))
	if s.coord.Paginated() {
		if p := s.pager.PageContaining(idx); p != s.pager.Current().Number {
			s.pager.GoToPage(p)
			s.win.SetCount(s.pager.Current().Len())
		}
	}
	s.win.EnsureVisible(idx - s.coord.SliceStart())
	s.coord.MarkRendered(src)
	r, _ := s.coll.Query(idx)
	s.coord.Select(r.ID, src)
}

// Frame snapshots the current window for rendering.
func (s *Session) Frame() Frame {
	r := s.win.Range()
	start := s.coord.SliceStart()
	return Frame{
		VisibleSlice:   s.coll.Slice(start+r.Start, start+r.End),
		SliceStart:     start,
		Range:          r,
		OffsetForRange: s.win.OffsetForRange(),
		TotalExtent:    s.win.TotalExtent(),
		ScrollOffset:   s.win.Offset(),
		Paginated:      s.coord.Paginated(),
		CurrentPage:    s.pager.Current().Number,
		TotalPages:     s.pager.TotalPages(),
		Selection:      s.coord.Selection(),
		SortField:      s.sortField,
		SortDesc:       s.sortDesc,
		Status:         s.status,
	}
}

// Selected returns the selected record if it is in the filtered view.
func (s *Session) Selected() (model.Record, bool) {
	sel := s.coord.Selection()
	if !sel.Present {
		return model.Record{}, false
	}
	return s.coll.Query(sel.Index)
}
