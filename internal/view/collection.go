package view

import (
	"fmt"
	"slices"

	"quakeview/internal/model"
)

// Debug makes invariant violations panic. Tests and development builds set it.
var Debug bool

// Comparator orders records; it must be a pure function.
type Comparator func(a, b model.Record) int

// Predicate keeps records for which it returns true; nil keeps everything.
type Predicate func(r model.Record) bool

// ApplyResult summarizes one Apply batch.
type ApplyResult struct {
	Added    int
	Replaced int
	Ignored  int // duplicates not newer than the stored record
}

// Collection is the deduplicated, filtered and sorted record set shared by
// every view. All mutation goes through Apply, SetComparator, SetPredicate
// and Reset; each rebuilds the id index exactly once.
type Collection struct {
	all []model.Record // deduplicated, insertion order
	pos map[string]int // id -> index in all

	records []model.Record // filtered + sorted
	index   map[string]int // id -> index in records

	cmp     Comparator
	pred    Predicate
	version uint64
}

func NewCollection(cmp Comparator, pred Predicate) *Collection {
	return &Collection{
		pos:   map[string]int{},
		index: map[string]int{},
		cmp:   cmp,
		pred:  pred,
	}
}

// Apply merges a chunk. A record replaces a stored one with the same id only
// when its Updated is strictly newer; otherwise the first seen is kept.
func (c *Collection) Apply(chunk model.Chunk) ApplyResult {
	var res ApplyResult
	var fresh []model.Record
	freshPos := map[string]int{}
	for _, r := range chunk.Records {
		i, ok := c.pos[r.ID]
		if !ok {
			c.pos[r.ID] = len(c.all)
			c.all = append(c.all, r)
			freshPos[r.ID] = len(fresh)
			fresh = append(fresh, r)
			res.Added++
			continue
		}
		if !r.NewerThan(c.all[i]) {
			res.Ignored++
			continue
		}
		c.all[i] = r
		if j, ok := freshPos[r.ID]; ok {
			// newer duplicate of a record first seen in this same batch
			fresh[j] = r
			continue
		}
		res.Replaced++
	}
	switch {
	case res.Replaced > 0:
		c.recompute()
	case len(fresh) > 0:
		c.merge(fresh)
	default:
		return res
	}
	c.version++
	return res
}

// merge folds new, unseen records into the ordered slice without a full sort.
func (c *Collection) merge(fresh []model.Record) {
	keep := fresh[:0:0]
	for _, r := range fresh {
		if c.pred == nil || c.pred(r) {
			keep = append(keep, r)
		}
	}
	if len(keep) == 0 {
		return
	}
	if c.cmp == nil {
		c.records = append(c.records, keep...)
		c.reindex()
		return
	}
	slices.SortStableFunc(keep, c.cmp)
	out := make([]model.Record, 0, len(c.records)+len(keep))
	i, j := 0, 0
	for i < len(c.records) && j < len(keep) {
		if c.cmp(keep[j], c.records[i]) < 0 {
			out = append(out, keep[j])
			j++
		} else {
			out = append(out, c.records[i])
			i++
		}
	}
	out = append(out, c.records[i:]...)
	out = append(out, keep[j:]...)
	c.records = out
	c.reindex()
}

func (c *Collection) recompute() {
	out := make([]model.Record, 0, len(c.all))
	for _, r := range c.all {
		if c.pred == nil || c.pred(r) {
			out = append(out, r)
		}
	}
	if c.cmp != nil {
		slices.SortStableFunc(out, c.cmp)
	}
	c.records = out
	c.reindex()
}

func (c *Collection) reindex() {
	c.index = make(map[string]int, len(c.records))
	for i, r := range c.records {
		c.index[r.ID] = i
	}
	if Debug {
		c.check()
	}
}

// check panics if the index and the ordered slice disagree or the order is
// not consistent with the comparator.
func (c *Collection) check() {
	if len(c.index) != len(c.records) {
		panic(fmt.Sprintf("view: index has %d ids for %d records", len(c.index), len(c.records)))
	}
	for i, r := range c.records {
		if c.index[r.ID] != i {
			panic(fmt.Sprintf("view: index[%q]=%d, want %d", r.ID, c.index[r.ID], i))
		}
		if c.cmp != nil && i > 0 && c.cmp(c.records[i-1], r) > 0 {
			panic(fmt.Sprintf("view: records %d and %d out of order", i-1, i))
		}
	}
}

func (c *Collection) SetComparator(cmp Comparator) {
	c.cmp = cmp
	c.recompute()
	c.version++
}

func (c *Collection) SetPredicate(pred Predicate) {
	c.pred = pred
	c.recompute()
	c.version++
}

// Reset drops every record but keeps the comparator and predicate.
func (c *Collection) Reset() {
	c.all = nil
	c.pos = map[string]int{}
	c.records = nil
	c.index = map[string]int{}
	c.version++
}

// Query returns the record at position i of the ordered view.
func (c *Collection) Query(i int) (model.Record, bool) {
	if i < 0 || i >= len(c.records) {
		return model.Record{}, false
	}
	return c.records[i], true
}

// IndexOf returns the position of id in the ordered view, or -1.
func (c *Collection) IndexOf(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// Get looks a record up by id, including records the predicate hides.
func (c *Collection) Get(id string) (model.Record, bool) {
	i, ok := c.pos[id]
	if !ok {
		return model.Record{}, false
	}
	return c.all[i], true
}

// Len is the number of records in the filtered view.
func (c *Collection) Len() int { return len(c.records) }

// Total is the number of distinct ids, ignoring the predicate.
func (c *Collection) Total() int { return len(c.all) }

// Slice returns records[start:end] clamped to bounds. Callers must not modify it.
func (c *Collection) Slice(start, end int) []model.Record {
	start = max(0, min(start, len(c.records)))
	end = max(start, min(end, len(c.records)))
	return c.records[start:end]
}

// Records returns the whole ordered view. Callers must not modify it.
func (c *Collection) Records() []model.Record { return c.records }

// Version increases on every mutation.
func (c *Collection) Version() uint64 { return c.version }
