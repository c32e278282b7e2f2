package ui

import (
	"regexp"
	"strings"

	"quakeview/internal/filter"
	"quakeview/internal/model"
	"quakeview/internal/view"
)

func (m *Model) searchNext() { m.searchStep(1) }

func (m *Model) searchPrev() { m.searchStep(-1) }

// searchStep selects the next match after (dir=1) or before (dir=-1) the
// current selection, wrapping around the filtered view.
func (m *Model) searchStep(dir int) {
	if !m.searchActive || m.searchPattern == "" {
		return
	}
	match := m.matcher()
	records := m.sess.Collection().Records()
	n := len(records)
	if n == 0 {
		return
	}
	cur := m.sess.Coordinator().Selection().Index
	start := cur + dir
	if cur < 0 {
		start = 0
		if dir < 0 {
			start = n - 1
		}
	}
	for i := 0; i < n; i++ {
		idx := ((start+dir*i)%n + n) % n
		if match(records[idx]) {
			m.sess.Select(records[idx].ID, view.SourcePrimary)
			return
		}
	}
	m.lastMsg = "no match for " + m.searchPattern
}

func (m *Model) matcher() func(model.Record) bool {
	if m.searchRegex {
		re, err := regexp.Compile(m.searchPattern)
		if err != nil {
			m.lastMsg = "bad regex: " + err.Error()
			return func(model.Record) bool { return false }
		}
		return func(r model.Record) bool { return re.MatchString(searchText(r)) }
	}
	needle := strings.ToLower(m.searchPattern)
	return func(r model.Record) bool {
		return strings.Contains(strings.ToLower(searchText(r)), needle)
	}
}

func searchText(r model.Record) string {
	return strings.Join([]string{r.ID, r.Place, r.Net, r.MagType, r.Status, r.EventType,
		filter.Text(r, model.FieldMag)}, " ")
}
