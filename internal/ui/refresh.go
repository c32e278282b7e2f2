package ui

import (
	"slices"

	"quakeview/internal/filter"
	"quakeview/internal/model"
)

// deriveColumns returns the preferred ordering of columns.
func (m *Model) deriveColumns() []string {
	if len(m.cols) == 0 {
		m.cols = model.ColumnOrder(nil)
	}
	return m.cols
}

func (m *Model) visibleColumns(all []string) []string {
	if len(all) == 0 {
		return all
	}
	if m.maxCols <= 0 {
		m.autofitMaxCols()
	}
	if m.colOffset < 0 {
		m.colOffset = 0
	}
	if m.colOffset >= len(all) {
		m.colOffset = max(0, len(all)-m.maxCols)
	}
	end := min(len(all), m.colOffset+m.maxCols)
	return all[m.colOffset:end]
}

// tableWidth is the width left for the primary table.
func (m *Model) tableWidth() int {
	w := m.termWidth
	if w <= 0 {
		w = 120
	}
	if m.showSecondary() {
		w -= secondaryWidth
	}
	return w
}

func (m *Model) showSecondary() bool { return m.termWidth >= minSplitWidth }

// Estimate how many columns fit in the table width.
func (m *Model) autofitMaxCols() {
	all := m.deriveColumns()
	width := m.tableWidth() - 2 // marker and its gutter
	sum, count := 0, 0
	for i := m.colOffset; i < len(all); i++ {
		need := max(typeMin(all[i]), m.colWidthAdj[all[i]]+typeMin(all[i])) + 1
		if sum+need > width {
			break
		}
		sum += need
		count++
	}
	m.maxCols = max(1, count)
}

// computeWidths returns a width per column that fills the table width. Place
// absorbs the slack.
func (m *Model) computeWidths(cols []string) []int {
	if len(cols) == 0 {
		return nil
	}
	base := make([]int, len(cols))
	sum := 0
	for i, c := range cols {
		base[i] = max(headerMinWidth(c, m.colOffset+i == m.selColIdx), columnWidth(c)+m.colWidthAdj[c])
		sum += base[i] + 1
	}
	avail := max(10, m.tableWidth()-2)
	target := slices.Index(cols, model.FieldPlace)
	if target < 0 {
		target = len(cols) - 1
	}
	extra := avail - sum
	switch {
	case extra > 0:
		base[target] += extra
	case extra < 0:
		over := -extra
		for _, i := range append([]int{target}, indexes(len(cols))...) {
			if over <= 0 {
				break
			}
			can := base[i] - headerMinWidth(cols[i], m.colOffset+i == m.selColIdx)
			if can <= 0 {
				continue
			}
			d := min(can, over)
			base[i] -= d
			over -= d
		}
	}
	return base
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// headerMinWidth returns the minimum width to fully render the header text
// including selection markers when selected.
func headerMinWidth(name string, selected bool) int {
	w := len([]rune(name))
	if selected {
		w += 2
	}
	return max(w, typeMin(name))
}

func typeMin(c string) int {
	switch c {
	case model.FieldTime:
		return 19
	case model.FieldMag:
		return 4
	case model.FieldPlace:
		return 16
	case model.FieldID:
		return 10
	default:
		return 6
	}
}

// Preferred default widths per column.
func columnWidth(c string) int {
	switch c {
	case model.FieldTime:
		return 19
	case model.FieldMag, model.FieldNet, model.FieldMagType:
		return 5
	case model.FieldPlace:
		return 36
	case model.FieldDepth:
		return 7
	case model.FieldLatitude, model.FieldLongitude:
		return 9
	case model.FieldID:
		return 12
	case model.FieldUpdated:
		return 14
	default:
		return 8
	}
}

func (m *Model) currentColumn() string {
	all := m.deriveColumns()
	m.selColIdx = max(0, min(m.selColIdx, len(all)-1))
	return all[m.selColIdx]
}

// refreshStrongest rebuilds the secondary list when the collection changed.
func (m *Model) refreshStrongest() {
	coll := m.sess.Collection()
	if coll.Version() == m.strongestVersion && m.strongest != nil {
		return
	}
	m.strongestVersion = coll.Version()
	byMag := filter.Comparator(model.FieldMag, true)
	top := make([]model.Record, 0, strongestCount+1)
	for _, r := range coll.Records() {
		i, _ := slices.BinarySearchFunc(top, r, byMag)
		if i >= strongestCount {
			continue
		}
		top = slices.Insert(top, i, r)
		if len(top) > strongestCount {
			top = top[:strongestCount]
		}
	}
	m.strongest = top
	m.syncStrongestCursor()
}

// syncStrongestCursor follows the shared selection into the secondary list.
func (m *Model) syncStrongestCursor() {
	id := m.sess.Coordinator().Selection().ID
	for i, r := range m.strongest {
		if r.ID == id {
			m.strongestSel = i
			return
		}
	}
	m.strongestSel = max(0, min(m.strongestSel, len(m.strongest)-1))
}
