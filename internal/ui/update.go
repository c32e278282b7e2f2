package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"quakeview/internal/filter"
	"quakeview/internal/model"
	"quakeview/internal/util/logx"
	"quakeview/internal/view"
)

func (m *Model) buildHelpItems() []helpItem {
	km := m.keymap
	return []helpItem{
		{group: "Navigation", text: "Previous row", key: tea.Key{Type: tea.KeyUp}},
		{group: "Navigation", text: "Next row", key: tea.Key{Type: tea.KeyDown}},
		{group: "Navigation", text: "Screen up", key: tea.Key{Type: tea.KeyPgUp}},
		{group: "Navigation", text: "Screen down", key: tea.Key{Type: tea.KeyPgDown}},
		{group: "Navigation", text: "Go to top", key: km.Top},
		{group: "Navigation", text: "Go to bottom", key: km.Bottom},
		{group: "Navigation", text: "Previous column", key: tea.Key{Type: tea.KeyLeft}},
		{group: "Navigation", text: "Next column", key: tea.Key{Type: tea.KeyRight}},
		{group: "Navigation", text: "Switch table / strongest list", key: km.Focus},

		{group: "Pages", text: "Toggle pagination", key: km.Paginate},
		{group: "Pages", text: "Previous page", key: km.PrevPage},
		{group: "Pages", text: "Next page", key: km.NextPage},

		{group: "Columns", text: "Sort by column", key: km.Sort},
		{group: "Columns", text: "Increase column width", key: km.IncColWidth},
		{group: "Columns", text: "Decrease column width", key: km.DecColWidth},

		{group: "Search", text: "Search", key: km.Search},
		{group: "Search", text: "Search next", key: km.SearchNext},
		{group: "Search", text: "Search prev", key: km.SearchPrev},

		{group: "Filter", text: "Filter current column", key: km.Filter},
		{group: "Filter", text: "Filter by expression", key: km.Expr},
		{group: "Filter", text: "Clear filter", key: km.ClearFilter},

		{group: "Selection", text: "Inspect selected event", key: km.Inspect},
		{group: "Selection", text: "Select in strongest list", key: km.Select},
		{group: "Selection", text: "Clear selection", key: km.Clear},
		{group: "Selection", text: "Copy selected event", key: km.CopyRecord},

		{group: "Control", text: "Refresh / retry", key: km.Refresh},
		{group: "Control", text: "Toggle follow", key: km.Follow},
		{group: "Control", text: "Export view", key: km.Export},
		{group: "Control", text: "Application logs", key: km.AppLogs},
		{group: "Control", text: "Help", key: km.Help},
		{group: "Control", text: "Quit", key: km.Quit},
	}
}

// containerRows is the number of table rows that fit under the header.
func (m *Model) containerRows() int {
	// header, sub line, status, help
	return max(1, m.termHeight-4)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	m.refreshStrongest()
	return m, cmd
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.termWidth, m.termHeight = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.sess.Resize(m.containerRows())
		m.autofitMaxCols()
		if m.modalActive {
			m.resizeModal()
		}
		return nil
	case ingestMsg:
		return m.handleIngest(msg.ev)
	case refreshMsg:
		return m.refresh(msg.scheduled)
	case toastMsg:
		m.lastMsg = msg.text
		return nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		return tea.Quit
	}
	if m.modalActive {
		return m.handleModalKey(msg)
	}
	if m.inlineMode != inlineNone {
		if cmd, done := m.handleInlineKey(msg); done {
			return cmd
		}
	}

	km := m.keymap
	switch {
	case msg.Type == tea.KeyUp || msg.String() == "k":
		m.move(-1)
	case msg.Type == tea.KeyDown || msg.String() == "j":
		m.move(1)
	case msg.Type == tea.KeyPgUp:
		m.move(-m.containerRows())
	case msg.Type == tea.KeyPgDown:
		m.move(m.containerRows())
	case keyMatches(msg, km.Top):
		m.move(-m.sess.Collection().Len())
	case keyMatches(msg, km.Bottom):
		m.move(m.sess.Collection().Len())
	case msg.Type == tea.KeyLeft:
		if m.selColIdx > 0 {
			m.selColIdx--
			if m.selColIdx < m.colOffset {
				m.colOffset = m.selColIdx
			}
			m.autofitMaxCols()
		}
	case msg.Type == tea.KeyRight:
		if m.selColIdx+1 < len(m.deriveColumns()) {
			m.selColIdx++
			if m.selColIdx >= m.colOffset+m.maxCols {
				m.colOffset = max(0, m.selColIdx-(m.maxCols-1))
			}
			m.autofitMaxCols()
		}
	case keyMatches(msg, km.Focus):
		if m.focus == focusPrimary && m.showSecondary() {
			m.focus = focusSecondary
		} else {
			m.focus = focusPrimary
		}
	case keyMatches(msg, km.Select):
		if m.focus == focusSecondary {
			m.selectStrongest()
		}
	case keyMatches(msg, km.Inspect):
		m.openInspectorModal()
	case keyMatches(msg, km.Clear):
		m.sess.ClearSelection()
	case keyMatches(msg, km.IncColWidth):
		m.colWidthAdj[m.currentColumn()] += 2
		m.autofitMaxCols()
	case keyMatches(msg, km.DecColWidth):
		m.colWidthAdj[m.currentColumn()] -= 2
		m.autofitMaxCols()
	case keyMatches(msg, km.Sort):
		m.sortByCurrentColumn()
	case keyMatches(msg, km.Paginate):
		on := !m.sess.Coordinator().Paginated()
		m.sess.SetPaginated(on)
		m.lastMsg = fmt.Sprintf("pagination: %v", on)
	case keyMatches(msg, km.PrevPage):
		if !m.sess.Coordinator().Paginated() {
			m.lastMsg = "pagination is off; press p"
		} else {
			m.sess.PreviousPage()
		}
	case keyMatches(msg, km.NextPage):
		if !m.sess.Coordinator().Paginated() {
			m.lastMsg = "pagination is off; press p"
		} else {
			m.sess.NextPage()
		}
	case keyMatches(msg, km.Search):
		m.inlineMode = inlineSearch
		m.searchEditing = true
		m.input.Prompt = "/"
		m.input.Placeholder = "search... (text or /regex/)"
		return m.input.Focus()
	case keyMatches(msg, km.SearchNext):
		if m.searchActive {
			m.searchNext()
		}
	case keyMatches(msg, km.SearchPrev):
		if m.searchActive {
			m.searchPrev()
		}
	case keyMatches(msg, km.Filter):
		m.inlineMode = inlineFilter
		m.input.Prompt = ""
		m.input.Placeholder = "text or /regex/"
		m.input.SetValue("")
		return m.input.Focus()
	case keyMatches(msg, km.Expr):
		m.inlineMode = inlineExpr
		m.input.Prompt = ""
		m.input.Placeholder = `mag >= 5 && depth < 70`
		m.input.SetValue(m.sess.Criteria().Expr)
		m.input.CursorEnd()
		return m.input.Focus()
	case keyMatches(msg, km.ClearFilter):
		m.applyFilter(filter.Criteria{})
	case keyMatches(msg, km.CopyRecord):
		if r, ok := m.sess.Selected(); ok {
			copyToClipboard(r.PrettyJSON())
			m.lastMsg = "copied to clipboard"
		}
	case keyMatches(msg, km.Export):
		m.lastMsg = "exporting..."
		return m.exportCmd()
	case keyMatches(msg, km.Refresh):
		return m.refresh(false)
	case keyMatches(msg, km.Follow):
		return m.toggleFollow()
	case keyMatches(msg, km.AppLogs):
		m.openAppLogsModal()
	case keyMatches(msg, km.Help):
		m.openHelpModal()
	case keyMatches(msg, km.Quit):
		return tea.Quit
	}
	return nil
}

func (m *Model) handleModalKey(msg tea.KeyMsg) tea.Cmd {
	if m.modalKind == modalHelp {
		switch {
		case msg.Type == tea.KeyUp:
			if m.helpSel > 0 {
				m.helpSel--
			}
		case msg.Type == tea.KeyDown:
			if m.helpSel+1 < len(m.helpItems) {
				m.helpSel++
			}
		case msg.Type == tea.KeyEnter:
			m.modalActive = false
			if len(m.helpItems) > 0 {
				return keyCmd(m.helpItems[m.helpSel].key)
			}
		case msg.Type == tea.KeyEsc || msg.String() == "q" || msg.String() == "?":
			m.modalActive = false
		}
		return nil
	}
	if msg.Type == tea.KeyEsc || msg.Type == tea.KeyEnter {
		m.modalActive = false
		return nil
	}
	if msg.String() == "c" && m.modalKind == modalInspector {
		copyToClipboard(m.modalBody)
		m.lastMsg = "copied to clipboard"
		return nil
	}
	var cmd tea.Cmd
	m.modalVP, cmd = m.modalVP.Update(msg)
	return cmd
}

// handleInlineKey routes keys to the bottom-line input. done is false when
// the key should fall through to the normal shortcuts.
func (m *Model) handleInlineKey(msg tea.KeyMsg) (cmd tea.Cmd, done bool) {
	switch msg.Type {
	case tea.KeyEnter:
		q := strings.TrimSpace(m.input.Value())
		switch m.inlineMode {
		case inlineSearch:
			if !m.searchEditing {
				m.searchEditing = true
				return m.input.Focus(), true
			}
			if q != "" {
				m.searchActive = true
				m.searchPattern, m.searchRegex = parseQuery(q)
				m.searchNext()
			}
			m.searchEditing = false
			m.input.Blur()
		case inlineFilter:
			c := m.sess.Criteria()
			c.Query, c.UseRegex = parseQuery(q)
			c.Field = m.currentColumn()
			if q == "" {
				c.Field = ""
			}
			m.applyFilter(c)
			m.inlineMode = inlineNone
		case inlineExpr:
			c := m.sess.Criteria()
			c.Expr = q
			m.applyFilter(c)
			m.inlineMode = inlineNone
		}
		return nil, true
	case tea.KeyEsc:
		m.inlineMode = inlineNone
		m.searchEditing = false
		m.searchActive = false
		m.searchPattern = ""
		m.searchRegex = false
		m.input.Blur()
		return nil, true
	}
	if m.inlineMode == inlineSearch && !m.searchEditing {
		if keyMatches(msg, m.keymap.SearchNext) {
			m.searchNext()
			return nil, true
		}
		if keyMatches(msg, m.keymap.SearchPrev) {
			m.searchPrev()
			return nil, true
		}
		return nil, false
	}
	if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace || msg.Type == tea.KeyBackspace ||
		msg.Type == tea.KeyDelete || msg.Type == tea.KeyLeft || msg.Type == tea.KeyRight {
		m.input, cmd = m.input.Update(msg)
		return cmd, true
	}
	return nil, false
}

// parseQuery treats /.../ as a regular expression.
func parseQuery(q string) (string, bool) {
	if strings.HasPrefix(q, "/") && strings.HasSuffix(q, "/") && len(q) > 2 {
		return q[1 : len(q)-1], true
	}
	return q, false
}

func (m *Model) applyFilter(c filter.Criteria) {
	if err := m.sess.SetFilter(c); err != nil {
		m.lastMsg = "invalid filter: " + err.Error()
		logx.Warnf("filter: %v", err)
		return
	}
	if c.Empty() {
		m.lastMsg = "filter cleared"
	} else {
		m.lastMsg = fmt.Sprintf("%d of %d events match", m.sess.Collection().Len(), m.sess.Collection().Total())
	}
}

func (m *Model) sortByCurrentColumn() {
	field := m.currentColumn()
	if !slices.Contains(filter.SortFields, field) {
		m.lastMsg = "cannot sort by " + field
		return
	}
	cur, desc := m.sess.Sort()
	if cur == field {
		desc = !desc
	} else {
		desc = field == model.FieldMag || field == model.FieldTime || field == model.FieldUpdated
	}
	m.sess.SetSort(field, desc)
	logx.Debugf("sort: %s desc=%v", field, desc)
}

// move steps the selection in the focused view.
func (m *Model) move(delta int) {
	if m.focus == focusPrimary {
		m.sess.MoveCursor(delta, view.SourcePrimary)
		return
	}
	if len(m.strongest) == 0 {
		return
	}
	m.strongestSel = max(0, min(len(m.strongest)-1, m.strongestSel+delta))
	m.selectStrongest()
}

// selectStrongest selects the highlighted strongest event; the primary table
// scrolls or pages to reveal it.
func (m *Model) selectStrongest() {
	if m.strongestSel < 0 || m.strongestSel >= len(m.strongest) {
		return
	}
	rep := m.sess.Select(m.strongest[m.strongestSel].ID, view.SourceSecondary)
	if rep.PageChanged {
		m.lastMsg = fmt.Sprintf("page %d", rep.Page)
	}
}
