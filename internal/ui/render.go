package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"quakeview/internal/model"
	"quakeview/internal/session"
	"quakeview/internal/util/logx"
)

func (m *Model) View() string {
	if m.termWidth == 0 {
		return m.spin.View() + " starting..."
	}
	main := m.renderTable()
	if m.showSecondary() {
		main = lipgloss.JoinHorizontal(lipgloss.Top, main, m.renderStrongest())
	}
	v := lipgloss.JoinVertical(lipgloss.Left,
		main,
		m.renderSubline(),
		m.renderStatus(),
		m.help.ShortHelpView(m.shortHelp()),
	)
	if m.modalActive {
		// Dim the background content while keeping it visible
		dimmed := lipgloss.NewStyle().Faint(true).Render(v)
		v = overlay(dimmed, m.renderModal())
	}
	return v
}

// renderTable draws the header and the strictly visible rows of the window.
// The frame also carries overscan rows; the terminal has no use for them.
func (m *Model) renderTable() string {
	rows := m.containerRows()
	cols := m.visibleColumns(m.deriveColumns())
	widths := m.computeWidths(cols)
	f := m.sess.Frame()

	lines := make([]string, 0, rows+1)
	lines = append(lines, m.renderHeader(cols, widths))

	if len(f.VisibleSlice) == 0 {
		lines = append(lines, m.renderEmpty(f.Status))
	}
	vis := m.sess.Window().Visible()
	for i := vis.Start; i < vis.End; i++ {
		k := i - f.Range.Start
		if k < 0 || k >= len(f.VisibleSlice) {
			continue
		}
		r := f.VisibleSlice[k]
		lines = append(lines, m.renderRow(r, cols, widths, r.ID == f.Selection.ID))
	}
	for len(lines) < rows+1 {
		lines = append(lines, "")
	}
	return lipgloss.NewStyle().Width(m.tableWidth()).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderHeader(cols []string, widths []int) string {
	parts := make([]string, 0, len(cols)+1)
	parts = append(parts, " ")
	sortField, desc := m.sess.Sort()
	for i, c := range cols {
		title := c
		if c == sortField {
			if desc {
				title += "↓"
			} else {
				title += "↑"
			}
		}
		if m.colOffset+i == m.selColIdx {
			parts = append(parts, m.styles.HeaderSel.Render(fit("«"+title+"»", widths[i])))
			continue
		}
		parts = append(parts, m.styles.Header.Render(fit(title, widths[i])))
	}
	return strings.Join(parts, " ")
}

func (m *Model) renderRow(r model.Record, cols []string, widths []int, selected bool) string {
	marker := " "
	if r.DepthSuspect || r.MagnitudeSuspect {
		marker = "!"
	}
	cells := make([]string, 0, len(cols)+1)
	cells = append(cells, marker)
	for i, c := range cols {
		text := getCol(r, c)
		if numeric(c) {
			text = fitLeft(text, widths[i])
		} else {
			text = fit(text, widths[i])
		}
		if !selected && c == model.FieldMag {
			text = m.styles.MagStyle(r.Magnitude).Render(text)
		}
		cells = append(cells, text)
	}
	line := strings.Join(cells, " ")
	if selected {
		return m.styles.Selected.Render(line)
	}
	if marker != " " {
		return m.styles.Suspect.Render(marker) + line[1:]
	}
	return line
}

func (m *Model) renderEmpty(st session.Status) string {
	switch st.State {
	case session.StateLoading:
		return fmt.Sprintf("%s loading %s...", m.spin.View(), st.Source)
	case session.StateFailed:
		return m.styles.Error.Render("load failed: "+st.Err) + m.styles.Help.Render("  [r]=retry")
	}
	if m.sess.Collection().Total() > 0 {
		return m.styles.Help.Render("no events match the filter  [F]=clear filter")
	}
	return m.styles.Help.Render("no events")
}

// renderStrongest draws the secondary view.
func (m *Model) renderStrongest() string {
	inner := secondaryWidth - 4
	height := max(1, m.containerRows()-1)
	sel := m.sess.Coordinator().Selection().ID
	lines := []string{m.styles.PanelTitle.Render(fit("Strongest events", inner))}
	for i, r := range m.strongest {
		if len(lines) >= height {
			break
		}
		prefix := "  "
		if m.focus == focusSecondary && i == m.strongestSel {
			prefix = "> "
		}
		mag := m.styles.MagStyle(r.Magnitude).Render(fitLeft(getCol(r, model.FieldMag), 4))
		place := fit(r.Place, inner-7)
		line := prefix + mag + " " + place
		if r.ID == sel {
			line = m.styles.Selected.Render(prefix + fitLeft(getCol(r, model.FieldMag), 4) + " " + place)
		}
		lines = append(lines, line)
	}
	box := m.styles.Panel
	if m.focus == focusSecondary {
		box = m.styles.PanelActive
	}
	return box.Width(secondaryWidth - 2).Height(height).Render(strings.Join(lines, "\n"))
}

// renderSubline shows the inline input, or the active search and filter.
func (m *Model) renderSubline() string {
	switch m.inlineMode {
	case inlineSearch:
		if m.searchEditing {
			return fmt.Sprintf("search: %s    [enter]=apply [esc]=quit mode", m.input.View())
		}
		return fmt.Sprintf("search: %s    [n/N]=next/prev [enter]=edit [esc]=quit mode", m.searchPattern)
	case inlineFilter:
		return fmt.Sprintf("filter %s: %s    [enter]=apply [esc]=cancel", m.currentColumn(), m.input.View())
	case inlineExpr:
		return fmt.Sprintf("expression: %s    [enter]=apply [esc]=cancel", m.input.View())
	}
	c := m.sess.Criteria()
	var parts []string
	if c.Query != "" {
		q := c.Query
		if c.UseRegex {
			q = "/" + q + "/"
		}
		if c.Field != "" {
			parts = append(parts, fmt.Sprintf("filter %s: %s", c.Field, q))
		} else {
			parts = append(parts, "filter: "+q)
		}
	}
	if strings.TrimSpace(c.Expr) != "" {
		parts = append(parts, "expr: "+c.Expr)
	}
	if len(parts) > 0 {
		parts = append(parts, "[F]=clear filter")
	}
	return m.styles.Help.Render(strings.Join(parts, "    "))
}

func (m *Model) renderStatus() string {
	f := m.sess.Frame()
	st := f.Status
	state := string(st.State)
	if st.State == session.StateLoading {
		state = m.spin.View() + " loading"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] gen %d | %s/%s events", state, st.Gen,
		humanize.Comma(int64(st.Records)), humanize.Comma(int64(st.Total)))
	if st.Rejected > 0 {
		fmt.Fprintf(&b, " (%s rejected)", humanize.Comma(int64(st.Rejected)))
	}
	if st.Bytes > 0 {
		fmt.Fprintf(&b, " %s", humanize.Bytes(uint64(st.Bytes)))
	}
	if f.Paginated {
		fmt.Fprintf(&b, " | page %d/%d", f.CurrentPage, f.TotalPages)
	}
	if sel := f.Selection; sel.ID != "" {
		if sel.Present {
			fmt.Fprintf(&b, " | %d/%d", sel.Index+1, st.Records)
		} else {
			fmt.Fprintf(&b, " | %s hidden", sel.ID)
		}
	}
	if st.Follow {
		b.WriteString(" | follow")
	}
	if !st.CompletedAt.IsZero() {
		fmt.Fprintf(&b, " | loaded %s", humanize.Time(st.CompletedAt))
	}
	out := m.styles.Status.Render(b.String())
	if st.Warning != nil {
		out += " " + m.styles.Warning.Render(fmt.Sprintf("⚠ %.0f%% rejected", st.Warning.Ratio*100))
	}
	if st.State == session.StateFailed && m.lastMsg == "" {
		out += " " + m.styles.Error.Render(st.Err)
	}
	if m.lastMsg != "" {
		out += " " + m.styles.Status.Render("| "+m.lastMsg)
	}
	return out
}

func (m *Model) renderHelp() string {
	if len(m.helpItems) == 0 {
		m.helpItems = m.buildHelpItems()
	}
	m.helpSel = max(0, min(m.helpSel, len(m.helpItems)-1))
	lines := []string{"Shortcuts:"}
	currentGroup := ""
	lineIndexOfSel := 0
	for i, it := range m.helpItems {
		if it.group != currentGroup {
			currentGroup = it.group
			lines = append(lines, "", currentGroup+":")
		}
		prefix := "  "
		if i == m.helpSel {
			prefix = "> "
			lineIndexOfSel = len(lines)
		}
		lines = append(lines, fmt.Sprintf("%s[%s] %s", prefix, keyLabel(it.key), it.text))
	}
	// Adjust viewport to keep selection visible
	if m.modalVP.Height > 0 {
		top := m.modalVP.YOffset
		bottom := top + m.modalVP.Height - 1
		if lineIndexOfSel <= top {
			m.modalVP.YOffset = max(0, lineIndexOfSel-1)
		} else if lineIndexOfSel >= bottom {
			m.modalVP.YOffset = max(0, lineIndexOfSel-m.modalVP.Height+2)
		}
	}
	return m.styles.Help.Render(strings.Join(lines, "\n"))
}

func (m *Model) openHelpModal() {
	m.modalActive = true
	m.modalKind = modalHelp
	m.modalTitle = "Help"
	m.helpItems = m.buildHelpItems()
	m.helpSel = 0
	m.modalBody = m.renderHelp()
	m.resizeModal()
}

func (m *Model) openInspectorModal() {
	r, ok := m.sess.Selected()
	if !ok {
		m.lastMsg = "nothing selected"
		return
	}
	m.modalActive = true
	m.modalKind = modalInspector
	m.modalTitle = "Event " + r.ID
	m.modalBody = colorizeRecord(r, m.styles)
	m.resizeModal()
}

func (m *Model) openAppLogsModal() {
	m.modalActive = true
	m.modalKind = modalLogs
	m.modalTitle = "Application Logs"
	m.modalBody = logx.Dump()
	m.resizeModal()
}

func (m *Model) resizeModal() {
	w := max(20, m.termWidth-6)
	h := max(5, m.termHeight-6)
	m.modalVP = viewport.New(w-4, h-4)
	m.modalVP.SetContent(m.modalBody)
	if m.modalKind == modalLogs {
		m.modalVP.GotoBottom()
	}
}

func (m *Model) renderModal() string {
	var content string
	switch m.modalKind {
	case modalHelp:
		m.modalVP.SetContent(m.renderHelp())
		content = m.modalVP.View() + "\n[esc]=close  [enter]=run"
	case modalInspector:
		content = m.modalVP.View() + "\n[esc/enter]=close  [c]=copy"
	case modalLogs:
		st := m.sess.Status()
		header := []string{
			"Status:",
			fmt.Sprintf("source: %s  gen: %d  run: %s", st.Source, st.Gen, st.RunID),
			fmt.Sprintf("rows: %d  rejected: %d  events: %d", st.RowsSeen, st.Rejected, st.Total),
		}
		content = m.styles.Help.Render(strings.Join(header, "\n")) + "\n" + m.modalVP.View() + "\n[esc/enter]=close"
	default:
		content = m.modalVP.View() + "\n[esc/enter]=close"
	}
	boxW := max(20, m.termWidth-6)
	title := m.styles.PopupTitle.Render(m.modalTitle)
	body := m.styles.PopupBox.Width(boxW).Render(title + "\n" + content)
	return lipgloss.Place(m.termWidth, m.termHeight, lipgloss.Center, lipgloss.Center, body)
}
