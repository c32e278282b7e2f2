package ui

import (
	"fmt"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"quakeview/internal/export"
	"quakeview/internal/ingest"
	"quakeview/internal/util/logx"
)

// ingestMsg carries one event pulled from a stream. Each stream has at most
// one outstanding pull, so chunks reach Update in emission order and each
// Update applies at most one chunk.
type ingestMsg struct{ ev ingest.Event }

type refreshMsg struct{ scheduled bool }

// Simple UI toast/status message
type toastMsg struct{ text string }

// load starts a new generation reading src.
func (m *Model) load(src ingest.Source, replace bool) tea.Cmd {
	st := m.sess.Load(m.ctx, src, replace)
	m.src = src
	m.pending = st
	logx.Infof("ingest: gen=%d source=%s follow=%v replace=%v", st.Gen(), src.Name(), st.Follows(), replace)
	return m.waitEvent(st)
}

func (m *Model) waitEvent(st *ingest.Stream) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return ingestMsg{ev: st.Next(ctx)}
	}
}

// refresh reloads the current source and merges it into what is loaded.
func (m *Model) refresh(scheduled bool) tea.Cmd {
	if scheduled && m.pending != nil {
		logx.Debugf("refresh: skipped, gen=%d still loading", m.pending.Gen())
		return nil
	}
	st := m.sess.Refresh(m.ctx)
	if st == nil {
		m.lastMsg = "nothing to refresh"
		if m.sess.Source() != nil {
			m.lastMsg = "source cannot be refreshed"
		}
		return nil
	}
	m.pending = st
	m.lastMsg = "refreshing " + st.Source()
	logx.Infof("refresh: gen=%d scheduled=%v", st.Gen(), scheduled)
	return m.waitEvent(st)
}

// toggleFollow restarts a file source with follow mode flipped.
func (m *Model) toggleFollow() tea.Cmd {
	fs, ok := m.src.(ingest.FileSource)
	if !ok {
		m.lastMsg = "follow is only available for local files"
		return nil
	}
	fs.Follow = !fs.Follow
	m.lastMsg = fmt.Sprintf("follow: %v", fs.Follow)
	return m.load(fs, false)
}

func (m *Model) handleIngest(ev ingest.Event) tea.Cmd {
	applied := m.sess.Handle(ev)
	if m.pending == nil || ev.Gen != m.pending.Gen() {
		// a superseded stream; its puller stops here
		return nil
	}
	if applied && ev.Kind == ingest.KindChunk && ev.Chunk.Warning != nil {
		w := ev.Chunk.Warning
		m.lastMsg = fmt.Sprintf("%d of %d rows rejected (%.0f%%)", w.Rejected, w.Rows, w.Ratio*100)
	}
	if !ev.Terminal() {
		return m.waitEvent(m.pending)
	}
	m.pending = nil
	switch ev.Kind {
	case ingest.KindComplete:
		m.lastMsg = fmt.Sprintf("loaded %s rows (%s rejected)", humanize.Comma(int64(ev.RowsSeen)), humanize.Comma(int64(ev.Rejected)))
	case ingest.KindFailed:
		m.lastMsg = "load failed: " + ev.Err.Error()
		logx.Errorf("ingest: gen=%d failed: %v", ev.Gen, ev.Err)
	}
	return nil
}

func (m *Model) exportCmd() tea.Cmd {
	records := slices.Clone(m.sess.Collection().Records())
	format := m.cfg.Export.Format
	if format == "" {
		format = export.FormatCSV
	}
	out := m.cfg.Export.Out
	if out == "" {
		ext := format
		if ext == "json" {
			ext = export.FormatNDJSON
		}
		out = fmt.Sprintf("quakes-%s.%s", time.Now().Format("20060102-150405"), ext)
	}
	return func() tea.Msg {
		if err := export.ToFile(out, format, records); err != nil {
			logx.Warnf("export: %v", err)
			return toastMsg{text: "export failed: " + err.Error()}
		}
		logx.Infof("export: wrote %d rows to %s (%s)", len(records), out, format)
		return toastMsg{text: fmt.Sprintf("exported %s rows to %s", humanize.Comma(int64(len(records))), out)}
	}
}
