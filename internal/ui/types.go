package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"quakeview/internal/config"
	"quakeview/internal/ingest"
	"quakeview/internal/model"
	"quakeview/internal/session"
	"quakeview/internal/view"
)

type focus int

const (
	focusPrimary focus = iota
	focusSecondary
)

type modalKind int

const (
	modalNone modalKind = iota
	modalHelp
	modalInspector
	modalLogs
)

type inlineMode int

const (
	inlineNone inlineMode = iota
	inlineSearch
	inlineFilter
	inlineExpr
)

// secondaryWidth is the width of the strongest-events panel; it is hidden
// on terminals narrower than minSplitWidth.
const (
	secondaryWidth = 38
	minSplitWidth  = 100
	strongestCount = 15
)

type Model struct {
	ctx  context.Context
	cfg  *config.Config
	sess *session.Session
	src  ingest.Source

	// stream whose next event is being awaited; nil when idle
	pending *ingest.Stream

	// UI
	focus      focus
	styles     Styles
	keymap     KeyMap
	help       help.Model
	input      textinput.Model
	spin       spinner.Model
	termWidth  int
	termHeight int

	// Columns of the primary table
	cols        []string
	colOffset   int
	maxCols     int
	selColIdx   int
	colWidthAdj map[string]int

	// Secondary view: strongest events of the filtered view
	strongest        []model.Record
	strongestVersion uint64
	strongestSel     int
	unsubscribe      func()

	lastMsg string

	// Modal popup
	modalActive bool
	modalKind   modalKind
	modalVP     viewport.Model
	modalTitle  string
	modalBody   string

	// Help menu state
	helpItems []helpItem
	helpSel   int

	// Search state (navigation)
	searchActive  bool
	searchPattern string
	searchRegex   bool
	searchEditing bool

	inlineMode inlineMode
}

type helpItem struct {
	group string
	text  string
	key   tea.Key
}

func (m *Model) primaryFocused() bool { return m.focus == focusPrimary }

func sourceOf(f focus) view.Source {
	if f == focusSecondary {
		return view.SourceSecondary
	}
	return view.SourcePrimary
}

func keyCmd(k tea.Key) tea.Cmd {
	return func() tea.Msg {
		if k.Type == tea.KeyRunes {
			return tea.KeyMsg{Type: k.Type, Runes: k.Runes}
		}
		return tea.KeyMsg{Type: k.Type}
	}
}

func keyLabel(k tea.Key) string {
	switch k.Type {
	case tea.KeyRunes:
		if len(k.Runes) == 1 {
			r := k.Runes[0]
			if r == ' ' {
				return "space"
			}
			return string(r)
		}
		return strings.ToLower(string(k.Runes))
	case tea.KeyEnter:
		return "enter"
	case tea.KeyEsc:
		return "esc"
	case tea.KeyTab:
		return "tab"
	case tea.KeyShiftTab:
		return "shift-tab"
	case tea.KeyLeft:
		return "left"
	case tea.KeyRight:
		return "right"
	case tea.KeyUp:
		return "up"
	case tea.KeyDown:
		return "down"
	case tea.KeyPgUp:
		return "pgup"
	case tea.KeyPgDown:
		return "pgdown"
	default:
		return strings.ToLower(k.String())
	}
}
