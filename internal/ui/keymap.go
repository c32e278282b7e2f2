package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"quakeview/internal/session"
)

type KeyMap struct {
	Search      tea.Key
	SearchNext  tea.Key
	SearchPrev  tea.Key
	Filter      tea.Key
	Expr        tea.Key
	ClearFilter tea.Key
	Sort        tea.Key
	Paginate    tea.Key
	PrevPage    tea.Key
	NextPage    tea.Key
	Top         tea.Key
	Bottom      tea.Key
	Focus       tea.Key
	Inspect     tea.Key
	Select      tea.Key
	Clear       tea.Key
	CopyRecord  tea.Key
	Export      tea.Key
	Refresh     tea.Key
	Follow      tea.Key
	AppLogs     tea.Key
	IncColWidth tea.Key
	DecColWidth tea.Key
	Help        tea.Key
	Quit        tea.Key
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Search:      tea.Key{Type: tea.KeyRunes, Runes: []rune{'/'}},
		SearchNext:  tea.Key{Type: tea.KeyRunes, Runes: []rune{'n'}},
		SearchPrev:  tea.Key{Type: tea.KeyRunes, Runes: []rune{'N'}},
		Filter:      tea.Key{Type: tea.KeyRunes, Runes: []rune{'f'}},
		Expr:        tea.Key{Type: tea.KeyRunes, Runes: []rune{'x'}},
		ClearFilter: tea.Key{Type: tea.KeyRunes, Runes: []rune{'F'}},
		Sort:        tea.Key{Type: tea.KeyRunes, Runes: []rune{'s'}},
		Paginate:    tea.Key{Type: tea.KeyRunes, Runes: []rune{'p'}},
		PrevPage:    tea.Key{Type: tea.KeyRunes, Runes: []rune{','}},
		NextPage:    tea.Key{Type: tea.KeyRunes, Runes: []rune{'.'}},
		Top:         tea.Key{Type: tea.KeyRunes, Runes: []rune{'g'}},
		Bottom:      tea.Key{Type: tea.KeyRunes, Runes: []rune{'G'}},
		Focus:       tea.Key{Type: tea.KeyTab},
		Inspect:     tea.Key{Type: tea.KeyEnter},
		Select:      tea.Key{Type: tea.KeyRunes, Runes: []rune{' '}},
		Clear:       tea.Key{Type: tea.KeyRunes, Runes: []rune{'u'}},
		CopyRecord:  tea.Key{Type: tea.KeyRunes, Runes: []rune{'c'}},
		Export:      tea.Key{Type: tea.KeyRunes, Runes: []rune{'e'}},
		Refresh:     tea.Key{Type: tea.KeyRunes, Runes: []rune{'r'}},
		Follow:      tea.Key{Type: tea.KeyRunes, Runes: []rune{'t'}},
		AppLogs:     tea.Key{Type: tea.KeyRunes, Runes: []rune{'L'}},
		IncColWidth: tea.Key{Type: tea.KeyRunes, Runes: []rune{']'}},
		DecColWidth: tea.Key{Type: tea.KeyRunes, Runes: []rune{'['}},
		Help:        tea.Key{Type: tea.KeyRunes, Runes: []rune{'?'}},
		Quit:        tea.Key{Type: tea.KeyRunes, Runes: []rune{'q'}},
	}
}

func keyMatches(msg tea.KeyMsg, k tea.Key) bool {
	if k.Type != tea.KeyRunes {
		return msg.Type == k.Type
	}
	if len(k.Runes) > 0 {
		return msg.String() == string(k.Runes)
	}
	return false
}

// binding adapts a shortcut for the bubbles help bar.
func binding(k tea.Key, desc string) key.Binding {
	l := keyLabel(k)
	return key.NewBinding(key.WithKeys(l), key.WithHelp(l, desc))
}

// shortHelp is the one-line hint under the status bar.
func (m *Model) shortHelp() []key.Binding {
	km := m.keymap
	b := []key.Binding{
		binding(km.Focus, "switch view"),
		binding(km.Search, "search"),
		binding(km.Filter, "filter"),
		binding(km.Sort, "sort"),
		binding(km.Paginate, "pages"),
	}
	if st := m.sess.Status(); st.State == session.StateFailed {
		b = append(b, binding(km.Refresh, "retry"))
	} else {
		b = append(b, binding(km.Refresh, "refresh"))
	}
	return append(b, binding(km.Help, "help"), binding(km.Quit, "quit"))
}
