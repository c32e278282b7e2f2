package ui

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Base        lipgloss.Style
	Status      lipgloss.Style
	Warning     lipgloss.Style
	Error       lipgloss.Style
	Help        lipgloss.Style
	Header      lipgloss.Style
	HeaderSel   lipgloss.Style
	Selected    lipgloss.Style
	Cursor      lipgloss.Style
	Panel       lipgloss.Style
	PanelActive lipgloss.Style
	PanelTitle  lipgloss.Style
	PopupBox    lipgloss.Style
	PopupTitle  lipgloss.Style
	Suspect     lipgloss.Style

	// Mag colors by band: <3, <5, <6, <7, >=7.
	Mag [5]lipgloss.Style

	JSONKey    lipgloss.Style
	JSONString lipgloss.Style
	JSONNumber lipgloss.Style
	JSONBool   lipgloss.Style
	JSONNull   lipgloss.Style
	JSONPunct  lipgloss.Style
}

func NewStyles(dark bool) Styles {
	s := Styles{}
	accent, muted, border := lipgloss.Color("81"), lipgloss.Color("240"), lipgloss.Color("60")
	if dark {
		s.Base = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
		s.Help = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	} else {
		accent, muted, border = lipgloss.Color("27"), lipgloss.Color("8"), lipgloss.Color("12")
		s.Base = lipgloss.NewStyle()
		s.Help = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	}
	s.Status = lipgloss.NewStyle().Foreground(muted)
	s.Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	s.Error = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	s.Header = lipgloss.NewStyle().Bold(true)
	s.HeaderSel = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(accent)
	s.Selected = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("220"))
	s.Cursor = lipgloss.NewStyle().Reverse(true)
	s.Panel = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(muted).Padding(0, 1)
	s.PanelActive = s.Panel.BorderForeground(accent)
	s.PanelTitle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	s.PopupBox = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(1, 2)
	s.PopupTitle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	s.Suspect = lipgloss.NewStyle().Foreground(lipgloss.Color("201"))

	s.Mag = [5]lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}

	s.JSONKey = lipgloss.NewStyle().Foreground(accent)
	s.JSONString = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	s.JSONNumber = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	s.JSONBool = lipgloss.NewStyle().Foreground(lipgloss.Color("177"))
	s.JSONNull = lipgloss.NewStyle().Foreground(muted)
	s.JSONPunct = lipgloss.NewStyle().Foreground(muted)
	return s
}

// MagStyle picks the color band for a magnitude.
func (s Styles) MagStyle(mag float64) lipgloss.Style {
	switch {
	case mag < 3:
		return s.Mag[0]
	case mag < 5:
		return s.Mag[1]
	case mag < 6:
		return s.Mag[2]
	case mag < 7:
		return s.Mag[3]
	}
	return s.Mag[4]
}
