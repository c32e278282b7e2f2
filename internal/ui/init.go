package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"quakeview/internal/config"
	"quakeview/internal/ingest"
	"quakeview/internal/scheduler"
	"quakeview/internal/session"
	"quakeview/internal/util/logx"
	"quakeview/internal/view"
)

func initialModel(ctx context.Context, cfg *config.Config, sess *session.Session, src ingest.Source) *Model {
	m := &Model{
		ctx:         ctx,
		cfg:         cfg,
		sess:        sess,
		src:         src,
		styles:      NewStyles(cfg.Theme != config.ThemeLight),
		keymap:      DefaultKeyMap(),
		help:        help.New(),
		input:       textinput.New(),
		spin:        spinner.New(),
		colWidthAdj: map[string]int{},
	}
	m.spin.Spinner = spinner.Dot
	m.input.CharLimit = 256
	m.modalVP = viewport.New(80, 20)
	// the primary table is the only view that draws the shared window
	sess.MarkRendered(view.SourcePrimary)
	m.unsubscribe = sess.Coordinator().Subscribe(view.SourceSecondary, func(view.Selection) {
		m.syncStrongestCursor()
	})
	return m
}

// Run shows the catalog read from src until the user quits or ctx ends.
func Run(ctx context.Context, cfg *config.Config, sess *session.Session, src ingest.Source) error {
	m := initialModel(ctx, cfg, sess, src)
	defer m.unsubscribe()
	defer sess.Stop()

	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	if cfg.Refresh.Schedule != "" {
		sched := scheduler.New(func(context.Context) error {
			p.Send(refreshMsg{scheduled: true})
			return nil
		})
		if err := sched.SetSchedule(cfg.Refresh.Schedule); err != nil {
			return err
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
	}
	_, err := p.Run()
	logx.Infof("ui: exit")
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.load(m.src, true))
}
