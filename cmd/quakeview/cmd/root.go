package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"quakeview/internal/config"
	"quakeview/internal/ui"
	"quakeview/internal/util/logx"
	"quakeview/internal/version"
	"quakeview/internal/view"
)

var (
	cfgFile string
	flags   overrides
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "quakeview",
	Short: "Browse earthquake catalogs in the terminal",
	Long: `quakeview streams an earthquake CSV catalog (a USGS feed URL, a local
file or stdin) into a sortable, filterable table with a linked
"strongest events" panel.

Without a source it loads the USGS past-week feed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		flags.apply(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		// the TUI owns the terminal; other commands may log to stderr
		tui := cmd == cmd.Root() || cmd.Name() == "view"
		logx.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Log.Stderr || !tui)
		logger = logx.Logger()
		view.Debug = cfg.View.Debug
		logger.Debug("config loaded", "config", cfg.String())
		return nil
	},
	RunE: runView,
}

// ExecuteContext runs the root command with the given context, enabling
// graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $QUAKEVIEW_HOME/config.toml)")
	flags.register(pf)
}

func runView(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	src := newSource(cfg)
	sess := newSession(cfg, newResolver(cfg))
	logger.Info("starting quakeview", "version", version.String(), "source", src.Name())
	if err := ui.Run(ctx, cfg, sess, src); err != nil {
		logger.Error("quakeview exited with error", "error", err)
		return err
	}
	return nil
}
