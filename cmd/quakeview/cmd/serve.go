package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"quakeview/internal/scheduler"
	"quakeview/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog view over an HTTP JSON API",
	Long: `Run quakeview headless. The catalog is loaded once and, with a refresh
schedule, reloaded on a cron schedule. Clients drive the shared window,
pagination and selection through the /api endpoints.

Schedules accept cron expressions or descriptors:
    */5 * * * *   = every five minutes
    @every 90s    = every 90 seconds
    @hourly       = once an hour

Use Ctrl+C to stop the server gracefully.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config: 127.0.0.1:8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if cfg.UseStdin() && cfg.Refresh.Schedule != "" {
		return fmt.Errorf("stdin cannot be refreshed; drop --refresh or use --file/--url")
	}
	ctx := cmd.Context()
	sess := newSession(cfg, newResolver(cfg))

	var srv *server.Server
	sched := scheduler.New(func(ctx context.Context) error {
		return srv.RefreshAndWait(ctx)
	}).WithLogger(logger)
	if err := sched.SetSchedule(cfg.Refresh.Schedule); err != nil {
		return err
	}
	srv = server.New(sess, server.WithLogger(logger), server.WithScheduler(sched))
	srv.Load(newSource(cfg), true)
	sched.Start()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(cfg.Server.Addr)
	}()

	fmt.Printf("quakeview API listening on http://%s\n", cfg.Server.Addr)
	if st := sched.Status(); st.Schedule != "" {
		fmt.Printf("  refresh: %s (next at %s)\n", st.Schedule, st.NextRun.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Println("Press Ctrl+C to stop.")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("context cancelled")
	case runErr = <-serverErr:
		if runErr != nil {
			logger.Error("API server error", "error", runErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", "error", err)
	}
	select {
	case <-sched.Stop().Done():
	case <-time.After(30 * time.Second):
		logger.Warn("refresh did not stop within 30s")
	}
	return runErr
}
