package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"quakeview/internal/export"
	"quakeview/internal/ingest"
)

var (
	exportOut    string
	exportFormat string
	exportQuery  string
	exportExpr   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Load the catalog and write the filtered, sorted records",
	Long: `Load the catalog once, apply the configured sort and an optional
filter, and write the result as CSV or newline-delimited JSON.

Writes to stdout unless --out is given.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "csv or ndjson")
	exportCmd.Flags().StringVarP(&exportQuery, "query", "q", "", "substring filter, /regex/ for a regular expression")
	exportCmd.Flags().StringVarP(&exportExpr, "expr", "e", "", `filter expression, e.g. "mag >= 5 && depth < 70"`)
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if cfg.Source.Follow {
		return errors.New("export needs a finite source; drop --follow")
	}
	out := firstNonEmpty(exportOut, cfg.Export.Out)
	format := firstNonEmpty(exportFormat, cfg.Export.Format)

	sess := newSession(cfg, newResolver(cfg))
	defer sess.Stop()
	c := sess.Criteria()
	c.Query, c.UseRegex = parseQuery(exportQuery)
	c.Expr = exportExpr
	if err := sess.SetFilter(c); err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}

	sess.Load(cmd.Context(), newSource(cfg), true)
	ev := sess.Pump(cmd.Context())
	if ev.Kind == ingest.KindFailed {
		return ev.Err
	}
	st := sess.Status()
	if st.Warning != nil {
		logger.Warn("high reject ratio", "rejected", st.Rejected, "rows", st.RowsSeen)
	}

	records := sess.Collection().Records()
	if out == "" {
		return export.Write(os.Stdout, format, records)
	}
	if err := export.ToFile(out, format, records); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s records to %s (%s rejected)\n",
		humanize.Comma(int64(len(records))), out, humanize.Comma(int64(st.Rejected)))
	return nil
}

// parseQuery treats /.../ as a regular expression.
func parseQuery(q string) (string, bool) {
	if len(q) >= 2 && q[0] == '/' && q[len(q)-1] == '/' {
		return q[1 : len(q)-1], true
	}
	return q, false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
