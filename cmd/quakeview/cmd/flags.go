package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"quakeview/internal/config"
)

// overrides holds command-line values. Only flags the user actually set
// replace what the config file and environment provided.
type overrides struct {
	file      string
	url       string
	stdin     bool
	follow    bool
	stream    bool
	paginate  bool
	pageSize  int
	chunkSize int
	sortField string
	sortDesc  bool
	theme     string
	offline   bool
	noCache   bool
	refresh   string
	logLevel  string
	debug     bool
}

func (o *overrides) register(fs *pflag.FlagSet) {
	fs.StringVarP(&o.file, "file", "f", "", "path to a catalog CSV file")
	fs.StringVar(&o.url, "url", "", "catalog CSV URL")
	fs.BoolVar(&o.stdin, "stdin", false, "read the catalog from stdin")
	fs.BoolVar(&o.follow, "follow", false, "follow a growing file")
	fs.BoolVar(&o.stream, "stream", false, "parse a URL body while it downloads")
	fs.BoolVar(&o.paginate, "paginate", false, "show the catalog one page at a time")
	fs.IntVar(&o.pageSize, "page-size", 0, "records per page")
	fs.IntVar(&o.chunkSize, "chunk-size", 0, "records per ingestion chunk")
	fs.StringVar(&o.sortField, "sort", "", "sort field (time|mag|depth|place|updated)")
	fs.BoolVar(&o.sortDesc, "desc", false, "sort descending")
	fs.StringVar(&o.theme, "theme", "", "color theme (dark|light)")
	fs.BoolVar(&o.offline, "offline", true, "never call OpenAI for header mapping")
	fs.BoolVar(&o.noCache, "no-cache", false, "ignore cached header mappings")
	fs.StringVar(&o.refresh, "refresh", "", `reload schedule, e.g. "@every 5m"`)
	fs.StringVar(&o.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	fs.BoolVar(&o.debug, "debug", false, "panic on view invariant violations")
}

func (o *overrides) apply(cmd *cobra.Command, c *config.Config) {
	set := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if set("file") {
		c.Source.Path = o.file
	}
	if set("url") {
		c.Source.URL = o.url
	}
	if set("stdin") {
		c.Source.UseStdin = o.stdin
	}
	if set("follow") {
		c.Source.Follow = o.follow
	}
	if set("stream") {
		c.Source.Stream = o.stream
	}
	if set("paginate") {
		c.View.Paginate = o.paginate
	}
	if set("page-size") {
		c.View.PageSize = o.pageSize
	}
	if set("chunk-size") {
		c.Ingest.ChunkSize = o.chunkSize
	}
	if set("sort") {
		c.View.SortField = o.sortField
	}
	if set("desc") {
		c.View.SortDesc = o.sortDesc
	}
	if set("theme") {
		c.Theme = config.Theme(o.theme)
	}
	if set("offline") {
		c.Detect.Offline = o.offline
	}
	if set("no-cache") {
		c.Detect.NoCache = o.noCache
	}
	if set("refresh") {
		c.Refresh.Schedule = o.refresh
	}
	if set("log-level") {
		c.Log.Level = o.logLevel
	}
	if set("debug") {
		c.View.Debug = o.debug
	}
}
