package cmd

import (
	"time"

	"quakeview/internal/config"
	"quakeview/internal/detect"
	"quakeview/internal/fetch"
	"quakeview/internal/ingest"
	"quakeview/internal/session"
	"quakeview/internal/util/logx"
)

func newFetchClient(c *config.Config) *fetch.Client {
	opts := []fetch.Option{
		fetch.WithRateLimit(c.Fetch.QPS, 1),
		fetch.WithRetry(c.Fetch.Attempts, time.Duration(c.Fetch.BackoffMS)*time.Millisecond),
		fetch.WithTimeout(c.FetchTimeout()),
		fetch.WithLogger(logx.Logger()),
	}
	if c.Fetch.CacheTTLSec > 0 {
		opts = append(opts, fetch.WithCache(fetch.NewTTLCache(time.Duration(c.Fetch.CacheTTLSec)*time.Second)))
	}
	return fetch.NewClient(opts...)
}

// newResolver enables the OpenAI fallback only when online and a key is set.
func newResolver(c *config.Config) *detect.Resolver {
	r := &detect.Resolver{CacheDir: c.HeaderCacheDir(), NoCache: c.Detect.NoCache}
	if !c.Detect.Offline {
		if key := c.OpenAIKey(); key != "" {
			r.AI = detect.NewOpenAIClient(key, c.Detect.OpenAIBase, c.Detect.OpenAIModel,
				time.Duration(c.Detect.OpenAITimeoutSec)*time.Second)
		} else {
			logx.Warnf("detect: online mode without OPENAI_API_KEY; using heuristics only")
		}
	}
	return r
}

func newSource(c *config.Config) ingest.Source {
	switch {
	case c.UseStdin():
		return ingest.StdinSource{}
	case c.Source.Path != "":
		return ingest.FileSource{Path: c.Source.Path, Follow: c.Source.Follow}
	default:
		return ingest.URLSource{URL: c.SourceURL(), Client: newFetchClient(c), Stream: c.Source.Stream}
	}
}

func sessionOptions(c *config.Config, r *detect.Resolver) session.Options {
	return session.Options{
		Paginate:   c.View.Paginate,
		PageSize:   c.View.PageSize,
		ItemHeight: c.View.ItemHeight,
		Overscan:   c.View.Overscan,
		SortField:  c.View.SortField,
		SortDesc:   c.View.SortDesc,
		Ingest: ingest.Options{
			ChunkSize:       c.Ingest.ChunkSize,
			RejectWarnRatio: c.Ingest.RejectWarnRatio,
			FlushInterval:   c.FlushInterval(),
			Delimiter:       []rune(c.Ingest.Delimiter)[0],
			Resolver:        r,
		},
	}
}

func newSession(c *config.Config, r *detect.Resolver) *session.Session {
	return session.New(sessionOptions(c, r))
}
