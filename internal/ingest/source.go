package ingest

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync/atomic"

	"github.com/nxadm/tail"

	"quakeview/internal/fetch"
	"quakeview/internal/util/logx"
)

// Source yields the raw bytes of one delimited-text catalog.
type Source interface {
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// follower is implemented by sources that never reach EOF on their own.
type follower interface {
	Follows() bool
}

// BufferSource is an already completed text buffer.
type BufferSource struct {
	Label string
	Data  []byte
}

func (s BufferSource) Name() string {
	if s.Label == "" {
		return "buffer"
	}
	return s.Label
}

func (s BufferSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}

// FileSource reads a local file, optionally following appends.
type FileSource struct {
	Path   string
	Follow bool
}

func (s FileSource) Name() string  { return s.Path }
func (s FileSource) Follows() bool { return s.Follow }

func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if !s.Follow {
		return os.Open(s.Path)
	}
	t, err := tail.TailFile(s.Path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
		Poll:      true,
	})
	if err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	go func() {
		defer t.Cleanup()
		for {
			select {
			case <-ctx.Done():
				_ = t.Stop()
				pw.CloseWithError(ctx.Err())
				return
			case l, ok := <-t.Lines:
				if !ok {
					pw.Close()
					return
				}
				if l.Err != nil {
					logx.Warnf("ingest: tail %s: %v", s.Path, l.Err)
					continue
				}
				if _, err := io.WriteString(pw, l.Text+"\n"); err != nil {
					_ = t.Stop()
					return
				}
			}
		}
	}()
	return pr, nil
}

// StdinSource reads the process's standard input.
type StdinSource struct{}

func (StdinSource) Name() string { return "stdin" }

func (StdinSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(os.Stdin), nil
}

// OneShot reports that stdin can only be read once.
func (StdinSource) OneShot() bool { return true }

// URLSource downloads a catalog. With Stream set the body is parsed while it
// downloads; otherwise it is fetched in full first (and may be served from
// the client's cache).
type URLSource struct {
	URL    string
	Client *fetch.Client
	Stream bool
}

func (s URLSource) Name() string { return s.URL }

func (s URLSource) Open(ctx context.Context) (io.ReadCloser, error) {
	c := s.Client
	if c == nil {
		c = fetch.NewClient()
	}
	if s.Stream {
		return c.Open(ctx, s.URL)
	}
	body, err := c.FetchText(ctx, s.URL)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader([]byte(body))), nil
}

// countingReader tracks bytes read for progress reporting.
type countingReader struct {
	r io.Reader
	n *atomic.Int64
}

func (c countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// Invalidate drops any cached body so the next Open hits the network.
func (s URLSource) Invalidate() {
	if s.Client != nil {
		s.Client.Invalidate(s.URL)
	}
}
