package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"quakeview/internal/util"
	"quakeview/internal/util/logx"
	"quakeview/internal/version"
)

const (
	defaultAttempts = 4
	defaultBackoff  = 500 * time.Millisecond
	maxBackoff      = 30 * time.Second
	defaultTimeout  = 30 * time.Second
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", util.RedactPII(e.URL), e.Code)
}

// Retryable reports whether another attempt may succeed.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client fetches text over HTTP with per-attempt timeouts, bounded
// exponential backoff, a client-side rate limit, an optional response cache
// and duplicate suppression for concurrent identical requests.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      Cache
	group      singleflight.Group
	attempts   int
	backoff    time.Duration
	timeout    time.Duration
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }

// WithCache injects the response cache; nil disables caching.
func WithCache(cache Cache) Option { return func(c *Client) { c.cache = cache } }

// WithRateLimit allows qps requests per second with the given burst. qps <= 0
// disables limiting.
func WithRateLimit(qps float64, burst int) Option {
	return func(c *Client) {
		if qps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(qps), burst)
	}
}

// WithRetry sets the total number of attempts and the base backoff.
func WithRetry(attempts int, base time.Duration) Option {
	return func(c *Client) {
		if attempts < 1 {
			attempts = 1
		}
		c.attempts = attempts
		c.backoff = base
	}
}

func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.logger = l } }

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		attempts:   defaultAttempts,
		backoff:    defaultBackoff,
		timeout:    defaultTimeout,
		logger:     logx.Logger(),
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invalidate drops a cached body so the next FetchText goes to the network.
func (c *Client) Invalidate(url string) {
	if c.cache != nil {
		c.cache.Invalidate(url)
	}
}

// Purge empties the response cache.
func (c *Client) Purge() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

// FetchText returns the full body of url. Concurrent calls for the same URL
// share one network request.
func (c *Client) FetchText(ctx context.Context, url string) (string, error) {
	if c.cache != nil {
		if body, ok := c.cache.Get(url); ok {
			c.logger.Debug("fetch cache hit", "url", util.RedactPII(url))
			return body, nil
		}
	}
	// the shared request outlives any single caller; each caller still
	// stops waiting on its own ctx below
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(url, func() (any, error) {
		body, err := c.fetchWithRetry(shared, url)
		if err == nil && c.cache != nil {
			c.cache.Set(url, body)
		}
		return body, err
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) fetchWithRetry(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			d := c.calculateBackoff(attempt)
			c.logger.Debug("retrying fetch", "attempt", attempt, "backoff", d, "url", util.RedactPII(url))
			if err := c.sleep(ctx, d); err != nil {
				return "", err
			}
		}
		body, err := c.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return "", err
		}
	}
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, url string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.do(actx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(b), nil
}

// Open starts a streaming download. Retries cover connection and status
// failures; the timeout bounds the wait for response headers only, so a
// long body can keep streaming.
func (c *Client) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.calculateBackoff(attempt)); err != nil {
				return nil, err
			}
		}
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		sctx, cancel := context.WithCancel(ctx)
		timer := time.AfterFunc(c.timeout, cancel)
		resp, err := c.do(sctx, url)
		stopped := timer.Stop()
		if err == nil && stopped {
			return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
		}
		if err == nil {
			resp.Body.Close()
			err = context.DeadlineExceeded
		}
		cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return nil, err
		}
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "text/csv, text/plain, */*")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}
	return resp, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

// calculateBackoff is exponential with full jitter, capped at maxBackoff.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	if c.backoff <= 0 {
		return 0
	}
	d := c.backoff << uint(attempt-1)
	if d > maxBackoff || d <= 0 {
		d = maxBackoff
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
