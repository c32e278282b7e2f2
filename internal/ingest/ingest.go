package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"quakeview/internal/detect"
	"quakeview/internal/model"
	"quakeview/internal/parse"
	"quakeview/internal/util/logx"
)

// Fatal ingestion errors. Failed events wrap one of these.
var (
	ErrEmptySource = errors.New("source is empty")
	ErrUnreachable = errors.New("source unreachable")
	ErrNoValidRows = errors.New("no valid rows")
)

const (
	DefaultChunkSize       = 100
	DefaultRejectWarnRatio = 0.10
	DefaultFlushInterval   = 500 * time.Millisecond

	sampleRows = 20
	queueSize  = 1024
)

type Options struct {
	ChunkSize       int
	RejectWarnRatio float64
	FlushInterval   time.Duration // follow-mode partial chunk flush
	Delimiter       rune
	Resolver        *detect.Resolver
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.RejectWarnRatio <= 0 {
		o.RejectWarnRatio = DefaultRejectWarnRatio
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = DefaultFlushInterval
	}
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	return o
}

type Kind int

const (
	KindChunk Kind = iota + 1
	KindComplete
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindChunk:
		return "chunk"
	case KindComplete:
		return "complete"
	case KindFailed:
		return "failed"
	}
	return "unknown"
}

// Event is one step of a Stream. Exactly one terminal event (Complete or
// Failed) ends every non-follow stream.
type Event struct {
	Kind     Kind
	Gen      uint64
	RunID    string
	Chunk    model.Chunk
	RowsSeen int
	Rejected int
	Err      error
}

func (e Event) Terminal() bool { return e.Kind == KindComplete || e.Kind == KindFailed }

// Ingestor starts streams and owns the generation counter. Starting a new
// stream cancels the one in flight.
type Ingestor struct {
	opts Options

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func New(opts Options) *Ingestor {
	return &Ingestor{opts: opts.withDefaults()}
}

// Current returns the latest generation handed out.
func (in *Ingestor) Current() uint64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.gen
}

// Stop cancels the in-flight stream, if any.
func (in *Ingestor) Stop() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.cancel != nil {
		in.cancel()
		in.cancel = nil
	}
}

// Start begins a new generation reading src.
func (in *Ingestor) Start(ctx context.Context, src Source) *Stream {
	in.mu.Lock()
	if in.cancel != nil {
		in.cancel()
	}
	in.gen++
	gen := in.gen
	sctx, cancel := context.WithCancel(ctx)
	in.cancel = cancel
	in.mu.Unlock()

	s := &Stream{
		gen:    gen,
		runID:  uuid.NewString(),
		source: src.Name(),
		opts:   in.opts,
		items:  make(chan item, queueSize),
		ctx:    sctx,
		cancel: cancel,
		bytes:  new(atomic.Int64),
	}
	if f, ok := src.(follower); ok {
		s.follow = f.Follows()
	}
	logx.Infof("ingest[%s]: gen=%d start source=%s", s.short(), gen, s.source)
	go s.produce(sctx, src)
	return s
}

type item struct {
	header  []string
	mapping detect.Mapping
	fields  []string
	bad     error // unreadable row, counted as rejected
	err     error // terminal
}

// Stream is a pull sequence of Events for one generation.
type Stream struct {
	gen    uint64
	runID  string
	source string
	opts   Options
	follow bool
	items  chan item
	ctx    context.Context
	cancel context.CancelFunc
	bytes  *atomic.Int64

	header   []string
	mapping  detect.Mapping
	pending  []model.Record
	rows     int
	rejected int
	valid    int
	winRows  int
	winRej   int
	done     bool
	terminal *Event
}

func (s *Stream) Gen() uint64 { return s.gen }

func (s *Stream) RunID() string { return s.runID }

func (s *Stream) Source() string { return s.source }

// BytesRead counts raw input bytes consumed so far.
func (s *Stream) BytesRead() int64 { return s.bytes.Load() }

func (s *Stream) Follows() bool { return s.follow }

// Cancel stops the producer. The next call to Next reports the cancellation.
func (s *Stream) Cancel() { s.cancel() }

func (s *Stream) short() string { return s.runID[:8] }

func (s *Stream) produce(ctx context.Context, src Source) {
	defer close(s.items)
	send := func(it item) bool {
		select {
		case s.items <- it:
			return true
		case <-ctx.Done():
			return false
		}
	}

	rc, err := src.Open(ctx)
	if err != nil {
		send(item{err: fmt.Errorf("%w: %s: %v", ErrUnreachable, src.Name(), err)})
		return
	}
	defer rc.Close()

	r := csv.NewReader(normalize(countingReader{r: rc, n: s.bytes}))
	r.Comma = s.opts.Delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, io.EOF) {
			send(item{err: fmt.Errorf("%w: %s", ErrEmptySource, src.Name())})
		} else {
			send(item{err: readErr(src.Name(), err)})
		}
		return
	}
	if blankRow(header) {
		send(item{err: fmt.Errorf("%w: %s: blank header", ErrEmptySource, src.Name())})
		return
	}

	var buffered []item
	guess := detect.Heuristics(header)
	if !guess.Complete() && s.opts.Resolver != nil {
		var sample [][]string
		for len(sample) < sampleRows {
			rec, err := r.Read()
			if err != nil {
				var pe *csv.ParseError
				if errors.As(err, &pe) {
					buffered = append(buffered, item{bad: err})
					continue
				}
				if !errors.Is(err, io.EOF) {
					buffered = append(buffered, item{err: readErr(src.Name(), err)})
				}
				break
			}
			sample = append(sample, rec)
			buffered = append(buffered, item{fields: rec})
		}
		guess = s.opts.Resolver.Resolve(ctx, header, sample)
	}
	if !guess.Complete() {
		logx.Warnf("ingest[%s]: header has no column for %v", s.short(), guess.Missing)
	}
	if !send(item{header: header, mapping: guess.Mapping}) {
		return
	}
	for _, it := range buffered {
		if !send(it) || it.err != nil {
			return
		}
	}

	for {
		if ctx.Err() != nil {
			return
		}
		rec, err := r.Read()
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				if !send(item{bad: err}) {
					return
				}
				continue
			}
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}
			send(item{err: readErr(src.Name(), err)})
			return
		}
		if !send(item{fields: rec}) {
			return
		}
	}
}

func readErr(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnreachable, name, err)
}

func blankRow(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Next performs one bounded step: it consumes rows until a chunk is ready or
// the stream ends, and returns the resulting event. Once a terminal event has
// been returned, Next keeps returning it.
func (s *Stream) Next(ctx context.Context) Event {
	if s.terminal != nil {
		return *s.terminal
	}
	if s.done {
		return s.finish(s.ctx.Err())
	}

	// In follow mode a partial chunk is flushed FlushInterval after its first
	// record, so a slow live tail still paints.
	var flush <-chan time.Time
	var timer *time.Timer
	arm := func() {
		if !s.follow || flush != nil {
			return
		}
		timer = time.NewTimer(s.opts.FlushInterval)
		flush = timer.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	if len(s.pending) > 0 {
		arm()
	}

	for {
		select {
		case <-ctx.Done():
			s.cancel()
			return s.finish(ctx.Err())
		case <-flush:
			return s.emit(false)
		case it, ok := <-s.items:
			if !ok {
				s.done = true
				if err := s.ctx.Err(); err != nil {
					return s.finish(err)
				}
				if len(s.pending) > 0 {
					return s.emit(true)
				}
				return s.finish(nil)
			}
			if it.err != nil {
				s.done = true
				return s.finish(it.err)
			}
			if it.header != nil {
				s.header, s.mapping = it.header, it.mapping
				continue
			}
			s.consume(it)
			if len(s.pending) >= s.opts.ChunkSize {
				return s.emit(false)
			}
			if len(s.pending) > 0 {
				arm()
			}
		}
	}
}

func (s *Stream) consume(it item) {
	s.rows++
	s.winRows++
	if it.bad != nil {
		s.reject(it.bad)
		return
	}
	rec, err := parse.Parse(s.mapping.Row(s.header, it.fields))
	if err != nil {
		s.reject(err)
		return
	}
	s.valid++
	s.pending = append(s.pending, rec)
}

func (s *Stream) reject(err error) {
	s.rejected++
	s.winRej++
	logx.Debugf("ingest[%s]: row %d rejected: %v", s.short(), s.rows, err)
}

func (s *Stream) emit(final bool) Event {
	c := model.Chunk{
		Gen:      s.gen,
		Records:  s.pending,
		RowsSeen: s.rows,
		Rejected: s.rejected,
		Final:    final,
	}
	if s.winRows > 0 {
		ratio := float64(s.winRej) / float64(s.winRows)
		if ratio > s.opts.RejectWarnRatio {
			c.Warning = &model.RejectWarning{Rows: s.winRows, Rejected: s.winRej, Ratio: ratio}
			logx.Warnf("ingest[%s]: %d of %d rows rejected since last chunk", s.short(), s.winRej, s.winRows)
		}
	}
	s.pending = nil
	s.winRows, s.winRej = 0, 0
	return Event{Kind: KindChunk, Gen: s.gen, RunID: s.runID, Chunk: c, RowsSeen: s.rows, Rejected: s.rejected}
}

func (s *Stream) finish(err error) Event {
	ev := Event{Gen: s.gen, RunID: s.runID, RowsSeen: s.rows, Rejected: s.rejected}
	switch {
	case err != nil:
		ev.Kind, ev.Err = KindFailed, err
	case s.valid == 0:
		ev.Kind = KindFailed
		ev.Err = fmt.Errorf("%w: %d rows seen, %d rejected", ErrNoValidRows, s.rows, s.rejected)
	default:
		ev.Kind = KindComplete
	}
	if ev.Kind == KindFailed {
		logx.Errorf("ingest[%s]: gen=%d failed: %v", s.short(), s.gen, ev.Err)
	} else {
		logx.Infof("ingest[%s]: gen=%d complete rows=%d rejected=%d", s.short(), s.gen, s.rows, s.rejected)
	}
	s.terminal = &ev
	s.cancel()
	return ev
}

// Drain pulls events until the terminal one and returns the chunks seen.
func Drain(ctx context.Context, s *Stream) ([]model.Chunk, Event) {
	var chunks []model.Chunk
	for {
		ev := s.Next(ctx)
		if ev.Terminal() {
			return chunks, ev
		}
		chunks = append(chunks, ev.Chunk)
	}
}
