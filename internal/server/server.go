// Package server exposes a Session over a JSON API so a browser or script can
// act as a rendering surface next to the TUI.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"quakeview/internal/ingest"
	"quakeview/internal/scheduler"
	"quakeview/internal/session"
	"quakeview/internal/util/logx"
)

// ErrNoSource is returned by Refresh before anything was loaded, or when the
// loaded source can only be read once.
var ErrNoSource = errors.New("no catalog loaded")

// RefreshScheduler reports the state of scheduled refreshes.
type RefreshScheduler interface {
	Status() scheduler.Status
}

// Server serializes every Session access behind one mutex. Ingestion events
// are pulled on a pump goroutine and applied under the same lock.
type Server struct {
	mu   sync.Mutex
	sess *session.Session
	runs map[uint64]*run

	sched  RefreshScheduler
	logger *slog.Logger
	router chi.Router
	server *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// run tracks one generation until its terminal event.
type run struct {
	done chan struct{}
	last ingest.Event
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func WithScheduler(sched RefreshScheduler) Option {
	return func(s *Server) { s.sched = sched }
}

func New(sess *session.Session, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		sess:   sess,
		runs:   map[uint64]*run{},
		logger: logx.Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, o := range opts {
		o(s)
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimw.RequestID)
	r.Use(s.loggerMiddleware)
	r.Use(chimw.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/frame", s.handleFrame)
		r.Post("/scroll", s.handleScroll)
		r.Post("/resize", s.handleResize)
		r.Post("/page", s.handlePage)
		r.Post("/select", s.handleSelect)
		r.Delete("/select", s.handleClearSelection)
		r.Post("/sort", s.handleSort)
		r.Post("/filter", s.handleFilter)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/records/{id}", s.handleRecord)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Load starts a generation and pumps it in the background.
func (s *Server) Load(src ingest.Source, replace bool) *ingest.Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.sess.Load(s.ctx, src, replace)
	s.startPump(st)
	return st
}

// Refresh reloads the current source and returns without waiting.
func (s *Server) Refresh() (*ingest.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.sess.Refresh(s.ctx)
	if st == nil {
		return nil, ErrNoSource
	}
	s.startPump(st)
	return st, nil
}

// RefreshAndWait reloads the current source and blocks until the generation
// ends. It is the scheduler's refresh function.
func (s *Server) RefreshAndWait(ctx context.Context) error {
	st, err := s.Refresh()
	if err != nil {
		return err
	}
	return s.Wait(ctx, st.Gen())
}

// Wait blocks until generation gen ends and returns its failure, if any.
func (s *Server) Wait(ctx context.Context, gen uint64) error {
	s.mu.Lock()
	r, ok := s.runs[gen]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if r.last.Kind == ingest.KindFailed {
		return r.last.Err
	}
	return nil
}

// startPump must be called with s.mu held.
func (s *Server) startPump(st *ingest.Stream) {
	r := &run{done: make(chan struct{})}
	s.runs[st.Gen()] = r
	s.wg.Add(1)
	go s.pump(st, r)
}

func (s *Server) pump(st *ingest.Stream, r *run) {
	defer s.wg.Done()
	defer close(r.done)
	for {
		ev := st.Next(s.ctx)
		s.mu.Lock()
		s.sess.Handle(ev)
		if ev.Terminal() {
			r.last = ev
			delete(s.runs, st.Gen())
		}
		s.mu.Unlock()
		if ev.Terminal() {
			s.logger.Info("generation ended", "gen", ev.Gen, "run_id", ev.RunID, "kind", ev.Kind.String(),
				"rows", ev.RowsSeen, "rejected", ev.Rejected)
			return
		}
	}
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.logger.Info("starting API server", "addr", addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the listener, cancels ingestion and waits for the pumps.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.server != nil {
		s.logger.Info("shutting down API server")
		err = s.server.Shutdown(ctx)
	}
	s.cancel()
	s.mu.Lock()
	s.sess.Stop()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// requestID gives every request a uuid unless the client sent one. chi's
// RequestID middleware then carries it in the context.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(chimw.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(chimw.RequestIDHeader, id)
		}
		w.Header().Set(chimw.RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
