// Package scheduler runs catalog refreshes on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"quakeview/internal/util/logx"
)

// RefreshFunc is invoked for each scheduled or triggered refresh.
type RefreshFunc func(ctx context.Context) error

// Status reports the refresh schedule.
type Status struct {
	Schedule  string    `json:"schedule"`
	Running   bool      `json:"running"`
	LastRun   time.Time `json:"lastRun,omitempty"`
	NextRun   time.Time `json:"nextRun,omitempty"`
	LastError string    `json:"lastError,omitempty"`
}

type Scheduler struct {
	cron    *cron.Cron
	refresh RefreshFunc
	logger  *slog.Logger

	mu       sync.Mutex
	entry    cron.EntryID
	schedule string
	running  bool
	lastRun  time.Time
	lastErr  error

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped bool
}

// New accepts standard five-field expressions and descriptors such as
// "@hourly" or "@every 5m".
func New(fn RefreshFunc) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		))),
		refresh: fn,
		logger:  logx.Logger(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger
	return s
}

// SetSchedule replaces the schedule. An empty expression disables it.
func (s *Scheduler) SetSchedule(expr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry, s.schedule = 0, ""
	}
	if expr == "" {
		return nil
	}
	id, err := s.cron.AddFunc(expr, func() { s.Trigger() })
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", expr, err)
	}
	s.entry, s.schedule = id, expr
	s.logger.Info("scheduled refresh", "schedule", expr, "next_run", s.cron.Entry(id).Next)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule, cancels a running refresh and returns a context
// that is done once everything has finished.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	s.cancel()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		cancel()
	}()
	return ctx
}

// Trigger starts a refresh now unless one is already running. It reports
// whether a refresh was started.
func (s *Scheduler) Trigger() bool {
	s.mu.Lock()
	if s.stopped || s.running {
		s.mu.Unlock()
		return false
	}
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()
	go s.run()
	return true
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	start := time.Now()
	err := s.refresh(s.ctx)

	s.mu.Lock()
	s.running = false
	s.lastRun = start
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("refresh failed", "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Info("refresh done", "duration", time.Since(start))
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Schedule: s.schedule, Running: s.running, LastRun: s.lastRun}
	if s.entry != 0 {
		st.NextRun = s.cron.Entry(s.entry).Next
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
