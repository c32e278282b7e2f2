package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSetScheduleValidates(t *testing.T) {
	s := New(func(context.Context) error { return nil })
	if err := s.SetSchedule("not a cron"); err == nil {
		t.Fatalf("expected error for invalid expression")
	}
	if err := s.SetSchedule("@every 5m"); err != nil {
		t.Fatalf("SetSchedule: %v", err)
	}
	if err := s.SetSchedule("*/10 * * * *"); err != nil {
		t.Fatalf("SetSchedule: %v", err)
	}
	s.Start()
	defer s.Stop()
	if st := s.Status(); st.Schedule != "*/10 * * * *" || st.NextRun.IsZero() {
		t.Fatalf("status = %+v", st)
	}
	if err := s.SetSchedule(""); err != nil || s.Status().Schedule != "" {
		t.Fatalf("empty schedule should disable")
	}
}

func TestTriggerRunsOnceAtATime(t *testing.T) {
	release := make(chan struct{})
	calls := make(chan struct{}, 4)
	s := New(func(ctx context.Context) error {
		calls <- struct{}{}
		<-release
		return errors.New("feed down")
	})
	if !s.Trigger() {
		t.Fatalf("first trigger should start")
	}
	<-calls
	if s.Trigger() {
		t.Fatalf("second trigger should be skipped while running")
	}
	close(release)
	<-s.Stop().Done()
	st := s.Status()
	if st.Running || st.LastError != "feed down" || st.LastRun.IsZero() {
		t.Fatalf("status = %+v", st)
	}
	if s.Trigger() {
		t.Fatalf("trigger after stop should be ignored")
	}
}

func TestStopCancelsRunningRefresh(t *testing.T) {
	started := make(chan struct{})
	s := New(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	s.Trigger()
	<-started
	select {
	case <-s.Stop().Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("stop did not finish")
	}
}
