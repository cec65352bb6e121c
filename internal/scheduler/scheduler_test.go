package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRetriesAfterFailedCycle(t *testing.T) {
	var calls int32
	done := make(chan struct{})

	cycle := func(ctx context.Context) error {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return errors.New("first cycle fails")
		}
		select {
		case <-done:
		default:
			close(done)
		}
		return nil
	}

	s := New(time.Hour, 5*time.Millisecond, cycle)
	go s.Start(context.Background())
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not retry after a failed first cycle")
	}
	if atomic.LoadInt32(&calls) < 2 {
		t.Errorf("expected at least 2 cycle invocations, got %d", calls)
	}
}

func TestSchedulerRecoversFromPanic(t *testing.T) {
	var calls int32
	done := make(chan struct{})

	cycle := func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("cycle blew up")
		}
		select {
		case <-done:
		default:
			close(done)
		}
		return nil
	}

	s := New(time.Hour, 5*time.Millisecond, cycle)
	go s.Start(context.Background())
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not survive a panicking cycle")
	}
}

func TestSchedulerStop(t *testing.T) {
	s := New(time.Hour, time.Minute, func(ctx context.Context) error { return nil })

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(context.Background()) }()

	deadline := time.After(2 * time.Second)
	for !s.Running() {
		select {
		case <-deadline:
			t.Fatal("scheduler never reported running")
		case <-time.After(time.Millisecond):
		}
	}

	s.Stop()
	s.Stop() // idempotent

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start returned %v after Stop, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	if s.Running() {
		t.Error("scheduler still reports running after stop")
	}
}

func TestSchedulerContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(time.Hour, time.Minute, func(ctx context.Context) error { return nil })

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
}

func TestSchedulerRejectsDoubleStart(t *testing.T) {
	s := New(time.Hour, time.Minute, func(ctx context.Context) error { return nil })

	go s.Start(context.Background())
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for !s.Running() {
		select {
		case <-deadline:
			t.Fatal("scheduler never reported running")
		case <-time.After(time.Millisecond):
		}
	}

	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start must fail while the loop is active")
	}
}

func TestSchedulerRestartsAfterStop(t *testing.T) {
	cycles := make(chan struct{}, 16)
	s := New(5*time.Millisecond, time.Minute, func(ctx context.Context) error {
		select {
		case cycles <- struct{}{}:
		default:
		}
		return nil
	})

	for round := 0; round < 2; round++ {
		errCh := make(chan error, 1)
		go func() { errCh <- s.Start(context.Background()) }()

		select {
		case <-cycles:
		case <-time.After(2 * time.Second):
			t.Fatalf("round %d: no cycle ran", round)
		}

		s.Stop()
		select {
		case err := <-errCh:
			if err != nil {
				t.Fatalf("round %d: Start returned %v", round, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("round %d: scheduler did not stop", round)
		}
	}

	for len(cycles) > 0 {
		<-cycles
	}

	// A restarted scheduler must keep cycling, not exit after one cycle.
	go s.Start(context.Background())
	defer s.Stop()

	for i := 0; i < 2; i++ {
		select {
		case <-cycles:
		case <-time.After(2 * time.Second):
			t.Fatal("restarted scheduler stopped cycling")
		}
	}
}

func TestSchedulerFirstCycleRunsImmediately(t *testing.T) {
	ran := make(chan struct{}, 1)
	s := New(time.Hour, time.Minute, func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	go s.Start(context.Background())
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle did not run immediately")
	}
}
