// Package scheduler repeats a cycle function on a fixed interval.
// A failing cycle is logged and retried after a short backoff; nothing a
// cycle does can terminate the scheduler.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// CycleFunc is one unit of scheduled work. The context carries the
// scheduler's cancellation; implementations must bound their own blocking
// calls.
type CycleFunc func(ctx context.Context) error

// Scheduler drives a CycleFunc forever until stopped. Cancellation is
// cooperative: Stop (or context cancellation) takes effect at the next
// wait boundary, never mid-cycle.
type Scheduler struct {
	interval time.Duration
	backoff  time.Duration
	cycle    CycleFunc

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// New creates a scheduler. backoff is the wait after a failed cycle and
// should be shorter than interval; non-positive values fall back to
// 1h / 1m.
func New(interval, backoff time.Duration, cycle CycleFunc) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if backoff <= 0 {
		backoff = time.Minute
	}
	return &Scheduler{
		interval: interval,
		backoff:  backoff,
		cycle:    cycle,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the scheduling loop until ctx is cancelled or Stop is called.
// The first cycle runs immediately; each subsequent cycle runs after the
// interval, or after the backoff when the previous cycle failed. Cycle
// panics are recovered and treated as cycle failures. A stopped scheduler
// can be started again.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	log.Printf("Scheduler started: interval=%v, backoff=%v", s.interval, s.backoff)

	for {
		wait := s.interval
		if err := s.runCycle(ctx); err != nil {
			log.Printf("ERROR: cycle failed (retrying in %v): %v", s.backoff, err)
			wait = s.backoff
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("Scheduler stopping (context cancelled)")
			return ctx.Err()
		case <-stopCh:
			timer.Stop()
			log.Println("Scheduler stopping (stop requested)")
			return nil
		case <-timer.C:
		}
	}
}

// Stop requests a graceful stop. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
}

// Running reports whether the scheduling loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// runCycle executes one cycle, converting a panic into an error so a
// misbehaving cycle cannot take the scheduler down with it.
func (s *Scheduler) runCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panicked: %v", r)
		}
	}()
	return s.cycle(ctx)
}
