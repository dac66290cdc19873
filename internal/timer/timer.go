// Package timer provides the wall-clock scheduler and clock used by the
// control loop.
package timer

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errInvalidPeriod = errors.New("timer: period must be positive")

// SystemClock reads time.Now, which carries a monotonic reading.
type SystemClock struct{}

// Now returns the current instant.
func (SystemClock) Now() time.Time { return time.Now() }

// TickerScheduler runs one periodic callback on its own goroutine.
// Scheduling again replaces the previous registration.
type TickerScheduler struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	parent context.Context
}

// NewTickerScheduler binds registrations to ctx; cancelling ctx stops them.
func NewTickerScheduler(ctx context.Context) *TickerScheduler {
	return &TickerScheduler{parent: ctx}
}

// SchedulePeriodic starts calling fn every period.
func (s *TickerScheduler) SchedulePeriodic(period time.Duration, fn func()) error {
	if period <= 0 {
		return errInvalidPeriod
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(s.parent)
	s.cancel = cancel
	go run(ctx, period, fn)
	return nil
}

// Cancel stops the active registration without waiting for an in-flight
// callback, so it may be called from inside the callback.
func (s *TickerScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Active reports whether a registration is running.
func (s *TickerScheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func run(ctx context.Context, period time.Duration, fn func()) {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			// A tick may race cancellation; re-check before running.
			if ctx.Err() != nil {
				return
			}
			fn()
		}
	}
}
