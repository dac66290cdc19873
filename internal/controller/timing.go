package controller

import (
	"fmt"
	"time"
)

// TimingTracker records the run's start instants and derives elapsed seconds.
type TimingTracker struct {
	processStart *time.Time
	preheatStart *time.Time
	reflowStart  *time.Time

	elapsed        int
	preheatElapsed int
}

// Reset clears every instant and counter.
func (t *TimingTracker) Reset() {
	*t = TimingTracker{}
}

// MarkProcessStart starts the whole-run timer.
func (t *TimingTracker) MarkProcessStart(now time.Time) { t.processStart = &now }

// MarkPreheatStart starts the preheat timer.
func (t *TimingTracker) MarkPreheatStart(now time.Time) { t.preheatStart = &now }

// MarkReflowStart starts the reflow timer.
func (t *TimingTracker) MarkReflowStart(now time.Time) { t.reflowStart = &now }

// Update recomputes the elapsed counters against now.
func (t *TimingTracker) Update(now time.Time) {
	if t.processStart != nil {
		t.elapsed = wholeSeconds(now.Sub(*t.processStart))
	}
	if t.preheatStart != nil {
		t.preheatElapsed = wholeSeconds(now.Sub(*t.preheatStart))
	}
}

// Elapsed is the whole seconds since the process started.
func (t *TimingTracker) Elapsed() int { return t.elapsed }

// PreheatElapsed is the whole seconds since preheat began.
func (t *TimingTracker) PreheatElapsed() int { return t.preheatElapsed }

// ProcessStart returns the process start instant, if set.
func (t *TimingTracker) ProcessStart() (time.Time, bool) { return deref(t.processStart) }

// PreheatStart returns the preheat start instant, if set.
func (t *TimingTracker) PreheatStart() (time.Time, bool) { return deref(t.preheatStart) }

// ReflowStart returns the reflow start instant, if set.
func (t *TimingTracker) ReflowStart() (time.Time, bool) { return deref(t.reflowStart) }

// SinceReflow reports how long reflow has been running. ok is false before
// reflow was entered.
func (t *TimingTracker) SinceReflow(now time.Time) (d time.Duration, ok bool) {
	if t.reflowStart == nil {
		return 0, false
	}
	return now.Sub(*t.reflowStart), true
}

// FormatElapsed renders seconds as mm:ss.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func wholeSeconds(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

func deref(t *time.Time) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	return *t, true
}
