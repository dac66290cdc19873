package controller

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ---- Test doubles ----

type fakeSensor struct {
	temp  float64
	err   error
	reads int
}

func (s *fakeSensor) ReadTemperature() (float64, error) {
	s.reads++
	return s.temp, s.err
}

type fakeHeater struct {
	on       bool
	onCalls  int
	offCalls int
	onErr    error
}

func (h *fakeHeater) On() error {
	h.onCalls++
	if h.onErr != nil {
		return h.onErr
	}
	h.on = true
	return nil
}

func (h *fakeHeater) Off() error {
	h.offCalls++
	h.on = false
	return nil
}

type stubPID struct {
	out    float64
	calls  int
	last   [2]float64
	resets int
}

func (p *stubPID) Update(current, setpoint float64) float64 {
	p.calls++
	p.last = [2]float64{current, setpoint}
	return p.out
}

func (p *stubPID) Reset() { p.resets++ }

type fakeDisplay struct {
	elapsed     []string
	labels      []Label
	charts      [][]int
	indicator   []bool
	stopped     int
	expected    int
	transitions []Transition
	faults      []error
}

func (d *fakeDisplay) SetElapsedTimeText(text string) { d.elapsed = append(d.elapsed, text) }
func (d *fakeDisplay) SetStageLabel(l Label)           { d.labels = append(d.labels, l) }
func (d *fakeDisplay) PushChartSample(s []int)         { d.charts = append(d.charts, s) }
func (d *fakeDisplay) SetHeaterIndicator(on bool)      { d.indicator = append(d.indicator, on) }
func (d *fakeDisplay) NotifyRunStopped()               { d.stopped++ }
func (d *fakeDisplay) ExpectedSampleCount() int        { return d.expected }
func (d *fakeDisplay) PhaseChanged(t Transition)       { d.transitions = append(d.transitions, t) }
func (d *fakeDisplay) ReportFault(_ Phase, err error)  { d.faults = append(d.faults, err) }

type fakeAlerts struct {
	tokens []AlertToken
}

func (a *fakeAlerts) Activate(t AlertToken) { a.tokens = append(a.tokens, t) }

func (a *fakeAlerts) count(t AlertToken) int {
	n := 0
	for _, got := range a.tokens {
		if got == t {
			n++
		}
	}
	return n
}

// manualScheduler stores the callback; tests fire it explicitly.
type manualScheduler struct {
	fn        func()
	period    time.Duration
	active    bool
	schedules int
	cancels   int
	err       error
}

func (s *manualScheduler) SchedulePeriodic(period time.Duration, fn func()) error {
	if s.err != nil {
		return s.err
	}
	s.fn, s.period, s.active = fn, period, true
	s.schedules++
	return nil
}

func (s *manualScheduler) Cancel() {
	s.active = false
	s.cancels++
}

func (s *manualScheduler) fire() {
	if s.active && s.fn != nil {
		s.fn()
	}
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type testProfile struct {
	points []Point
	stages StageBoundaries
	chart  ChartRange
}

func (p testProfile) ProfilePoints() []Point           { return p.points }
func (p testProfile) StageBoundaries() StageBoundaries { return p.stages }
func (p testProfile) ChartRange() ChartRange           { return p.chart }

// leadedProfile is the six-point Sn63/Pb37 curve.
func leadedProfile() testProfile {
	return testProfile{
		points: []Point{{0, 30}, {60, 150}, {180, 180}, {220, 220}, {400, 220}, {420, 30}},
		stages: StageBoundaries{
			Preheat: Point{60, 150},
			Soak:    Point{180, 180},
			Reflow:  Point{220, 220},
			Cool:    Point{420, 30},
		},
		chart: ChartRange{Low: 30, High: 250},
	}
}

func testTuning() TuningConfig {
	return TuningConfig{
		SamplingHz:                10,
		PreheatUntilTemp:          100,
		ProvisioningOffsetSeconds: 0,
		OvershootCompensation:     0,
	}
}

// ---- Rig ----

type rig struct {
	c       *Controller
	sensor  *fakeSensor
	heater  *fakeHeater
	pid     *stubPID
	display *fakeDisplay
	alerts  *fakeAlerts
	sched   *manualScheduler
	clock   *fakeClock
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		sensor:  &fakeSensor{temp: 25},
		heater:  &fakeHeater{},
		pid:     &stubPID{},
		display: &fakeDisplay{expected: 1000},
		alerts:  &fakeAlerts{},
		sched:   &manualScheduler{},
		clock:   &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	c, err := New(Config{Tuning: testTuning()}, Dependencies{
		Sensor:    r.sensor,
		Heater:    r.heater,
		PID:       r.pid,
		Profile:   leadedProfile(),
		Display:   r.display,
		Alerts:    r.alerts,
		Scheduler: r.sched,
		Clock:     r.clock,
	}, nil)
	require.NoError(t, err)
	r.c = c
	return r
}

// tick sets the next reading, advances the clock and fires the scheduler.
func (r *rig) tick(temp float64, d time.Duration) Phase {
	r.sensor.temp = temp
	r.clock.advance(d)
	r.sched.fire()
	return r.c.Snapshot().Phase
}

func (r *rig) start(t *testing.T, temp float64) {
	t.Helper()
	r.sensor.temp = temp
	require.NoError(t, r.c.StartRun())
}

// driveToReflow runs start→preheat→soak→reflow one guard per tick.
func (r *rig) driveToReflow(t *testing.T) {
	t.Helper()
	r.start(t, 25)
	require.Equal(t, PhasePreheat, r.tick(90, 100*time.Millisecond))
	require.Equal(t, PhaseSoak, r.tick(180, 100*time.Millisecond))
	require.Equal(t, PhaseReflow, r.tick(220, 100*time.Millisecond))
}

var errProbe = errors.New("probe disconnected")
