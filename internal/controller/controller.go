// Package controller implements the closed-loop reflow oven controller: the
// phase state machine, heater decisions and the dual-rate control loop.
package controller

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"reflow_oven/internal/logger"
)

// telemetryPeriod gates chart sampling and the elapsed-time display.
const telemetryPeriod = time.Second

// Config is the immutable configuration of a controller.
type Config struct {
	Tuning TuningConfig
	Sensor SensorRange
}

// Dependencies are the collaborators the controller drives.
type Dependencies struct {
	Sensor    TemperatureSensor
	Heater    HeaterActuator
	PID       PIDController
	Profile   ProfileProvider
	Display   Display
	Alerts    AlertSink
	Scheduler Scheduler
	Clock     Clock
}

// HeaterStatus is the last commanded heater state and the conditions at the
// last switch.
type HeaterStatus struct {
	On        bool      `json:"on"`
	ChangedAt time.Time `json:"changed_at"`
	ReadingC  float64   `json:"reading_c"`
}

// Fault describes the sensor or actuator failure that halted a run.
type Fault struct {
	Phase Phase     `json:"-"`
	At    time.Time `json:"at"`
	Err   error     `json:"-"`
}

// runState is mutated only while holding Controller.mu.
type runState struct {
	hasStarted    bool
	generation    uint64
	lastTelemetry *time.Time
	samples       []int
	expected      int
	stageLabel    Label
	lastTempC     float64
	lastDecision  Decision
	heater        HeaterStatus
	fault         *Fault
}

// Status is a point-in-time copy of the run state.
type Status struct {
	Phase                 Phase
	PreviousPhase         Phase
	HasStarted            bool
	ElapsedSeconds        int
	PreheatElapsedSeconds int
	StageLabel            Label
	Samples               []int
	ExpectedSamples       int
	TemperatureC          float64
	SetpointC             float64
	TargetC               float64
	Heater                HeaterStatus
	Fault                 *Fault
	ProcessStart          time.Time
	ReflowStart           time.Time
}

// Controller is the periodic control loop. All exported methods are safe for
// concurrent use.
type Controller struct {
	mu sync.Mutex

	tuning  TuningConfig
	sensorR SensorRange
	profile *Profile

	sensor    TemperatureSensor
	heater    HeaterActuator
	pid       PIDController
	display   Display
	alerts    AlertSink
	scheduler Scheduler
	clock     Clock
	log       *logger.Logger

	timing  TimingTracker
	machine *PhaseStateMachine
	engine  *HeaterDecisionEngine
	state   runState
}

// New validates configuration and profile and returns an idle controller in
// phase ready. log may be nil.
func New(cfg Config, deps Dependencies, log *logger.Logger) (*Controller, error) {
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, err
	}
	if cfg.Sensor == (SensorRange{}) {
		cfg.Sensor = DefaultSensorRange
	}
	if cfg.Sensor.MaxC <= cfg.Sensor.MinC {
		return nil, &ConfigError{Key: "sensor", Reason: "max_c must exceed min_c"}
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	profile, err := LoadProfile(deps.Profile)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		tuning:    cfg.Tuning,
		sensorR:   cfg.Sensor,
		profile:   profile,
		sensor:    deps.Sensor,
		heater:    deps.Heater,
		pid:       deps.PID,
		display:   deps.Display,
		alerts:    deps.Alerts,
		scheduler: deps.Scheduler,
		clock:     deps.Clock,
		log:       log,
	}
	c.machine = NewPhaseStateMachine(profile.Stages(), &c.timing, c.onTransition)
	c.engine = NewHeaterDecisionEngine(profile, cfg.Tuning, deps.PID)
	c.state.stageLabel = StageLabel(PhaseReady)
	c.display.SetElapsedTimeText(FormatElapsed(0))
	return c, nil
}

func (d Dependencies) validate() error {
	missing := func(name string) error {
		return fmt.Errorf("controller: missing %s dependency", name)
	}
	switch {
	case d.Sensor == nil:
		return missing("sensor")
	case d.Heater == nil:
		return missing("heater")
	case d.PID == nil:
		return missing("pid")
	case d.Display == nil:
		return missing("display")
	case d.Alerts == nil:
		return missing("alerts")
	case d.Scheduler == nil:
		return missing("scheduler")
	case d.Clock == nil:
		return missing("clock")
	}
	return nil
}

// Profile returns the validated profile the controller runs.
func (c *Controller) Profile() *Profile { return c.profile }

// Tuning returns the tuning parameters.
func (c *Controller) Tuning() TuningConfig { return c.tuning }

// StartRun begins a run. The first phase is wait when the chamber is still
// hot, start otherwise. A faulty initial reading leaves the controller in
// ready with the heater off.
func (c *Controller) StartRun() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.hasStarted {
		return ErrRunInProgress
	}
	now := c.clock.Now()

	temp, err := c.readSensor()
	if err != nil {
		c.forceHeaterOff(c.state.lastTempC, now)
		c.machine.Set(PhaseReady, now)
		c.logw("run_start_refused", "err", err)
		return err
	}

	// A halted run leaves its phase for diagnostics; return to ready first.
	c.machine.Set(PhaseReady, now)
	c.timing.Reset()
	if r, ok := c.pid.(resetter); ok {
		r.Reset()
	}

	gen := c.state.generation + 1
	c.state = runState{
		hasStarted: true,
		generation: gen,
		expected:   c.display.ExpectedSampleCount(),
		stageLabel: c.state.stageLabel,
		lastTempC:  temp,
		heater:     c.state.heater,
	}
	c.display.PushChartSample(nil)

	c.machine.Begin(temp, now)

	if err := c.scheduler.SchedulePeriodic(c.tuning.TickPeriod(), func() { c.tick(gen) }); err != nil {
		c.stopLocked(now)
		return fmt.Errorf("schedule control loop: %w", err)
	}
	c.logw("run_started", "phase", c.machine.Phase().String(), "temp_c", temp, "period", c.tuning.TickPeriod())
	return nil
}

// StopRun cancels the control loop and returns to ready with the heater off.
// It is idempotent.
func (c *Controller) StopRun() {
	c.mu.Lock()
	defer c.mu.Unlock()
	wasRunning := c.state.hasStarted
	c.stopLocked(c.clock.Now())
	if wasRunning {
		c.logw("run_stopped")
	}
}

// Tick runs one control step of the active run. The scheduler normally calls
// it; it is exported for callers that drive the loop themselves.
func (c *Controller) Tick() {
	c.mu.Lock()
	gen := c.state.generation
	c.mu.Unlock()
	c.tick(gen)
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Ticks from a cancelled registration are ignored.
	if gen != c.state.generation {
		return
	}
	if !c.state.hasStarted {
		c.scheduler.Cancel()
		return
	}

	now := c.clock.Now()
	temp, err := c.readSensor()
	if err != nil {
		c.haltOnFault(err, now)
		return
	}
	c.state.lastTempC = temp

	c.timing.Update(now)
	c.machine.Advance(temp, now)
	phase := c.machine.Phase()

	if phase == PhaseCool && len(c.state.samples) >= c.state.expected {
		c.complete(now)
		return
	}

	decision := c.engine.Decide(phase, temp, c.timing.Elapsed(), c.timing.PreheatElapsed())
	c.state.lastDecision = decision
	if err := c.applyHeater(decision.On, temp, now); err != nil {
		c.haltOnFault(err, now)
		return
	}

	c.telemetry(phase, temp, now)
}

// telemetry is the 1 Hz path. The reference resets to now on every firing.
func (c *Controller) telemetry(phase Phase, temp float64, now time.Time) {
	if c.state.lastTelemetry == nil {
		c.state.lastTelemetry = &now
		return
	}
	if now.Sub(*c.state.lastTelemetry) < telemetryPeriod {
		return
	}
	if phase.Sampled() {
		c.sampleChart(temp)
		c.display.SetElapsedTimeText(FormatElapsed(c.timing.Elapsed()))
	}
	c.state.lastTelemetry = &now
}

func (c *Controller) sampleChart(temp float64) {
	if temp < c.profile.chart.Low || len(c.state.samples) >= c.state.expected {
		return
	}
	c.state.samples = append(c.state.samples, int(math.Trunc(temp)))
	out := make([]int, len(c.state.samples))
	copy(out, c.state.samples)
	c.display.PushChartSample(out)
}

func (c *Controller) onTransition(t Transition) {
	if token, ok := AlertFor(t.To); ok {
		c.alerts.Activate(token)
	}
	c.state.stageLabel = StageLabel(t.To)
	c.display.SetStageLabel(c.state.stageLabel)
	if o, ok := c.display.(TransitionObserver); ok {
		o.PhaseChanged(t)
	}
	c.logw("phase_changed", "from", t.From.String(), "to", t.To.String())
}

// complete ends a run whose chart has filled while cooling.
func (c *Controller) complete(now time.Time) {
	c.alerts.Activate(AlertStop)
	c.state.hasStarted = false
	c.logw("run_completed", "samples", len(c.state.samples))
	c.stopLocked(now)
	c.display.NotifyRunStopped()
}

// haltOnFault turns the heater off and stops advancing. The phase is kept so
// the operator can see where the run failed.
func (c *Controller) haltOnFault(err error, now time.Time) {
	phase := c.machine.Phase()
	c.scheduler.Cancel()
	c.state.generation++
	c.state.hasStarted = false
	c.forceHeaterOff(c.state.lastTempC, now)
	c.state.fault = &Fault{Phase: phase, At: now, Err: err}
	if r, ok := c.display.(FaultReporter); ok {
		r.ReportFault(phase, err)
	}
	c.display.NotifyRunStopped()
	if c.log != nil {
		c.log.Errorw("run_halted", "phase", phase.String(), "err", err)
	}
}

func (c *Controller) stopLocked(now time.Time) {
	c.scheduler.Cancel()
	c.state.generation++
	c.state.hasStarted = false
	c.state.lastTelemetry = nil
	c.forceHeaterOff(c.state.lastTempC, now)

	c.timing.Reset()
	c.display.SetElapsedTimeText(FormatElapsed(0))
	if c.machine.Phase() == PhaseReady {
		return
	}
	// Cleared first; entering ready then shows its own label.
	c.state.stageLabel = Label{}
	c.display.SetStageLabel(c.state.stageLabel)
	c.machine.Set(PhaseReady, now)
}

func (c *Controller) readSensor() (float64, error) {
	v, err := c.sensor.ReadTemperature()
	if err != nil {
		return 0, &SensorError{Reading: v, Err: err}
	}
	if !c.sensorR.contains(v) {
		return 0, &SensorError{Reading: v, Err: ErrSensorOutOfRange}
	}
	return v, nil
}

func (c *Controller) applyHeater(on bool, temp float64, now time.Time) error {
	if !on {
		c.forceHeaterOff(temp, now)
		return nil
	}
	if err := c.heater.On(); err != nil {
		return fmt.Errorf("heater on: %w", err)
	}
	c.recordHeater(true, temp, now)
	return nil
}

// forceHeaterOff commands the heater off. Failures are logged; there is no
// safer state to fall back to.
func (c *Controller) forceHeaterOff(temp float64, now time.Time) {
	if err := c.heater.Off(); err != nil && c.log != nil {
		c.log.Errorw("heater_off_failed", "err", err)
	}
	c.recordHeater(false, temp, now)
}

func (c *Controller) recordHeater(on bool, temp float64, now time.Time) {
	if c.state.heater.On == on && !c.state.heater.ChangedAt.IsZero() {
		return
	}
	c.state.heater = HeaterStatus{On: on, ChangedAt: now, ReadingC: temp}
	c.display.SetHeaterIndicator(on)
}

// Snapshot returns a copy of the current run state.
func (c *Controller) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	samples := make([]int, len(c.state.samples))
	copy(samples, c.state.samples)
	st := Status{
		Phase:                 c.machine.Phase(),
		PreviousPhase:         c.machine.Previous(),
		HasStarted:            c.state.hasStarted,
		ElapsedSeconds:        c.timing.Elapsed(),
		PreheatElapsedSeconds: c.timing.PreheatElapsed(),
		StageLabel:            c.state.stageLabel,
		Samples:               samples,
		ExpectedSamples:       c.state.expected,
		TemperatureC:          c.state.lastTempC,
		SetpointC:             c.state.lastDecision.Setpoint,
		TargetC:               c.state.lastDecision.Target,
		Heater:                c.state.heater,
	}
	if c.state.fault != nil {
		f := *c.state.fault
		st.Fault = &f
	}
	st.ProcessStart, _ = c.timing.ProcessStart()
	st.ReflowStart, _ = c.timing.ReflowStart()
	return st
}

// LastFault returns the error that halted the last run, if any.
func (c *Controller) LastFault() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.fault == nil {
		return nil
	}
	return c.state.fault.Err
}

// IsSensorFault reports whether err is a sensor failure.
func IsSensorFault(err error) bool {
	var se *SensorError
	return errors.As(err, &se)
}

func (c *Controller) logw(msg string, kv ...interface{}) {
	if c.log != nil {
		c.log.Infow(msg, kv...)
	}
}
