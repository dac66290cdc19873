package controller

import "time"

// TemperatureSensor reads the oven chamber temperature in °C.
type TemperatureSensor interface {
	ReadTemperature() (float64, error)
}

// HeaterActuator switches the heating element. Both calls are idempotent.
type HeaterActuator interface {
	On() error
	Off() error
}

// PIDController returns a correction added to the setpoint.
type PIDController interface {
	Update(current, setpoint float64) float64
}

// ProfileProvider supplies an already-loaded reflow profile.
type ProfileProvider interface {
	ProfilePoints() []Point
	StageBoundaries() StageBoundaries
	ChartRange() ChartRange
}

// Display receives operator-facing updates. Implementations must not block.
type Display interface {
	SetElapsedTimeText(text string)
	SetStageLabel(label Label)
	PushChartSample(samples []int)
	SetHeaterIndicator(on bool)
	NotifyRunStopped()
	ExpectedSampleCount() int
}

// AlertSink plays alert tunes. Fire-and-forget.
type AlertSink interface {
	Activate(token AlertToken)
}

// Scheduler drives a single periodic callback.
type Scheduler interface {
	SchedulePeriodic(period time.Duration, fn func()) error
	Cancel()
}

// Clock returns monotonic instants.
type Clock interface {
	Now() time.Time
}

// FaultReporter is optionally implemented by a Display that wants sensor
// and actuator faults.
type FaultReporter interface {
	ReportFault(phase Phase, err error)
}

// TransitionObserver is optionally implemented by a Display that wants every
// phase change.
type TransitionObserver interface {
	PhaseChanged(t Transition)
}

type resetter interface {
	Reset()
}
