package controller

import (
	"math"
	"time"
)

const (
	// WaitThresholdC is the chamber temperature at or above which a run
	// waits for the oven to cool before starting.
	WaitThresholdC = 50.0
	// preheatEntryFraction of the preheat boundary temperature ends the start phase.
	preheatEntryFraction = 0.6
	// reflowHoldMargin shortens the minimum reflow hold before cooling.
	reflowHoldMargin = 20 * time.Second
)

// Transition is a single phase change.
type Transition struct {
	From Phase
	To   Phase
	At   time.Time
}

// PhaseStateMachine tracks the current phase and evaluates the transition
// guards once per control tick.
type PhaseStateMachine struct {
	stages StageBoundaries
	timing *TimingTracker

	phase    Phase
	previous Phase

	onTransition func(Transition)
}

// NewPhaseStateMachine starts in ready. onTransition runs synchronously for
// every change, before the next guard is evaluated.
func NewPhaseStateMachine(stages StageBoundaries, timing *TimingTracker, onTransition func(Transition)) *PhaseStateMachine {
	return &PhaseStateMachine{
		stages:       stages,
		timing:       timing,
		phase:        PhaseReady,
		previous:     PhaseReady,
		onTransition: onTransition,
	}
}

// Phase is the current phase.
func (m *PhaseStateMachine) Phase() Phase { return m.phase }

// Previous is the phase before the last change.
func (m *PhaseStateMachine) Previous() Phase { return m.previous }

// Set moves to next. Setting the current phase is a no-op.
func (m *PhaseStateMachine) Set(next Phase, now time.Time) bool {
	if next == m.phase {
		return false
	}
	from := m.phase

	switch {
	case next == PhaseStart && (from == PhaseReady || from == PhaseWait):
		m.timing.MarkProcessStart(now)
	case next == PhaseReflow:
		m.timing.MarkReflowStart(now)
	case next == PhasePreheat:
		m.timing.MarkPreheatStart(now)
	}

	m.phase = next
	m.previous = from
	if m.onTransition != nil {
		m.onTransition(Transition{From: from, To: next, At: now})
	}
	return true
}

// Begin picks the first phase of a run from the chamber temperature.
func (m *PhaseStateMachine) Begin(temp float64, now time.Time) {
	if temp >= WaitThresholdC {
		m.Set(PhaseWait, now)
		return
	}
	m.Set(PhaseStart, now)
}

// Advance evaluates the guards in fixed precedence. Each guard re-reads the
// phase, so a single call may cascade through several phases when the
// temperature already satisfies them. It returns the number of transitions.
func (m *PhaseStateMachine) Advance(temp float64, now time.Time) int {
	n := 0
	step := func(from, to Phase, guard bool) {
		if m.phase == from && guard {
			if m.Set(to, now) {
				n++
			}
		}
	}

	step(PhaseWait, PhaseStart, temp < WaitThresholdC)
	step(PhaseStart, PhasePreheat, temp >= m.preheatEntryTemp())
	step(PhasePreheat, PhaseSoak, temp >= m.stages.Soak.Temperature)
	step(PhaseSoak, PhaseReflow, temp >= m.stages.Reflow.Temperature)
	if m.phase == PhaseReflow {
		step(PhaseReflow, PhaseCool, temp >= m.stages.Cool.Temperature && m.reflowHeld(now))
	}
	return n
}

func (m *PhaseStateMachine) preheatEntryTemp() float64 {
	return math.Trunc(m.stages.Preheat.Temperature * preheatEntryFraction)
}

// MinReflowHold is the time reflow must run before cooling may begin.
func (m *PhaseStateMachine) MinReflowHold() time.Duration {
	span := time.Duration(m.stages.Cool.TimeSeconds-m.stages.Reflow.TimeSeconds) * time.Second
	return span - reflowHoldMargin
}

func (m *PhaseStateMachine) reflowHeld(now time.Time) bool {
	since, ok := m.timing.SinceReflow(now)
	return ok && since >= m.MinReflowHold()
}
