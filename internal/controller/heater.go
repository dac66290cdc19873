package controller

// Decision is the outcome of one heater evaluation.
type Decision struct {
	On bool
	// Setpoint is the compensated profile temperature; zero when idle.
	Setpoint float64
	// Target is Setpoint plus the PID correction; equals Setpoint when bypassed.
	Target float64
	// Bypassed is set when closed-loop control was skipped to heat at full power.
	Bypassed bool
}

// HeaterDecisionEngine decides the heater command for each control tick.
type HeaterDecisionEngine struct {
	profile *Profile
	tuning  TuningConfig
	pid     PIDController
}

// NewHeaterDecisionEngine builds an engine over a validated profile.
func NewHeaterDecisionEngine(profile *Profile, tuning TuningConfig, pid PIDController) *HeaterDecisionEngine {
	return &HeaterDecisionEngine{profile: profile, tuning: tuning, pid: pid}
}

// LookupSeconds returns the profile time used for the setpoint in phase.
func (e *HeaterDecisionEngine) LookupSeconds(phase Phase, elapsed, preheatElapsed int) int {
	if phase == PhaseStart {
		return elapsed + e.tuning.ProvisioningOffsetSeconds
	}
	return preheatElapsed + e.profile.stages.Preheat.TimeSeconds + e.tuning.ProvisioningOffsetSeconds
}

// Setpoint returns the compensated profile temperature for phase.
func (e *HeaterDecisionEngine) Setpoint(phase Phase, elapsed, preheatElapsed int) float64 {
	return e.profile.TemperatureAt(e.LookupSeconds(phase, elapsed, preheatElapsed)) - e.tuning.OvershootCompensation
}

// Decide returns the heater command. The PID is only updated when closed-loop
// control is active.
func (e *HeaterDecisionEngine) Decide(phase Phase, temp float64, elapsed, preheatElapsed int) Decision {
	if !phase.Heating() {
		return Decision{}
	}

	setpoint := e.Setpoint(phase, elapsed, preheatElapsed)
	if e.bypass(phase, temp, elapsed) {
		return Decision{On: true, Setpoint: setpoint, Target: setpoint, Bypassed: true}
	}

	target := setpoint + e.pid.Update(temp, setpoint)
	return Decision{On: temp < target, Setpoint: setpoint, Target: target}
}

func (e *HeaterDecisionEngine) bypass(phase Phase, temp float64, elapsed int) bool {
	if temp < e.tuning.PreheatUntilTemp {
		return true
	}
	return phase == PhaseStart && elapsed < e.profile.stages.Soak.TimeSeconds/2
}
