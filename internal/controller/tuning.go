package controller

import (
	"math"
	"time"
)

// TuningConfig holds the per-run control parameters.
type TuningConfig struct {
	// SamplingHz is the control tick rate; 10 gives a 100 ms tick.
	SamplingHz float64
	// PreheatUntilTemp is the temperature below which the heater is forced on.
	PreheatUntilTemp float64
	// ProvisioningOffsetSeconds looks ahead on the profile to cover thermal lag.
	ProvisioningOffsetSeconds int
	// OvershootCompensation is subtracted from every profile setpoint.
	OvershootCompensation float64
}

// Validate checks every field; the first problem is returned as *ConfigError.
func (t TuningConfig) Validate() error {
	if !(t.SamplingHz > 0) || t.SamplingHz > 1000 || math.IsInf(t.SamplingHz, 0) {
		return &ConfigError{Key: "sampling_hz", Reason: "must be in (0, 1000]"}
	}
	if math.IsNaN(t.PreheatUntilTemp) || math.IsInf(t.PreheatUntilTemp, 0) {
		return &ConfigError{Key: "advanced_temp_tuning.preheat_until", Reason: "must be finite"}
	}
	if t.ProvisioningOffsetSeconds < 0 {
		return &ConfigError{Key: "advanced_temp_tuning.provisioning", Reason: "must not be negative"}
	}
	if math.IsNaN(t.OvershootCompensation) || math.IsInf(t.OvershootCompensation, 0) {
		return &ConfigError{Key: "advanced_temp_tuning.overshoot_comp", Reason: "must be finite"}
	}
	return nil
}

// TickPeriod is the control tick period, truncated to whole milliseconds.
func (t TuningConfig) TickPeriod() time.Duration {
	return time.Duration(int(1000/t.SamplingHz)) * time.Millisecond
}

// SensorRange bounds plausible sensor readings.
type SensorRange struct {
	MinC float64
	MaxC float64
}

// DefaultSensorRange covers a K-type thermocouple in a reflow oven.
var DefaultSensorRange = SensorRange{MinC: -20, MaxC: 400}

func (r SensorRange) contains(v float64) bool {
	return !math.IsNaN(v) && v >= r.MinC && v <= r.MaxC
}
