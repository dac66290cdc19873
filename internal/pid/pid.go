// Package pid implements the discrete PID used to bias the heater setpoint.
package pid

import (
	"fmt"
	"math"
	"sync"
)

// Config holds the gains and output limits.
type Config struct {
	Kp float64 `mapstructure:"kp"`
	Ki float64 `mapstructure:"ki"`
	Kd float64 `mapstructure:"kd"`
	// SampleSeconds is the time between updates.
	SampleSeconds float64 `mapstructure:"sample_seconds"`
	OutputMin     float64 `mapstructure:"output_min"`
	OutputMax     float64 `mapstructure:"output_max"`
}

// Default gains suited to a small convection oven sampled at 10 Hz.
func Default() Config {
	return Config{
		Kp:            1.2,
		Ki:            0.02,
		Kd:            4.0,
		SampleSeconds: 0.1,
		OutputMin:     -20,
		OutputMax:     20,
	}
}

// Validate rejects gains that cannot produce a bounded output.
func (c Config) Validate() error {
	for name, v := range map[string]float64{"kp": c.Kp, "ki": c.Ki, "kd": c.Kd} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("pid.%s must be a finite non-negative number", name)
		}
	}
	if !(c.SampleSeconds > 0) {
		return fmt.Errorf("pid.sample_seconds must be positive")
	}
	if c.OutputMax <= c.OutputMin {
		return fmt.Errorf("pid.output_max must exceed pid.output_min")
	}
	return nil
}

// Controller is a positional PID with derivative on measurement and
// conditional integration against windup.
type Controller struct {
	mu  sync.Mutex
	cfg Config

	integral float64
	prev     float64
	primed   bool
}

// New returns a controller with validated gains.
func New(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{cfg: cfg}, nil
}

// Update returns the correction for the current sample.
func (c *Controller) Update(current, setpoint float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	dt := c.cfg.SampleSeconds
	e := setpoint - current

	var deriv float64
	if c.primed {
		deriv = (current - c.prev) / dt
	}
	c.prev = current
	c.primed = true

	integral := c.integral + e*dt
	out := c.cfg.Kp*e + c.cfg.Ki*integral - c.cfg.Kd*deriv
	bounded := math.Max(c.cfg.OutputMin, math.Min(c.cfg.OutputMax, out))

	// Only accumulate while the output is not saturated.
	if out == bounded {
		c.integral = integral
	}
	return bounded
}

// Reset clears the accumulated state between runs.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.integral = 0
	c.prev = 0
	c.primed = false
}
