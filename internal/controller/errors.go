package controller

import (
	"errors"
	"fmt"
)

var (
	// ErrRunInProgress is returned by StartRun while a run is active.
	ErrRunInProgress = errors.New("reflow run already in progress")
	// ErrSensorOutOfRange marks a reading outside the configured sensor range.
	ErrSensorOutOfRange = errors.New("temperature reading out of range")
)

// ConfigError reports a missing or invalid tuning parameter.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

// ProfileError reports a profile that cannot drive a run.
type ProfileError struct {
	Reason string
}

func (e *ProfileError) Error() string {
	return "invalid reflow profile: " + e.Reason
}

// SensorError reports a failed or implausible temperature reading.
type SensorError struct {
	Reading float64
	Err     error
}

func (e *SensorError) Error() string {
	if errors.Is(e.Err, ErrSensorOutOfRange) {
		return fmt.Sprintf("sensor fault: %v (%.1f)", e.Err, e.Reading)
	}
	return fmt.Sprintf("sensor fault: %v", e.Err)
}

func (e *SensorError) Unwrap() error {
	return e.Err
}
