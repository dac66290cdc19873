package models

import "time"

// OvenState is the current snapshot of the oven.
type OvenState struct {
	ID             int       `json:"id"`
	RunID          string    `json:"run_id,omitempty"`
	Phase          string    `json:"phase"`                 // wait | ready | start | preheat | soak | reflow | cool
	StageLabel     string    `json:"stage_label"`           // operator message, e.g. "Soak"
	CurrentTempC   float64   `json:"current_temp_c"`        // °C
	SetpointC      float64   `json:"setpoint_c"`            // compensated profile temperature
	TargetC        float64   `json:"target_c"`              // setpoint plus PID correction
	HeaterOn       bool      `json:"heater_on"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	ElapsedText    string    `json:"elapsed_text"`          // mm:ss
	ErrorCodes     []string  `json:"error_codes,omitempty"` // e.g. ["SENSOR_FAULT"]
	IsRunning      bool      `json:"is_running"`
	UpdatedAt      time.Time `json:"updated_at"`
}
