package models

import "time"

// RunSample is one 1 Hz chart point of a run.
type RunSample struct {
	RunID   string    `json:"run_id"`
	Seq     int       `json:"seq"`
	TempC   int       `json:"temp_c"`
	TakenAt time.Time `json:"taken_at"`
}
