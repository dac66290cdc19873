package models

import "time"

// Event types written to the oven event log.
const (
	EventStart    = "START"
	EventStop     = "STOP"
	EventPhase    = "PHASE_CHANGE"
	EventAlert    = "ALERT"
	EventComplete = "COMPLETE"
	EventError    = "ERROR"
)

// OvenEvent is a single log entry.
type OvenEvent struct {
	EventID     string    `json:"event_id"`
	RunID       string    `json:"run_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
