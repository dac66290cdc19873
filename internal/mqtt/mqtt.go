// Package mqtt publishes oven events to an MQTT broker, with a fake for tests.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"
)

// Event names carried in the payload. Each also names the topic suffix.
const (
	EventAlert   = "ALERT"
	EventPhase   = "PHASE_CHANGE"
	EventFault   = "FAULT"
	EventStopped = "STOPPED"
	EventHeater  = "HEATER"
)

// Publisher publishes oven events.
type Publisher interface {
	// Publish sends one message. Errors are returned, never fatal.
	Publish(msg Message) error

	// Close disconnects from the broker.
	Close() error
}

// Message is one oven event.
type Message struct {
	Timestamp time.Time
	RunID     string
	Event     string
	Phase     string
	From      string
	Alert     string
	HeaterOn  *bool
	Detail    string
}

// Payload is the JSON body of every message.
type Payload struct {
	Oven OvenPayload `json:"oven"`
}

// OvenPayload holds the event details.
type OvenPayload struct {
	Timestamp string `json:"timestamp"`
	RunID     string `json:"run_id,omitempty"`
	Event     string `json:"event"`
	Phase     string `json:"phase,omitempty"`
	From      string `json:"from,omitempty"`
	Alert     string `json:"alert,omitempty"`
	HeaterOn  *bool  `json:"heater_on,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// FormatPayload renders msg as JSON.
func FormatPayload(msg Message) ([]byte, error) {
	return json.Marshal(Payload{
		Oven: OvenPayload{
			Timestamp: msg.Timestamp.UTC().Format(time.RFC3339),
			RunID:     msg.RunID,
			Event:     msg.Event,
			Phase:     msg.Phase,
			From:      msg.From,
			Alert:     msg.Alert,
			HeaterOn:  msg.HeaterOn,
			Detail:    msg.Detail,
		},
	})
}

// Topic joins prefix and the lowercased event, e.g. "reflow/oven/alert".
func Topic(prefix, event string) string {
	suffix := strings.ToLower(event)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return suffix
	}
	return prefix + "/" + suffix
}

// qos is at-least-once for events an operator must not miss.
func qos(event string) byte {
	switch event {
	case EventAlert, EventFault, EventStopped:
		return 1
	default:
		return 0
	}
}
