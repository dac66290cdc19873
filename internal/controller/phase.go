package controller

import "fmt"

// Phase is one of the named stages of a reflow run.
type Phase int

// Phases in canonical order.
const (
	PhaseWait Phase = iota
	PhaseReady
	PhaseStart
	PhasePreheat
	PhaseSoak
	PhaseReflow
	PhaseCool
)

var phaseNames = [...]string{
	PhaseWait:    "wait",
	PhaseReady:   "ready",
	PhaseStart:   "start",
	PhasePreheat: "preheat",
	PhaseSoak:    "soak",
	PhaseReflow:  "reflow",
	PhaseCool:    "cool",
}

func (p Phase) String() string {
	if p < PhaseWait || p > PhaseCool {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Heating reports whether the heater is under closed-loop control in p.
func (p Phase) Heating() bool {
	switch p {
	case PhaseStart, PhasePreheat, PhaseSoak, PhaseReflow:
		return true
	default:
		return false
	}
}

// Sampled reports whether the 1 Hz telemetry path records samples in p.
func (p Phase) Sampled() bool {
	return p.Heating() || p == PhaseCool
}

// ParsePhase maps a phase name back to its value.
func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// AlertToken identifies the buzzer tune played for an event.
type AlertToken int

const (
	AlertNone AlertToken = iota
	AlertStart
	AlertSMBWater
	AlertTag
	AlertNext
	AlertStop
)

var alertNames = [...]string{
	AlertNone:     "",
	AlertStart:    "Start",
	AlertSMBWater: "SMBwater",
	AlertTag:      "Tag",
	AlertNext:     "Next",
	AlertStop:     "Stop",
}

func (a AlertToken) String() string {
	if a < AlertNone || a > AlertStop {
		return fmt.Sprintf("alert(%d)", int(a))
	}
	return alertNames[a]
}

// AlertFor returns the alert emitted on entry into p.
// ready and preheat are silent.
func AlertFor(p Phase) (AlertToken, bool) {
	switch p {
	case PhaseStart:
		return AlertStart, true
	case PhaseCool:
		return AlertSMBWater, true
	case PhaseWait:
		return AlertTag, true
	case PhaseReady, PhasePreheat:
		return AlertNone, false
	default:
		return AlertNext, true
	}
}

// Label is the stage message shown to the operator.
type Label struct {
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
}

// Markup renders the label in the "#RRGGBB text#" recolor syntax used by
// small embedded displays. An empty label renders as "".
func (l Label) Markup() string {
	if l.Text == "" {
		return ""
	}
	return l.Color + " " + l.Text + "#"
}

// StageLabel returns the operator message for p.
func StageLabel(p Phase) Label {
	switch p {
	case PhaseReady:
		return Label{Text: "Ready", Color: "#003399"}
	case PhaseStart:
		return Label{Text: "Starting", Color: "#009900"}
	case PhasePreheat:
		return Label{Text: "Preheat", Color: "#FF6600"}
	case PhaseSoak:
		return Label{Text: "Soak", Color: "#FF0066"}
	case PhaseReflow:
		return Label{Text: "Reflow", Color: "#FF0000"}
	case PhaseCool, PhaseWait:
		return Label{Text: "Cool Down, Open Door", Color: "#0000FF"}
	default:
		return Label{}
	}
}
