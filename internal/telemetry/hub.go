// Package telemetry turns controller display and alert output into a live
// view and an event stream consumed by persistence, MQTT and metrics.
package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"reflow_oven/internal/controller"
	"reflow_oven/internal/logger"
)

// Kind names a telemetry event.
type Kind string

const (
	KindElapsed Kind = "elapsed"
	KindLabel   Kind = "label"
	KindChart   Kind = "chart"
	KindHeater  Kind = "heater"
	KindStopped Kind = "stopped"
	KindPhase   Kind = "phase"
	KindAlert   Kind = "alert"
	KindFault   Kind = "fault"
)

// Event is one display update, stamped with the run it belongs to.
type Event struct {
	Kind     Kind
	RunID    string
	At       time.Time
	Elapsed  string
	Label    controller.Label
	Samples  []int
	HeaterOn bool
	From     controller.Phase
	To       controller.Phase
	Alert    controller.AlertToken
	// Detail is the fault text or the stop reason.
	Detail    string
	SensorErr bool
}

// Sink consumes events on the hub worker goroutine.
type Sink interface {
	Handle(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) }

// View is the operator-facing state assembled from display updates.
type View struct {
	RunID           string           `json:"run_id,omitempty"`
	Running         bool             `json:"running"`
	Phase           string           `json:"phase"`
	ElapsedText     string           `json:"elapsed_text"`
	Label           controller.Label `json:"label"`
	Samples         []int            `json:"samples"`
	ExpectedSamples int              `json:"expected_samples"`
	HeaterOn        bool             `json:"heater_on"`
	LastAlert       string           `json:"last_alert,omitempty"`
	Fault           string           `json:"fault,omitempty"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Options configures a Hub.
type Options struct {
	// ExpectedSamples is the chart length of a full run.
	ExpectedSamples int
	// QueueSize bounds the event queue. Events beyond it are dropped.
	QueueSize int
	Now       func() time.Time
	Log       *logger.Logger
}

const defaultQueueSize = 256

// Hub implements controller.Display, AlertSink, FaultReporter and
// TransitionObserver. Its controller-facing methods never block and never call
// back into the controller.
type Hub struct {
	mu   sync.RWMutex
	view View

	queue   chan Event
	dropped atomic.Uint64
	sinks   []Sink
	now     func() time.Time
	log     *logger.Logger
}

var (
	_ controller.Display            = (*Hub)(nil)
	_ controller.AlertSink          = (*Hub)(nil)
	_ controller.FaultReporter      = (*Hub)(nil)
	_ controller.TransitionObserver = (*Hub)(nil)
)

// NewHub creates a hub delivering to sinks once Run is started.
func NewHub(opts Options, sinks ...Sink) *Hub {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &Hub{
		queue: make(chan Event, opts.QueueSize),
		sinks: sinks,
		now:   opts.Now,
		log:   opts.Log,
	}
	h.view = View{
		Phase:           controller.PhaseReady.String(),
		ElapsedText:     controller.FormatElapsed(0),
		Label:           controller.StageLabel(controller.PhaseReady),
		ExpectedSamples: opts.ExpectedSamples,
	}
	return h
}

// ExpectedSamples sizes the chart at one sample per profile second.
func ExpectedSamples(p *controller.Profile) int {
	return p.DurationSeconds()
}

// BeginRun tags subsequent events with runID. Call before StartRun.
func (h *Hub) BeginRun(runID string) {
	h.mu.Lock()
	h.view.RunID = runID
	h.view.Running = true
	h.view.Samples = nil
	h.view.LastAlert = ""
	h.view.Fault = ""
	h.view.UpdatedAt = h.now()
	h.mu.Unlock()
}

// EndRun marks the run stopped by the operator or a failed start.
func (h *Hub) EndRun(reason string) {
	h.mu.Lock()
	wasRunning := h.view.Running
	h.view.Running = false
	h.view.UpdatedAt = h.now()
	h.mu.Unlock()
	if wasRunning {
		h.emit(Event{Kind: KindStopped, Detail: reason})
	}
}

// View returns a copy of the live view.
func (h *Hub) View() View {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v := h.view
	v.Samples = append([]int(nil), h.view.Samples...)
	return v
}

// Dropped counts events lost to a full queue.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) SetElapsedTimeText(text string) {
	h.update(func(v *View) { v.ElapsedText = text })
	h.emit(Event{Kind: KindElapsed, Elapsed: text})
}

func (h *Hub) SetStageLabel(label controller.Label) {
	h.update(func(v *View) { v.Label = label })
	h.emit(Event{Kind: KindLabel, Label: label})
}

// PushChartSample receives the whole chart; nil clears it.
func (h *Hub) PushChartSample(samples []int) {
	cp := append([]int(nil), samples...)
	h.update(func(v *View) { v.Samples = cp })
	h.emit(Event{Kind: KindChart, Samples: cp})
}

func (h *Hub) SetHeaterIndicator(on bool) {
	h.update(func(v *View) { v.HeaterOn = on })
	h.emit(Event{Kind: KindHeater, HeaterOn: on})
}

func (h *Hub) NotifyRunStopped() {
	h.update(func(v *View) { v.Running = false })
	h.emit(Event{Kind: KindStopped})
}

func (h *Hub) ExpectedSampleCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.view.ExpectedSamples
}

func (h *Hub) Activate(token controller.AlertToken) {
	h.update(func(v *View) { v.LastAlert = token.String() })
	h.emit(Event{Kind: KindAlert, Alert: token})
}

func (h *Hub) PhaseChanged(t controller.Transition) {
	h.update(func(v *View) { v.Phase = t.To.String() })
	h.emit(Event{Kind: KindPhase, From: t.From, To: t.To, At: t.At})
}

func (h *Hub) ReportFault(phase controller.Phase, err error) {
	h.update(func(v *View) { v.Fault = err.Error() })
	h.emit(Event{Kind: KindFault, To: phase, Detail: err.Error(), SensorErr: controller.IsSensorFault(err)})
}

func (h *Hub) update(fn func(v *View)) {
	h.mu.Lock()
	fn(&h.view)
	h.view.UpdatedAt = h.now()
	h.mu.Unlock()
}

// emit stamps e and enqueues it without blocking.
func (h *Hub) emit(e Event) {
	h.mu.RLock()
	e.RunID = h.view.RunID
	h.mu.RUnlock()
	if e.At.IsZero() {
		e.At = h.now()
	}
	select {
	case h.queue <- e:
	default:
		h.dropped.Add(1)
	}
}

// Run delivers queued events to every sink until ctx ends, then drains what
// is already queued. Sink errors are logged and do not stop delivery.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.drain()
			return
		case e := <-h.queue:
			h.deliver(ctx, e)
		}
	}
}

func (h *Hub) drain() {
	// Sinks get a fresh context so the final events still persist.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case e := <-h.queue:
			h.deliver(ctx, e)
		default:
			return
		}
	}
}

func (h *Hub) deliver(ctx context.Context, e Event) {
	for _, s := range h.sinks {
		if err := s.Handle(ctx, e); err != nil && h.log != nil {
			h.log.Warnw("telemetry_sink_failed", "kind", string(e.Kind), "run_id", e.RunID, "err", err)
		}
	}
}
