package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reflow_oven/internal/controller"
	"reflow_oven/internal/models"
	"reflow_oven/internal/monitor"
	"reflow_oven/internal/mqtt"
	"reflow_oven/internal/repository"
)

// PersistSink writes phase changes, alerts and faults to the event log and
// each new chart sample to the run's sample table.
type PersistSink struct {
	events  repository.EventRepo
	samples repository.SampleRepo
}

func NewPersistSink(events repository.EventRepo, samples repository.SampleRepo) *PersistSink {
	return &PersistSink{events: events, samples: samples}
}

func (s *PersistSink) Handle(ctx context.Context, e Event) error {
	switch e.Kind {
	case KindPhase:
		return s.events.Append(ctx, models.OvenEvent{
			RunID:       e.RunID,
			OccurredAt:  e.At,
			Type:        models.EventPhase,
			Description: fmt.Sprintf("%s -> %s", e.From, e.To),
			Metadata:    map[string]any{"from": e.From.String(), "to": e.To.String()},
		})
	case KindAlert:
		if err := s.events.Append(ctx, models.OvenEvent{
			RunID:       e.RunID,
			OccurredAt:  e.At,
			Type:        models.EventAlert,
			Description: "alert " + e.Alert.String(),
			Metadata:    map[string]any{"alert": e.Alert.String()},
		}); err != nil {
			return err
		}
		if e.Alert == controller.AlertStop {
			return s.events.Append(ctx, models.OvenEvent{
				RunID:       e.RunID,
				OccurredAt:  e.At,
				Type:        models.EventComplete,
				Description: "run completed",
			})
		}
	case KindFault:
		kind := "actuator"
		if e.SensorErr {
			kind = "sensor"
		}
		return s.events.Append(ctx, models.OvenEvent{
			RunID:       e.RunID,
			OccurredAt:  e.At,
			Type:        models.EventError,
			Description: e.Detail,
			Metadata:    map[string]any{"phase": e.To.String(), "kind": kind},
		})
	case KindChart:
		// The chart only grows within a run; the last value is the new one.
		if e.RunID == "" || len(e.Samples) == 0 {
			return nil
		}
		seq := len(e.Samples) - 1
		return s.samples.Append(ctx, models.RunSample{
			RunID:   e.RunID,
			Seq:     seq,
			TempC:   e.Samples[seq],
			TakenAt: e.At,
		})
	}
	return nil
}

// MQTTSink publishes operator-relevant events.
type MQTTSink struct {
	pub mqtt.Publisher
}

func NewMQTTSink(pub mqtt.Publisher) *MQTTSink { return &MQTTSink{pub: pub} }

func (s *MQTTSink) Handle(_ context.Context, e Event) error {
	msg := mqtt.Message{Timestamp: e.At, RunID: e.RunID}
	switch e.Kind {
	case KindPhase:
		msg.Event = mqtt.EventPhase
		msg.From = e.From.String()
		msg.Phase = e.To.String()
	case KindAlert:
		msg.Event = mqtt.EventAlert
		msg.Alert = e.Alert.String()
	case KindFault:
		msg.Event = mqtt.EventFault
		msg.Phase = e.To.String()
		msg.Detail = e.Detail
	case KindStopped:
		msg.Event = mqtt.EventStopped
		msg.Detail = e.Detail
	case KindHeater:
		on := e.HeaterOn
		msg.Event = mqtt.EventHeater
		msg.HeaterOn = &on
	default:
		return nil
	}
	return s.pub.Publish(msg)
}

// MetricsSink feeds the Prometheus counters. Gauges for temperature and
// setpoint come from controller snapshots instead.
type MetricsSink struct {
	m       *monitor.Metrics
	dropped func() uint64

	mu       sync.Mutex
	runStart time.Time
}

// NewMetricsSink reports dropped events through dropped, which may be nil.
func NewMetricsSink(m *monitor.Metrics, dropped func() uint64) *MetricsSink {
	return &MetricsSink{m: m, dropped: dropped}
}

func (s *MetricsSink) Handle(_ context.Context, e Event) error {
	switch e.Kind {
	case KindPhase:
		s.m.Transitions.WithLabelValues(e.From.String(), e.To.String()).Inc()
		s.m.SetPhase(e.To)
		if e.To == controller.PhaseStart {
			s.mu.Lock()
			s.runStart = e.At
			s.mu.Unlock()
		}
	case KindAlert:
		s.m.Alerts.WithLabelValues(e.Alert.String()).Inc()
		if e.Alert == controller.AlertStop {
			s.m.RunsCompleted.Inc()
			s.mu.Lock()
			if !s.runStart.IsZero() {
				s.m.RunDuration.Observe(e.At.Sub(s.runStart).Seconds())
				s.runStart = time.Time{}
			}
			s.mu.Unlock()
		}
	case KindFault:
		kind := "actuator"
		if e.SensorErr {
			kind = "sensor"
		}
		s.m.Faults.WithLabelValues(kind).Inc()
	case KindHeater:
		if e.HeaterOn {
			s.m.HeaterOn.Set(1)
		} else {
			s.m.HeaterOn.Set(0)
		}
	}
	if s.dropped != nil {
		s.m.TelemetryDropped.Set(float64(s.dropped()))
	}
	return nil
}
