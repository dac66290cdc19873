// Package monitor exposes oven metrics for Prometheus.
package monitor

import (
	"net/http"

	"reflow_oven/internal/controller"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reflow_oven"

var allPhases = []controller.Phase{
	controller.PhaseWait,
	controller.PhaseReady,
	controller.PhaseStart,
	controller.PhasePreheat,
	controller.PhaseSoak,
	controller.PhaseReflow,
	controller.PhaseCool,
}

// Metrics owns a private registry so tests and multiple instances never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	TemperatureC prometheus.Gauge
	SetpointC    prometheus.Gauge
	TargetC      prometheus.Gauge
	HeaterOn     prometheus.Gauge
	// Phase is 1 for the current phase and 0 for every other.
	Phase *prometheus.GaugeVec

	Transitions      *prometheus.CounterVec
	Alerts           *prometheus.CounterVec
	Faults           *prometheus.CounterVec
	RunsStarted      prometheus.Counter
	RunsCompleted    prometheus.Counter
	RunDuration      prometheus.Histogram
	TelemetryDropped prometheus.Gauge
}

// New creates and registers every oven metric.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TemperatureC: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Last chamber temperature reading",
		}),
		SetpointC: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "setpoint_celsius",
			Help:      "Compensated profile temperature at the current lookup time",
		}),
		TargetC: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_celsius",
			Help:      "Setpoint plus PID correction",
		}),
		HeaterOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heater_on",
			Help:      "1 while the heating element is commanded on",
		}),
		Phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase",
			Help:      "Current run phase",
		}, []string{"phase"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Phase changes by source and destination",
		}, []string{"from", "to"}),
		Alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alert tunes activated",
		}, []string{"alert"}),
		Faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faults_total",
			Help:      "Runs halted by a fault",
		}, []string{"kind"}),
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Runs started",
		}),
		RunsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_completed_total",
			Help:      "Runs that reached the end of the cool phase",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time from start to completion",
			Buckets:   prometheus.LinearBuckets(120, 60, 10),
		}),
		TelemetryDropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "telemetry_dropped",
			Help:      "Telemetry events dropped on a full queue since start",
		}),
	}

	m.registry.MustRegister(
		m.TemperatureC, m.SetpointC, m.TargetC, m.HeaterOn, m.Phase,
		m.Transitions, m.Alerts, m.Faults,
		m.RunsStarted, m.RunsCompleted, m.RunDuration, m.TelemetryDropped,
	)
	m.SetPhase(controller.PhaseReady)
	return m
}

// Registry returns the registry the metrics live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetPhase marks p as the current phase.
func (m *Metrics) SetPhase(p controller.Phase) {
	for _, ph := range allPhases {
		v := 0.0
		if ph == p {
			v = 1
		}
		m.Phase.WithLabelValues(ph.String()).Set(v)
	}
}

// ObserveStatus copies the gauges from a controller snapshot.
func (m *Metrics) ObserveStatus(st controller.Status) {
	m.TemperatureC.Set(st.TemperatureC)
	m.SetpointC.Set(st.SetpointC)
	m.TargetC.Set(st.TargetC)
	m.HeaterOn.Set(boolGauge(st.Heater.On))
	m.SetPhase(st.Phase)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
