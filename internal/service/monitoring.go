package service

import (
	"context"
	"time"

	"reflow_oven/internal/controller"
	"reflow_oven/internal/models"
	"reflow_oven/internal/monitor"
	"reflow_oven/internal/repository"
)

const (
	stateRowID          = 1
	defaultAmbientTempC = 25.0

	errCodeSensorFault   = "SENSOR_FAULT"
	errCodeActuatorFault = "ACTUATOR_FAULT"
)

type MonitoringService struct {
	ctrl      OvenController
	runs      RunTracker
	stateRepo repository.StateRepo
	metrics   *monitor.Metrics
	now       func() time.Time
}

func NewMonitoringService(ctrl OvenController, runs RunTracker, stateRepo repository.StateRepo, metrics *monitor.Metrics) *MonitoringService {
	return &MonitoringService{
		ctrl:      ctrl,
		runs:      runs,
		stateRepo: stateRepo,
		metrics:   metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetState returns the live controller state. Without a controller it falls
// back to the last persisted snapshot, or a baseline ready snapshot if none.
func (s *MonitoringService) GetState(ctx context.Context) (models.OvenState, error) {
	if s.ctrl != nil {
		return s.live(), nil
	}
	state, err := s.stateRepo.Load(ctx)
	if err != nil {
		return models.OvenState{}, err
	}
	if state.ID == 0 {
		return s.baselineState(), nil
	}
	state.UpdatedAt = toUTC(state.UpdatedAt)
	return state, nil
}

// Run persists the live state and refreshes metrics every tick until ctx is
// cancelled, so the last state survives a restart.
func (s *MonitoringService) Run(ctx context.Context, tick time.Duration) {
	if s.ctrl == nil {
		return
	}
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.record(ctx)
		}
	}
}

func (s *MonitoringService) record(ctx context.Context) error {
	if s.metrics != nil {
		s.metrics.ObserveStatus(s.ctrl.Snapshot())
	}
	return s.stateRepo.Save(ctx, s.live())
}

func (s *MonitoringService) live() models.OvenState {
	st := s.ctrl.Snapshot()
	state := models.OvenState{
		ID:             stateRowID,
		Phase:          st.Phase.String(),
		StageLabel:     st.StageLabel.Text,
		CurrentTempC:   st.TemperatureC,
		SetpointC:      st.SetpointC,
		TargetC:        st.TargetC,
		HeaterOn:       st.Heater.On,
		ElapsedSeconds: st.ElapsedSeconds,
		ElapsedText:    controller.FormatElapsed(st.ElapsedSeconds),
		IsRunning:      st.HasStarted,
		UpdatedAt:      s.now(),
	}
	if st.Fault != nil {
		state.ErrorCodes = []string{faultCode(st.Fault.Err)}
	}
	if s.runs != nil {
		state.RunID = s.runs.View().RunID
	}
	return state
}

func faultCode(err error) string {
	if controller.IsSensorFault(err) {
		return errCodeSensorFault
	}
	return errCodeActuatorFault
}

// baselineState is the snapshot of a fresh install.
func (s *MonitoringService) baselineState() models.OvenState {
	return models.OvenState{
		ID:           stateRowID,
		Phase:        controller.PhaseReady.String(),
		StageLabel:   controller.StageLabel(controller.PhaseReady).Text,
		CurrentTempC: defaultAmbientTempC,
		ElapsedText:  controller.FormatElapsed(0),
		IsRunning:    false,
		UpdatedAt:    s.now(),
	}
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
