package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"reflow_oven/internal/controller"
	"reflow_oven/internal/logger"
	"reflow_oven/internal/models"
	"reflow_oven/internal/monitor"
	"reflow_oven/internal/repository"

	"github.com/google/uuid"
)

// OvenService issues run commands to the controller and records them.
type OvenService struct {
	mu sync.Mutex

	ctrl      OvenController
	runs      RunTracker
	eventRepo repository.EventRepo
	metrics   *monitor.Metrics
	log       *logger.Logger

	newID func() string
	now   func() time.Time
}

func NewOvenService(ctrl OvenController, runs RunTracker, eventRepo repository.EventRepo, metrics *monitor.Metrics, log *logger.Logger) *OvenService {
	return &OvenService{
		ctrl:      ctrl,
		runs:      runs,
		eventRepo: eventRepo,
		metrics:   metrics,
		log:       log,
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var errNoController = errors.New("oven controller not configured")

// Start begins a run under a fresh run ID and logs START. A refused start is
// logged as ERROR and its error returned unchanged.
func (s *OvenService) Start(ctx context.Context) (string, error) {
	if s.ctrl == nil {
		return "", errNoController
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Checked before tagging so a rejected start keeps the active run's ID.
	if s.ctrl.Snapshot().HasStarted {
		return "", controller.ErrRunInProgress
	}

	runID := s.newID()
	if s.runs != nil {
		s.runs.BeginRun(runID)
	}
	if err := s.ctrl.StartRun(); err != nil {
		if s.runs != nil {
			s.runs.EndRun("start refused")
		}
		s.appendEvent(ctx, models.OvenEvent{
			RunID:       runID,
			Type:        models.EventError,
			Description: "Start refused: " + err.Error(),
		})
		return "", err
	}
	if s.metrics != nil {
		s.metrics.RunsStarted.Inc()
	}

	st := s.ctrl.Snapshot()
	if err := s.eventRepo.Append(ctx, models.OvenEvent{
		EventID:     s.newID(),
		RunID:       runID,
		OccurredAt:  s.now(),
		Type:        models.EventStart,
		Description: "Run started",
		Metadata: map[string]any{
			"phase":  st.Phase.String(),
			"temp_c": st.TemperatureC,
		},
	}); err != nil {
		// The run is already going; only the record failed.
		if s.log != nil {
			s.log.Errorw("start_event_append_failed", "run_id", runID, "err", err)
		}
	}
	return runID, nil
}

// Stop halts any run with the heater off and logs STOP. Stopping an idle oven
// is allowed.
func (s *OvenService) Stop(ctx context.Context) error {
	if s.ctrl == nil {
		return errNoController
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	wasRunning := s.ctrl.Snapshot().HasStarted
	s.ctrl.StopRun()

	var runID string
	if s.runs != nil {
		runID = s.runs.View().RunID
		s.runs.EndRun("operator")
	}

	desc := "Stop requested while idle"
	if wasRunning {
		desc = "Run stopped by operator"
	}
	return s.eventRepo.Append(ctx, models.OvenEvent{
		EventID:     s.newID(),
		RunID:       runID,
		OccurredAt:  s.now(),
		Type:        models.EventStop,
		Description: desc,
		Metadata:    map[string]any{"was_running": wasRunning},
	})
}

func (s *OvenService) appendEvent(ctx context.Context, e models.OvenEvent) {
	e.EventID = s.newID()
	e.OccurredAt = s.now()
	if err := s.eventRepo.Append(ctx, e); err != nil && s.log != nil {
		s.log.Errorw("event_append_failed", "type", e.Type, "err", err)
	}
}
