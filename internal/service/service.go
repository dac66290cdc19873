package service

import (
	"context"
	"time"

	"reflow_oven/internal/controller"
	"reflow_oven/internal/logger"
	"reflow_oven/internal/models"
	"reflow_oven/internal/monitor"
	"reflow_oven/internal/repository"
	"reflow_oven/internal/telemetry"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Oven exposes the run commands. Start returns the new run ID.
type Oven interface {
	Start(ctx context.Context) (string, error)
	Stop(ctx context.Context) error
}

// Monitoring exposes read-only state (temperature, phase, elapsed, faults).
type Monitoring interface {
	GetState(ctx context.Context) (models.OvenState, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.OvenEvent, error)
}

// Profile exposes the loaded reflow profile.
type Profile interface {
	GetProfile() ProfileView
}

// Samples exposes the recorded chart of a run.
type Samples interface {
	ListByRun(ctx context.Context, runID string) (RunSamples, error)
}

// OvenController is the part of *controller.Controller the services drive.
type OvenController interface {
	StartRun() error
	StopRun()
	Snapshot() controller.Status
}

// RunTracker tags telemetry with the active run.
type RunTracker interface {
	BeginRun(runID string)
	EndRun(reason string)
	View() telemetry.View
}

// LogFilter supports history filtering by time range, type and run.
type LogFilter struct {
	From  time.Time // inclusive; zero means no lower bound
	To    time.Time // inclusive; zero means no upper bound
	Type  string    // "", "START", "STOP", "PHASE_CHANGE", "ALERT", "COMPLETE", "ERROR"
	RunID string
}

// Deps are the runtime collaborators of the services.
type Deps struct {
	Controller OvenController
	Runs       RunTracker
	Profile    *controller.Profile
	// ProfileName is shown with the profile; may be empty.
	ProfileName string
	// Metrics may be nil.
	Metrics    *monitor.Metrics
	SigningKey string
	Log        *logger.Logger
}

// Service aggregates all sub-services.
type Service struct {
	Oven
	Monitoring
	EventLog
	Profile
	Samples
	Authorization
}

// NewService wires the repository layer and the controller into concrete services.
func NewService(repos *repository.Repository, deps Deps) *Service {
	return &Service{
		Oven:          NewOvenService(deps.Controller, deps.Runs, repos.EventRepo, deps.Metrics, deps.Log),
		Monitoring:    NewMonitoringService(deps.Controller, deps.Runs, repos.StateRepo, deps.Metrics),
		EventLog:      NewEventLogService(repos.EventRepo),
		Profile:       NewProfileService(deps.Profile, deps.ProfileName),
		Samples:       NewSamplesService(repos.SampleRepo),
		Authorization: NewAuthService(repos.Auth, deps.SigningKey),
	}
}
