package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"reflow_oven/internal/controller"
	"reflow_oven/internal/models"
	"reflow_oven/internal/monitor"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// monitoringStateRepoStub is a local, uniquely named test stub that satisfies repository.StateRepo.
type monitoringStateRepoStub struct {
	loadResp   models.OvenState
	loadErr    error
	saveErr    error
	savedCalls []models.OvenState
}

func (s *monitoringStateRepoStub) Load(ctx context.Context) (models.OvenState, error) {
	return s.loadResp, s.loadErr
}

func (s *monitoringStateRepoStub) Save(ctx context.Context, state models.OvenState) error {
	s.savedCalls = append(s.savedCalls, state)
	return s.saveErr
}

func assertWithin(t *testing.T, ts time.Time, d time.Duration) {
	t.Helper()
	if since := time.Since(ts); since < 0 || since > d {
		t.Fatalf("time %v not within %v of now", ts, d)
	}
}

func TestMonitoringService_GetState_FromRepo(t *testing.T) {
	t.Parallel()

	type testCase struct {
		name       string
		repoResp   models.OvenState
		repoErr    error
		assertFunc func(t *testing.T, got models.OvenState, err error)
	}

	cases := []testCase{
		{
			name:    "propagates repository error",
			repoErr: errors.New("db down"),
			assertFunc: func(t *testing.T, got models.OvenState, err error) {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if got.ID != 0 {
					t.Errorf("expected zero state ID, got %d", got.ID)
				}
			},
		},
		{
			name:     "returns baseline when no state (ID=0)",
			repoResp: models.OvenState{ID: 0},
			assertFunc: func(t *testing.T, got models.OvenState, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.ID != 1 {
					t.Errorf("baseline ID: want 1, got %d", got.ID)
				}
				if got.Phase != "ready" || got.StageLabel != "Ready" {
					t.Errorf("baseline phase/label: got %q/%q", got.Phase, got.StageLabel)
				}
				if got.CurrentTempC != defaultAmbientTempC {
					t.Errorf("baseline CurrentTempC: want %v, got %v", defaultAmbientTempC, got.CurrentTempC)
				}
				if got.ElapsedText != "00:00" {
					t.Errorf("baseline ElapsedText: want 00:00, got %q", got.ElapsedText)
				}
				if got.IsRunning {
					t.Errorf("baseline IsRunning: want false, got true")
				}
				if got.UpdatedAt.Location() != time.UTC {
					t.Errorf("baseline UpdatedAt must be UTC, got %v", got.UpdatedAt.Location())
				}
				assertWithin(t, got.UpdatedAt, 2*time.Second)
			},
		},
		{
			name: "normalizes non-zero UpdatedAt to UTC for existing state",
			repoResp: models.OvenState{
				ID:           1,
				Phase:        "soak",
				CurrentTempC: 171.4,
				UpdatedAt:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("X", -3*3600)),
			},
			assertFunc: func(t *testing.T, got models.OvenState, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.Phase != "soak" || got.CurrentTempC != 171.4 {
					t.Errorf("unexpected state fields: %+v", got)
				}
				wantUTC := time.Date(2025, 1, 2, 6, 4, 5, 0, time.UTC)
				if !got.UpdatedAt.Equal(wantUTC) || got.UpdatedAt.Location() != time.UTC {
					t.Errorf("UpdatedAt: want %v, got %v", wantUTC, got.UpdatedAt)
				}
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := &monitoringStateRepoStub{loadResp: tc.repoResp, loadErr: tc.repoErr}
			svc := NewMonitoringService(nil, nil, repo, nil)

			got, err := svc.GetState(context.Background())
			tc.assertFunc(t, got, err)
		})
	}
}

func TestMonitoringService_GetState_Live(t *testing.T) {
	t.Parallel()

	ctrl := &fakeController{status: controller.Status{
		Phase:          controller.PhaseReflow,
		HasStarted:     true,
		ElapsedSeconds: 241,
		StageLabel:     controller.StageLabel(controller.PhaseReflow),
		TemperatureC:   221.3,
		SetpointC:      218,
		TargetC:        223.5,
		Heater:         controller.HeaterStatus{On: true},
	}}
	runs := &fakeRuns{}
	runs.view.RunID = "run-5"
	repo := &monitoringStateRepoStub{loadErr: errors.New("should not be read")}

	got, err := NewMonitoringService(ctrl, runs, repo, nil).GetState(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RunID != "run-5" || got.Phase != "reflow" || got.StageLabel != "Reflow" {
		t.Fatalf("unexpected identity fields: %+v", got)
	}
	if got.CurrentTempC != 221.3 || got.SetpointC != 218 || got.TargetC != 223.5 || !got.HeaterOn {
		t.Fatalf("unexpected control fields: %+v", got)
	}
	if got.ElapsedSeconds != 241 || got.ElapsedText != "04:01" || !got.IsRunning {
		t.Fatalf("unexpected timing fields: %+v", got)
	}
	if len(got.ErrorCodes) != 0 {
		t.Fatalf("expected no error codes, got %v", got.ErrorCodes)
	}
}

func TestMonitoringService_FaultCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want string
	}{
		{"sensor", &controller.SensorError{Err: errors.New("open probe")}, errCodeSensorFault},
		{"actuator", errors.New("heater on: relay stuck"), errCodeActuatorFault},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			ctrl := &fakeController{status: controller.Status{
				Phase: controller.PhaseSoak,
				Fault: &controller.Fault{Phase: controller.PhaseSoak, Err: c.err},
			}}
			got, _ := NewMonitoringService(ctrl, nil, &monitoringStateRepoStub{}, nil).GetState(context.Background())
			if len(got.ErrorCodes) != 1 || got.ErrorCodes[0] != c.want {
				t.Fatalf("ErrorCodes = %v, want [%s]", got.ErrorCodes, c.want)
			}
			if got.Phase != "soak" {
				t.Fatalf("halted phase should be kept, got %q", got.Phase)
			}
		})
	}
}

func TestMonitoringService_RecordPersistsAndObserves(t *testing.T) {
	t.Parallel()

	ctrl := &fakeController{status: controller.Status{
		Phase:        controller.PhasePreheat,
		TemperatureC: 120,
		Heater:       controller.HeaterStatus{On: true},
	}}
	repo := &monitoringStateRepoStub{}
	m := monitor.New()
	svc := NewMonitoringService(ctrl, nil, repo, m)

	if err := svc.record(context.Background()); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(repo.savedCalls) != 1 || repo.savedCalls[0].Phase != "preheat" || repo.savedCalls[0].ID != 1 {
		t.Fatalf("unexpected saves: %+v", repo.savedCalls)
	}
	if v := testutil.ToFloat64(m.TemperatureC); v != 120 {
		t.Fatalf("temperature gauge = %v, want 120", v)
	}
	if v := testutil.ToFloat64(m.Phase.WithLabelValues("preheat")); v != 1 {
		t.Fatalf("phase gauge = %v, want 1", v)
	}
}

func TestMonitoringService_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	repo := &monitoringStateRepoStub{}
	svc := NewMonitoringService(&fakeController{}, nil, repo, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestToUTC(t *testing.T) {
	t.Parallel()

	t.Run("zero time is preserved", func(t *testing.T) {
		t.Parallel()
		var z time.Time
		if got := toUTC(z); !got.IsZero() {
			t.Fatalf("expected zero time, got %v", got)
		}
	})

	t.Run("non-zero converted to UTC", func(t *testing.T) {
		t.Parallel()
		local := time.Date(2025, 2, 3, 10, 0, 0, 0, time.FixedZone("Z+2", 2*3600))
		got := toUTC(local)
		want := time.Date(2025, 2, 3, 8, 0, 0, 0, time.UTC)
		if got.Location() != time.UTC || !got.Equal(want) {
			t.Fatalf("want %v, got %v", want, got)
		}
	})
}
