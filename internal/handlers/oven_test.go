package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reflow_oven/internal/controller"
	"reflow_oven/internal/models"
	"reflow_oven/internal/service"
)

func TestOvenHandlers_StartStopAndState(t *testing.T) {
	auth := &mockAuth{parseID: 7}
	mon := &mockMonitoring{state: models.OvenState{Phase: "preheat", StageLabel: "Preheat", CurrentTempC: 90, IsRunning: true}}
	ov := &mockOven{runID: "run-42"}
	s := &service.Service{
		Authorization: auth,
		Monitoring:    mon,
		Oven:          ov,
	}
	r := newTestRouter(s)

	// state requires auth
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/oven/state", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/oven/state"))
	if w.Code != http.StatusOK {
		t.Fatalf("state status=%d, body=%s", w.Code, w.Body.String())
	}
	var st models.OvenState
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if st.Phase != "preheat" || st.CurrentTempC != 90 {
		t.Fatalf("unexpected state: %+v", st)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/oven/start"))
	if w.Code != http.StatusOK {
		t.Fatalf("start status=%d, body=%s", w.Code, w.Body.String())
	}
	if ov.startCalled != 1 {
		t.Fatalf("expected Start to be called once, got %d", ov.startCalled)
	}
	var resp struct {
		Status string           `json:"status"`
		RunID  string           `json:"run_id"`
		State  models.OvenState `json:"state"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != statusStarted || resp.RunID != "run-42" {
		t.Fatalf("unexpected start response: %+v", resp)
	}
	if resp.State.Phase != "preheat" {
		t.Fatalf("state missing/invalid in response: %+v", resp.State)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/oven/stop"))
	if w.Code != http.StatusOK {
		t.Fatalf("stop status=%d, body=%s", w.Code, w.Body.String())
	}
	if ov.stopCalled != 1 {
		t.Fatalf("expected Stop to be called once, got %d", ov.stopCalled)
	}
}

func TestOvenHandlers_StartErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"run in progress", controller.ErrRunInProgress, http.StatusConflict, errRunActive},
		{"wrapped run in progress", fmt.Errorf("start: %w", controller.ErrRunInProgress), http.StatusConflict, errRunActive},
		{"sensor fault", &controller.SensorError{Reading: -5, Err: controller.ErrSensorOutOfRange}, http.StatusServiceUnavailable, errSensorFault},
		{"other", errors.New("relay stuck"), http.StatusInternalServerError, errStartRun},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &service.Service{
				Authorization: &mockAuth{parseID: 1},
				Monitoring:    &mockMonitoring{},
				Oven:          &mockOven{startErr: tc.err},
			}
			w := httptest.NewRecorder()
			newTestRouter(s).ServeHTTP(w, authedRequest(http.MethodPost, "/api/v1/oven/start"))
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d, want %d (body=%s)", w.Code, tc.wantCode, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tc.wantMsg) {
				t.Fatalf("body %s does not mention %q", w.Body.String(), tc.wantMsg)
			}
		})
	}
}

func TestOvenHandlers_StopAndStateErrors(t *testing.T) {
	s := &service.Service{
		Authorization: &mockAuth{parseID: 1},
		Monitoring:    &mockMonitoring{err: errors.New("db down")},
		Oven:          &mockOven{stopErr: errors.New("db down")},
	}
	r := newTestRouter(s)

	for _, target := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/oven/stop"},
		{http.MethodGet, "/api/v1/oven/state"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, authedRequest(target.method, target.path))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("%s %s: status=%d, want 500", target.method, target.path, w.Code)
		}
	}
}

func TestOvenHandlers_Profile(t *testing.T) {
	view := service.ProfileView{
		Name:            "sn63pb37",
		Points:          []controller.Point{{TimeSeconds: 0, Temperature: 25}, {TimeSeconds: 300, Temperature: 30}},
		DurationSeconds: 300,
		Chart:           controller.ChartRange{Low: 20, High: 250},
	}
	s := &service.Service{Authorization: &mockAuth{parseID: 1}, Profile: &mockProfile{view: view}}

	w := httptest.NewRecorder()
	newTestRouter(s).ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/oven/profile"))
	if w.Code != http.StatusOK {
		t.Fatalf("profile status=%d, body=%s", w.Code, w.Body.String())
	}
	var got service.ProfileView
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != "sn63pb37" || got.DurationSeconds != 300 || len(got.Points) != 2 || got.Chart.High != 250 {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestOvenHandlers_Samples(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	samples := &mockSamples{resp: service.RunSamples{
		RunID:   "run-1",
		Count:   2,
		Samples: []models.RunSample{{RunID: "run-1", Seq: 0, TempC: 25, TakenAt: at}, {RunID: "run-1", Seq: 1, TempC: 27, TakenAt: at.Add(time.Second)}},
	}}
	s := &service.Service{Authorization: &mockAuth{parseID: 1}, Samples: samples}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/oven/samples?run_id=run-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("samples status=%d, body=%s", w.Code, w.Body.String())
	}
	if samples.lastRunID != "run-1" {
		t.Fatalf("run_id not passed: %q", samples.lastRunID)
	}
	var got service.RunSamples
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Count != 2 || got.Samples[1].TempC != 27 {
		t.Fatalf("unexpected samples: %+v", got)
	}

	samples.err = errors.New("db down")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodGet, "/api/v1/oven/samples"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if samples.lastRunID != "" {
		t.Fatalf("expected empty run_id, got %q", samples.lastRunID)
	}
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	s := &service.Service{}

	w := httptest.NewRecorder()
	newTestRouter(s).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("metrics without handler: status=%d, want 404", w.Code)
	}

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("oven_temperature_celsius 25\n"))
	})
	r := newTestRouter(s, WithMetrics(metrics))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "oven_temperature_celsius") {
		t.Fatalf("metrics status=%d body=%s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), statusOK) {
		t.Fatalf("health status=%d body=%s", w.Code, w.Body.String())
	}
}
