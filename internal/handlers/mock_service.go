package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"reflow_oven/internal/models"
	"reflow_oven/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockOven struct {
	runID       string
	startErr    error
	stopErr     error
	startCalled int
	stopCalled  int
}

func (m *mockOven) Start(ctx context.Context) (string, error) {
	m.startCalled++
	if m.startErr != nil {
		return "", m.startErr
	}
	return m.runID, nil
}
func (m *mockOven) Stop(ctx context.Context) error {
	m.stopCalled++
	return m.stopErr
}

type mockMonitoring struct {
	state models.OvenState
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.OvenState, error) {
	return m.state, m.err
}

type mockEventLog struct {
	resp      []models.OvenEvent
	err       error
	lastFrom  time.Time
	lastTo    time.Time
	lastType  string
	lastRunID string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.OvenEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	m.lastRunID = f.RunID
	return m.resp, m.err
}

type mockProfile struct {
	view service.ProfileView
}

func (m *mockProfile) GetProfile() service.ProfileView { return m.view }

type mockSamples struct {
	resp      service.RunSamples
	err       error
	lastRunID string
}

func (m *mockSamples) ListByRun(ctx context.Context, runID string) (service.RunSamples, error) {
	m.lastRunID = runID
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service, opts ...Option) *gin.Engine {
	h := NewHandler(s, nil, opts...)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// authedRequest builds a request carrying a bearer token.
func authedRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
