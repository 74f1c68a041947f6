package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"aquaponics_monitor/internal/broker"
	"aquaponics_monitor/internal/models"
	"aquaponics_monitor/internal/service"
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

type mockDevices struct {
	status models.DeviceStatus
	result models.CommandResult
	err    error

	calls      []string
	lastBool   bool
	lastKind   service.TimerKind
	lastTimer  string
	lastTarget float64
}

func (m *mockDevices) GetStatus() models.DeviceStatus { return m.status }

func (m *mockDevices) SetPump(ctx context.Context, on bool) (models.CommandResult, error) {
	m.calls = append(m.calls, "pump")
	m.lastBool = on
	return m.result, m.err
}
func (m *mockDevices) SetHeater(ctx context.Context, on bool) (models.CommandResult, error) {
	m.calls = append(m.calls, "heater")
	m.lastBool = on
	return m.result, m.err
}
func (m *mockDevices) SetOperationMode(ctx context.Context, automatic bool) (models.CommandResult, error) {
	m.calls = append(m.calls, "mode")
	m.lastBool = automatic
	return m.result, m.err
}
func (m *mockDevices) SetTimer(ctx context.Context, kind service.TimerKind, seconds string) (models.CommandResult, error) {
	m.calls = append(m.calls, "timer")
	m.lastKind = kind
	m.lastTimer = seconds
	return m.result, m.err
}
func (m *mockDevices) SetTargetTemp(ctx context.Context, celsius float64) (models.CommandResult, error) {
	m.calls = append(m.calls, "target")
	m.lastTarget = celsius
	return m.result, m.err
}
func (m *mockDevices) ForceSync(ctx context.Context) (models.DeviceStatus, error) {
	m.calls = append(m.calls, "sync")
	return m.status, m.err
}

type mockPumpCycle struct {
	state       models.PumpCycleState
	forceErr    error
	forceCalled int
}

func (m *mockPumpCycle) State() models.PumpCycleState { return m.state }
func (m *mockPumpCycle) ForceCycleStart(ctx context.Context) (models.PumpCycleState, error) {
	m.forceCalled++
	return m.state, m.forceErr
}

type mockReadings struct {
	latest  models.LatestReading
	history []models.Reading
	stats   models.ReadingStats
	remote  []models.Reading
	err     error

	lastFilter service.HistoryFilter
	lastQuery  broker.FeedQuery
}

func (m *mockReadings) Latest(ctx context.Context) (models.LatestReading, error) {
	return m.latest, m.err
}
func (m *mockReadings) History(ctx context.Context, f service.HistoryFilter) ([]models.Reading, error) {
	m.lastFilter = f
	return m.history, m.err
}
func (m *mockReadings) Stats(ctx context.Context, f service.HistoryFilter) (models.ReadingStats, error) {
	m.lastFilter = f
	return m.stats, m.err
}
func (m *mockReadings) RemoteHistory(ctx context.Context, q broker.FeedQuery) ([]models.Reading, error) {
	m.lastQuery = q
	return m.remote, m.err
}

type mockSettings struct {
	settings  models.Settings
	err       error
	lastSaved models.Settings
}

func (m *mockSettings) Get(ctx context.Context) (models.Settings, error) { return m.settings, m.err }
func (m *mockSettings) Save(ctx context.Context, in models.Settings) (models.Settings, error) {
	m.lastSaved = in
	if m.err != nil {
		return models.Settings{}, m.err
	}
	return in, nil
}

type mockEmulator struct {
	status    models.EmulatorStatus
	config    models.EmulatorConfig
	scenarios []models.Scenario
	controls  models.ControlStates
	data      models.EmulatorData
	err       error

	startCalled  int
	stopCalled   int
	lastScenario string
	lastDevice   string
	lastOn       bool
	lastConfig   models.EmulatorConfig
}

func (m *mockEmulator) Status() models.EmulatorStatus { return m.status }
func (m *mockEmulator) Start(ctx context.Context) (models.EmulatorStatus, error) {
	m.startCalled++
	return m.status, m.err
}
func (m *mockEmulator) Stop(ctx context.Context) (models.EmulatorStatus, error) {
	m.stopCalled++
	return m.status, m.err
}
func (m *mockEmulator) Config() models.EmulatorConfig { return m.config }
func (m *mockEmulator) UpdateConfig(ctx context.Context, cfg models.EmulatorConfig) (models.EmulatorConfig, error) {
	m.lastConfig = cfg
	return cfg, m.err
}
func (m *mockEmulator) Scenarios() []models.Scenario { return m.scenarios }
func (m *mockEmulator) LoadScenario(ctx context.Context, name string) (models.Scenario, error) {
	m.lastScenario = name
	if m.err != nil {
		return models.Scenario{}, m.err
	}
	return models.Scenario{Name: name}, nil
}
func (m *mockEmulator) Control(ctx context.Context, device string, on bool) (models.ControlStates, error) {
	m.lastDevice = device
	m.lastOn = on
	return m.controls, m.err
}
func (m *mockEmulator) Data() models.EmulatorData { return m.data }

type mockEventLog struct {
	resp      []models.DeviceEvent
	err       error
	lastFrom  time.Time
	lastTo    time.Time
	lastType  string
	lastLimit int
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.DeviceEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	m.lastLimit = f.Limit
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	return newTestRouterWith(s, Options{})
}

func newTestRouterWith(s *service.Service, opts Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, opts)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func doJSON(r http.Handler, method, target, body string, hdr http.Header) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vv := range hdr {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
