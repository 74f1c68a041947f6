package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"aquaponics_monitor/internal/models"
	"aquaponics_monitor/internal/service"
)

func TestEmulatorHandlers_StartStopStatus(t *testing.T) {
	emu := &mockEmulator{status: models.EmulatorStatus{Active: true, Running: true}}
	r := newTestRouter(&service.Service{Emulator: emu})

	if w := doJSON(r, http.MethodPost, "/api/emulator/start", "", nil); w.Code != http.StatusOK || emu.startCalled != 1 {
		t.Fatalf("start: %d called=%d", w.Code, emu.startCalled)
	}
	if w := doJSON(r, http.MethodPost, "/api/emulator/stop", "", nil); w.Code != http.StatusOK || emu.stopCalled != 1 {
		t.Fatalf("stop: %d called=%d", w.Code, emu.stopCalled)
	}

	w := doJSON(r, http.MethodGet, "/api/emulator/status", "", nil)
	var st models.EmulatorStatus
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if w.Code != http.StatusOK || !st.Running {
		t.Fatalf("status: %d %s", w.Code, w.Body.String())
	}
}

func TestEmulatorHandlers_Config(t *testing.T) {
	emu := &mockEmulator{config: models.EmulatorConfig{UpdateInterval: 5, Mode: models.EmulatorStable}}
	r := newTestRouter(&service.Service{Emulator: emu})

	w := doJSON(r, http.MethodGet, "/api/emulator/config", "", nil)
	var cfg models.EmulatorConfig
	_ = json.Unmarshal(w.Body.Bytes(), &cfg)
	if w.Code != http.StatusOK || cfg.UpdateInterval != 5 {
		t.Fatalf("get config: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(r, http.MethodPost, "/api/emulator/config", `{"updateInterval":10,"mode":"random"}`, nil)
	if w.Code != http.StatusOK || emu.lastConfig.Mode != models.EmulatorRandom || emu.lastConfig.UpdateInterval != 10 {
		t.Fatalf("update config: %d %+v", w.Code, emu.lastConfig)
	}

	emu.err = service.ErrInvalidEmulator
	if w := doJSON(r, http.MethodPost, "/api/emulator/config", `{"mode":"chaos"}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid config, got %d", w.Code)
	}
}

func TestEmulatorHandlers_ScenariosAndControl(t *testing.T) {
	emu := &mockEmulator{
		scenarios: []models.Scenario{{Name: "normal"}, {Name: "cold_water"}},
		controls:  models.ControlStates{PumpStatus: true},
		data:      models.EmulatorData{Active: false, Message: "emulador desativado"},
	}
	r := newTestRouter(&service.Service{Emulator: emu})

	w := doJSON(r, http.MethodGet, "/api/emulator/scenarios", "", nil)
	var list []models.Scenario
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if w.Code != http.StatusOK || len(list) != 2 {
		t.Fatalf("scenarios: %d %s", w.Code, w.Body.String())
	}

	if w := doJSON(r, http.MethodPost, "/api/emulator/scenarios/cold_water", "", nil); w.Code != http.StatusOK || emu.lastScenario != "cold_water" {
		t.Fatalf("load scenario: %d %q", w.Code, emu.lastScenario)
	}

	w = doJSON(r, http.MethodPost, "/api/emulator/control/pump", `{"status":true}`, nil)
	if w.Code != http.StatusOK || emu.lastDevice != "pump" || !emu.lastOn {
		t.Fatalf("control: %d device=%q on=%v", w.Code, emu.lastDevice, emu.lastOn)
	}
	if w := doJSON(r, http.MethodPost, "/api/emulator/control/pump", `{}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("control without status: expected 400, got %d", w.Code)
	}

	w = doJSON(r, http.MethodGet, "/api/emulator/data", "", nil)
	var data models.EmulatorData
	_ = json.Unmarshal(w.Body.Bytes(), &data)
	if w.Code != http.StatusOK || data.Active || data.Message != "emulador desativado" {
		t.Fatalf("data: %d %s", w.Code, w.Body.String())
	}

	for _, tc := range []struct {
		err  error
		path string
		body string
		code int
	}{
		{service.ErrUnknownScenario, "/api/emulator/scenarios/nope", "", http.StatusNotFound},
		{service.ErrUnknownDevice, "/api/emulator/control/valve", `{"status":true}`, http.StatusNotFound},
		{service.ErrEmulatorDisabled, "/api/emulator/control/pump", `{"status":true}`, http.StatusConflict},
	} {
		emu.err = tc.err
		if w := doJSON(r, http.MethodPost, tc.path, tc.body, nil); w.Code != tc.code {
			t.Fatalf("%s: expected %d, got %d", tc.path, tc.code, w.Code)
		}
	}
}
