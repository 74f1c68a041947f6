package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"aquaponics_monitor/internal/models"
	"aquaponics_monitor/internal/service"
)

func TestLogsHandler_ListAndValidation(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	events := []models.DeviceEvent{
		{EventID: "e1", OccurredAt: now, Type: models.EventPump, Description: "pump on"},
		{EventID: "e2", OccurredAt: now.Add(1 * time.Second), Type: models.EventModeChange, Description: "mode"},
	}
	logs := &mockEventLog{resp: events}
	r := newTestRouter(&service.Service{EventLog: logs})

	// invalid 'from' → 400
	w := doJSON(r, http.MethodGet, "/api/logs?from=notatime", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid 'from', got %d", w.Code)
	}

	// invalid limit → 400
	w = doJSON(r, http.MethodGet, "/api/logs?limit=-1", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid limit, got %d", w.Code)
	}

	// Valid range and type (lowercase type should be normalized to upper in service call)
	q := "/api/logs?from=" + now.Format(time.RFC3339) + "&to=" + now.Add(2*time.Second).Format(time.RFC3339) + "&type=mode_change&limit=10"
	w = doJSON(r, http.MethodGet, q, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logs status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count  int                  `json:"count"`
		Events []models.DeviceEvent `json:"events"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Events) != 2 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if logs.lastType != "MODE_CHANGE" {
		t.Fatalf("expected lastType MODE_CHANGE, got %q", logs.lastType)
	}
	if logs.lastLimit != 10 {
		t.Fatalf("expected limit 10, got %d", logs.lastLimit)
	}
}

func TestLogsHandler_DateOnlyToIsEndOfDay(t *testing.T) {
	logs := &mockEventLog{}
	r := newTestRouter(&service.Service{EventLog: logs})

	w := doJSON(r, http.MethodGet, "/api/logs?from=2025-08-01&to=2025-08-01", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	want := time.Date(2025, 8, 1, 23, 59, 59, 999999999, time.UTC)
	if !logs.lastTo.Equal(want) {
		t.Fatalf("expected to=%v, got %v", want, logs.lastTo)
	}

	w = doJSON(r, http.MethodGet, "/api/logs?from=2025-08-02&to=2025-08-01", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for reversed range, got %d", w.Code)
	}
}

func TestLogsHandler_ServiceErrorIsNotLeaked(t *testing.T) {
	logs := &mockEventLog{err: errors.New("disk I/O error")}
	r := newTestRouter(&service.Service{EventLog: logs})

	w := doJSON(r, http.MethodGet, "/api/logs", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var m map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &m)
	if m["error"] != "failed to load logs" {
		t.Fatalf("unexpected error body: %v", m)
	}
}
