package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aquaponics_monitor/internal/models"
	"aquaponics_monitor/internal/service"
)

// readEvent returns the event name and data of the next SSE message.
func readEvent(t *testing.T, sc *bufio.Scanner) (string, string) {
	t.Helper()
	var name, data string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "" && name != "":
			return name, data
		}
	}
	t.Fatalf("stream ended: %v", sc.Err())
	return "", ""
}

func TestStreamStatus_SendsInitialAndPushed(t *testing.T) {
	hub := service.NewHub()
	s := &service.Service{
		Devices: &mockDevices{status: statusWithTarget(25)},
		Status:  hub,
	}
	srv := httptest.NewServer(newTestRouter(s))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/device/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	name, data := readEvent(t, sc)
	var st models.DeviceStatus
	if name != "status" || json.Unmarshal([]byte(data), &st) != nil || st.MemoryState.TargetTemp != 25 {
		t.Fatalf("unexpected first event %q %s", name, data)
	}

	hub.Publish(statusWithTarget(27))
	name, data = readEvent(t, sc)
	if name != "status" || json.Unmarshal([]byte(data), &st) != nil || st.MemoryState.TargetTemp != 27 {
		t.Fatalf("unexpected pushed event %q %s", name, data)
	}
}
