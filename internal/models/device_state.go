package models

import "time"

// Field names used in DeviceStatus.PendingFields and event metadata.
const (
	FieldPumpStatus    = "pumpStatus"
	FieldHeaterStatus  = "heaterStatus"
	FieldOperationMode = "operationMode"
	FieldTargetTemp    = "targetTemp"
	FieldPumpOnTimer   = "pumpOnTimer"
	FieldPumpOffTimer  = "pumpOffTimer"
)

// DeviceState is the controllable part of the tank: actuators, mode and timers.
type DeviceState struct {
	PumpStatus    bool    `json:"pumpStatus"`
	HeaterStatus  bool    `json:"heaterStatus"`
	OperationMode bool    `json:"operationMode"` // true = automatic
	TargetTemp    float64 `json:"targetTemp"`    // °C
	PumpOnTimer   int     `json:"pumpOnTimer"`   // seconds
	PumpOffTimer  int     `json:"pumpOffTimer"`  // seconds
}

// Diff returns the names of the fields that differ between s and o.
func (s DeviceState) Diff(o DeviceState) []string {
	var out []string
	if s.PumpStatus != o.PumpStatus {
		out = append(out, FieldPumpStatus)
	}
	if s.HeaterStatus != o.HeaterStatus {
		out = append(out, FieldHeaterStatus)
	}
	if s.OperationMode != o.OperationMode {
		out = append(out, FieldOperationMode)
	}
	if s.TargetTemp != o.TargetTemp {
		out = append(out, FieldTargetTemp)
	}
	if s.PumpOnTimer != o.PumpOnTimer {
		out = append(out, FieldPumpOnTimer)
	}
	if s.PumpOffTimer != o.PumpOffTimer {
		out = append(out, FieldPumpOffTimer)
	}
	return out
}

// StoredDeviceState is the confirmed state as persisted locally. ID is 0 when nothing was stored yet.
type StoredDeviceState struct {
	ID        int         `json:"id"`
	State     DeviceState `json:"state"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// DeviceStatus is the reconciler view served to the dashboard.
type DeviceStatus struct {
	MemoryState   DeviceState `json:"memoryState"`
	DatabaseState DeviceState `json:"databaseState"`
	PendingSync   bool        `json:"pendingSync"`
	PendingFields []string    `json:"pendingFields,omitempty"`
	PendingSince  *time.Time  `json:"pendingSince,omitempty"`
	LastSyncAt    *time.Time  `json:"lastSyncAt,omitempty"`
	Source        string      `json:"source"`
}

// CommandResult tells the caller what happened to a control command.
type CommandResult struct {
	Applied   bool         `json:"applied"`
	Throttled bool         `json:"throttled"`
	Status    DeviceStatus `json:"status"`
}
