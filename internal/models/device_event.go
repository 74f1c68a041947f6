package models

import "time"

// Event types.
const (
	EventPump       = "PUMP"
	EventHeater     = "HEATER"
	EventModeChange = "MODE_CHANGE"
	EventTimer      = "TIMER"
	EventTargetTemp = "TARGET_TEMP"
	EventSync       = "SYNC"
	EventCycle      = "CYCLE"
	EventEmulator   = "EMULATOR"
	EventError      = "ERROR"
	EventSettings   = "SETTINGS"
)

// DeviceEvent is a single log entry.
type DeviceEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // PUMP | HEATER | MODE_CHANGE | ...
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
