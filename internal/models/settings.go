package models

import "time"

// Range is an inclusive [Min, Max] threshold.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Setpoints are the operator thresholds for the tank sensors.
type Setpoints struct {
	Temp  Range `json:"temp"`
	Level Range `json:"level"` // percent
}

// Settings is the operator-facing configuration stored in sqlite.
type Settings struct {
	Setpoints     Setpoints `json:"setpoints"`
	AlertsEnabled bool      `json:"alertsEnabled"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

// Alert kinds.
const (
	AlertLow   = "low"
	AlertHigh  = "high"
	AlertFault = "fault"
)

// Alert describes a setpoint breach or sensor fault on a reading.
type Alert struct {
	Sensor  string  `json:"sensor"`
	Kind    string  `json:"kind"`
	Value   float64 `json:"value"`
	Message string  `json:"message"`
}

// LatestReading is the payload of the latest-reading endpoint.
type LatestReading struct {
	Reading     *Reading `json:"reading"`
	SensorFault bool     `json:"sensorFault"`
	Alerts      []Alert  `json:"alerts"`
	Source      string   `json:"source"`
}
