package models

import "time"

// EmulatorMode selects how synthetic sensor values are generated.
type EmulatorMode string

const (
	EmulatorStable      EmulatorMode = "stable"
	EmulatorFluctuating EmulatorMode = "fluctuating"
	EmulatorRandom      EmulatorMode = "random"
	EmulatorScenario    EmulatorMode = "scenario"
)

// Valid reports whether m is a known mode.
func (m EmulatorMode) Valid() bool {
	switch m {
	case EmulatorStable, EmulatorFluctuating, EmulatorRandom, EmulatorScenario:
		return true
	}
	return false
}

// Sensor keys of EmulatorConfig.SensorRanges.
const (
	SensorTemperature = "temperature"
	SensorLevel       = "level"
)

// SensorRange bounds one emulated sensor.
type SensorRange struct {
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Current     float64 `json:"current"`
	Fluctuation float64 `json:"fluctuation"`
}

// ControlStates are the control fields the emulator reports on every tick.
// The layout matches DeviceState so the two convert directly.
type ControlStates struct {
	PumpStatus    bool    `json:"pumpStatus"`
	HeaterStatus  bool    `json:"heaterStatus"`
	OperationMode bool    `json:"operationMode"`
	TargetTemp    float64 `json:"targetTemp"`
	PumpOnTimer   int     `json:"pumpOnTimer"`
	PumpOffTimer  int     `json:"pumpOffTimer"`
}

// EmulatorConfig is persisted to emulator_config.json.
type EmulatorConfig struct {
	Enabled        bool                   `json:"enabled"`
	UpdateInterval int                    `json:"updateInterval"` // seconds
	SensorRanges   map[string]SensorRange `json:"sensorRanges"`
	ControlStates  ControlStates          `json:"controlStates"`
	Mode           EmulatorMode           `json:"mode"`
	ScenarioName   string                 `json:"scenarioName,omitempty"`
}

// Scenario is a named preset loaded into the emulator.
type Scenario struct {
	Name          string                 `json:"name"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	SensorRanges  map[string]SensorRange `json:"sensorRanges"`
	ControlStates ControlStates          `json:"controlStates"`
}

// EmulatorStatus is returned by the emulator status endpoint.
type EmulatorStatus struct {
	Active      bool           `json:"active"`
	Running     bool           `json:"running"`
	Config      EmulatorConfig `json:"config"`
	Ticks       int64          `json:"ticks"`
	LastReading *Reading       `json:"lastReading,omitempty"`
	StartedAt   *time.Time     `json:"startedAt,omitempty"`
}

// EmulatorData is the synthetic-data payload. Active is false while the
// emulator is stopped so the dashboard can render a placeholder.
type EmulatorData struct {
	Active  bool     `json:"active"`
	Reading *Reading `json:"reading"`
	Message string   `json:"message,omitempty"`
}
