package emulator

import (
	"sort"

	"aquaponics_monitor/internal/models"
)

// Scenario names.
const (
	ScenarioNormal          = "normal"
	ScenarioPumpFailure     = "pump_failure"
	ScenarioLowWaterLevel   = "low_water_level"
	ScenarioHighTemperature = "high_temperature"
	ScenarioLowTemperature  = "low_temperature"
	ScenarioSensorFault     = "sensor_fault"
)

var scenarios = map[string]models.Scenario{
	ScenarioNormal: {
		Name:        ScenarioNormal,
		Title:       "Operação normal",
		Description: "Temperature and level inside the usual band, pump running.",
		SensorRanges: map[string]models.SensorRange{
			models.SensorTemperature: {Min: 24, Max: 27, Current: 25.5, Fluctuation: 0.2},
			models.SensorLevel:       {Min: 60, Max: 90, Current: 75, Fluctuation: 0.5},
		},
		ControlStates: models.ControlStates{PumpStatus: true},
	},
	ScenarioPumpFailure: {
		Name:        ScenarioPumpFailure,
		Title:       "Falha na bomba",
		Description: "Pump stopped; grow-bed level drains slowly.",
		SensorRanges: map[string]models.SensorRange{
			models.SensorTemperature: {Min: 24, Max: 28, Current: 26, Fluctuation: 0.2},
			models.SensorLevel:       {Min: 20, Max: 50, Current: 38, Fluctuation: 1.5},
		},
		ControlStates: models.ControlStates{PumpStatus: false},
	},
	ScenarioLowWaterLevel: {
		Name:        ScenarioLowWaterLevel,
		Title:       "Nível de água baixo",
		Description: "Tank level well below the setpoint.",
		SensorRanges: map[string]models.SensorRange{
			models.SensorTemperature: {Min: 24, Max: 27, Current: 25, Fluctuation: 0.2},
			models.SensorLevel:       {Min: 5, Max: 25, Current: 15, Fluctuation: 1},
		},
		ControlStates: models.ControlStates{PumpStatus: true},
	},
	ScenarioHighTemperature: {
		Name:        ScenarioHighTemperature,
		Title:       "Temperatura alta",
		Description: "Water overheating with the heater off.",
		SensorRanges: map[string]models.SensorRange{
			models.SensorTemperature: {Min: 30, Max: 36, Current: 33, Fluctuation: 0.4},
			models.SensorLevel:       {Min: 60, Max: 90, Current: 72, Fluctuation: 0.5},
		},
		ControlStates: models.ControlStates{PumpStatus: true, HeaterStatus: false},
	},
	ScenarioLowTemperature: {
		Name:        ScenarioLowTemperature,
		Title:       "Temperatura baixa",
		Description: "Cold water while the heater struggles to keep up.",
		SensorRanges: map[string]models.SensorRange{
			models.SensorTemperature: {Min: 14, Max: 19, Current: 16, Fluctuation: 0.3},
			models.SensorLevel:       {Min: 60, Max: 90, Current: 74, Fluctuation: 0.5},
		},
		ControlStates: models.ControlStates{PumpStatus: true, HeaterStatus: true},
	},
	ScenarioSensorFault: {
		Name:        ScenarioSensorFault,
		Title:       "Sensor desconectado",
		Description: "Temperature sensor reports the disconnected sentinel.",
		SensorRanges: map[string]models.SensorRange{
			models.SensorTemperature: {Min: models.TemperatureFault, Max: models.TemperatureFault, Current: models.TemperatureFault},
			models.SensorLevel:       {Min: 60, Max: 90, Current: 75, Fluctuation: 0.5},
		},
		ControlStates: models.ControlStates{PumpStatus: true},
	},
}

// Scenarios returns all presets sorted by name.
func Scenarios() []models.Scenario {
	out := make([]models.Scenario, 0, len(scenarios))
	for _, s := range scenarios {
		out = append(out, cloneScenario(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupScenario returns the preset with the given name.
func LookupScenario(name string) (models.Scenario, bool) {
	s, ok := scenarios[name]
	if !ok {
		return models.Scenario{}, false
	}
	return cloneScenario(s), true
}

func cloneScenario(s models.Scenario) models.Scenario {
	s.SensorRanges = cloneRanges(s.SensorRanges)
	return s
}

func cloneRanges(in map[string]models.SensorRange) map[string]models.SensorRange {
	out := make(map[string]models.SensorRange, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
