package models

import "time"

// TemperatureFault is what a disconnected temperature sensor reports.
const TemperatureFault = -127.0

// Reading is one sample of the tank sensors and actuator flags.
type Reading struct {
	ID           int64     `json:"id,omitempty"`
	EntryID      int64     `json:"entryId,omitempty"`
	Temperature  float64   `json:"temperature"` // °C
	Level        float64   `json:"level"`       // percent, 0-100
	PumpStatus   bool      `json:"pumpStatus"`
	HeaterStatus bool      `json:"heaterStatus"`
	Source       string    `json:"source,omitempty"` // thingspeak | emulator
	Timestamp    time.Time `json:"timestamp"`
}

// SensorFault reports whether the temperature sensor was disconnected.
func (r Reading) SensorFault() bool {
	return r.Temperature == TemperatureFault
}

// SensorStats aggregates one sensor over a range of readings.
type SensorStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

// ReadingStats is the aggregate view served by the historical-data endpoints.
type ReadingStats struct {
	Temperature SensorStats `json:"temperature"`
	Level       SensorStats `json:"level"`
	FaultCount  int         `json:"faultCount"`
	Total       int         `json:"total"`
	From        time.Time   `json:"from,omitempty"`
	To          time.Time   `json:"to,omitempty"`
}
