package models

import "time"

// PumpCycleState is the automatic pump cycle as seen at query time.
type PumpCycleState struct {
	Active            bool       `json:"active"`
	PumpStatus        bool       `json:"pumpStatus"`
	CurrentTimerTotal int        `json:"currentTimerTotal"` // seconds
	TimeRemaining     int        `json:"timeRemaining"`     // seconds
	Elapsed           int        `json:"elapsed"`           // seconds
	Progress          float64    `json:"progress"`          // 0..1
	PhaseStartedAt    *time.Time `json:"phaseStartedAt,omitempty"`
}
