package service

import (
	"errors"

	"aquaponics_monitor/internal/emulator"
)

var (
	// ErrAutomaticMode rejects manual pump commands while the cycle owns the pump.
	ErrAutomaticMode     = errors.New("modo automático ativo")
	ErrNotAutomatic      = errors.New("automatic mode is not active")
	ErrInvalidTimer      = errors.New("timer must be a whole number of seconds, at least 1")
	ErrInvalidTimerKind  = errors.New(`timer kind must be "on" or "off"`)
	ErrInvalidTargetTemp = errors.New("target temperature out of range")
	ErrInvalidTimeRange  = errors.New("invalid time range: from must be <= to")
	ErrInvalidSetpoints  = errors.New("invalid setpoints: min must be lower than max")
	ErrEmulatorDisabled  = errors.New("emulator is not running")

	ErrUnknownScenario = emulator.ErrUnknownScenario
	ErrUnknownDevice   = emulator.ErrUnknownDevice
	ErrInvalidEmulator = emulator.ErrInvalidConfig
)
