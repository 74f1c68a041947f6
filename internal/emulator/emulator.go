// Package emulator generates synthetic tank readings for demos without hardware.
package emulator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"aquaponics_monitor/internal/broker"
	"aquaponics_monitor/internal/models"
)

// Controllable devices.
const (
	DevicePump   = "pump"
	DeviceHeater = "heater"
)

var (
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrUnknownDevice   = errors.New("unknown device")
	ErrInvalidConfig   = errors.New("invalid emulator config")
)

const (
	DefaultUpdateInterval = 5 // seconds
	minUpdateInterval     = 1
)

// DefaultConfig is used when no emulator_config.json exists.
func DefaultConfig() models.EmulatorConfig {
	return models.EmulatorConfig{
		Enabled:        false,
		UpdateInterval: DefaultUpdateInterval,
		SensorRanges: map[string]models.SensorRange{
			models.SensorTemperature: {Min: 18, Max: 32, Current: 25, Fluctuation: 0.3},
			models.SensorLevel:       {Min: 0, Max: 100, Current: 75, Fluctuation: 1},
		},
		ControlStates: models.ControlStates{PumpStatus: false, HeaterStatus: false},
		Mode:          models.EmulatorFluctuating,
	}
}

// Emulator owns the synthetic channel and the generation state.
type Emulator struct {
	mu    sync.Mutex
	cfg   models.EmulatorConfig
	ticks int64
	last  *models.Reading

	gen   *Generator
	store *Store
	unit  broker.LevelUnit
}

// New builds an emulator from cfg writing levels in unit.
func New(cfg models.EmulatorConfig, gen *Generator, store *Store, unit broker.LevelUnit) (*Emulator, error) {
	if gen == nil {
		gen = NewGenerator(nil)
	}
	if store == nil {
		store = NewStore(nil)
	}
	cfg = normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	e := &Emulator{cfg: cfg, gen: gen, store: store, unit: unit}
	store.onWrite = e.applyControlUpdate
	return e, nil
}

// Broker exposes the synthetic channel.
func (e *Emulator) Broker() *Store {
	return e.store
}

// Config returns a copy of the current configuration.
func (e *Emulator) Config() models.EmulatorConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneConfig(e.cfg)
}

// Interval is the tick period.
func (e *Emulator) Interval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return time.Duration(e.cfg.UpdateInterval) * time.Second
}

// Snapshot returns tick count and last generated reading.
func (e *Emulator) Snapshot() (int64, *models.Reading) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return e.ticks, nil
	}
	r := *e.last
	return e.ticks, &r
}

// SetConfig replaces the configuration after validation.
func (e *Emulator) SetConfig(cfg models.EmulatorConfig) error {
	if cfg.Mode == models.EmulatorScenario {
		if _, ok := LookupScenario(cfg.ScenarioName); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownScenario, cfg.ScenarioName)
		}
	}
	cfg = normalize(cfg)
	if err := Validate(cfg); err != nil {
		return err
	}
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	return nil
}

// LoadScenario overrides sensor ranges and actuator states with a preset.
func (e *Emulator) LoadScenario(name string) (models.Scenario, error) {
	sc, ok := LookupScenario(name)
	if !ok {
		return models.Scenario{}, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.Mode = models.EmulatorScenario
	e.cfg.ScenarioName = sc.Name
	e.cfg.SensorRanges = cloneRanges(sc.SensorRanges)
	// mode, target and timers belong to the operator, not to the preset
	e.cfg.ControlStates.PumpStatus = sc.ControlStates.PumpStatus
	e.cfg.ControlStates.HeaterStatus = sc.ControlStates.HeaterStatus
	return sc, nil
}

// Seed replaces the control states with the device state the reconciler holds,
// so the next tick reports it unchanged.
func (e *Emulator) Seed(st models.DeviceState) {
	e.mu.Lock()
	e.cfg.ControlStates = models.ControlStates(st)
	e.mu.Unlock()
}

// SetControl records an explicit actuator command and writes it to the channel.
func (e *Emulator) SetControl(device string, on bool) (models.ControlStates, error) {
	var u broker.Update
	e.mu.Lock()
	switch device {
	case DevicePump:
		e.cfg.ControlStates.PumpStatus = on
		u = broker.Update{broker.FieldPumpStatus: broker.FormatBool(on)}
	case DeviceHeater:
		e.cfg.ControlStates.HeaterStatus = on
		u = broker.Update{broker.FieldHeaterStatus: broker.FormatBool(on)}
	default:
		e.mu.Unlock()
		return models.ControlStates{}, fmt.Errorf("%w: %q", ErrUnknownDevice, device)
	}
	cs := e.cfg.ControlStates
	e.mu.Unlock()

	e.store.append(u)
	return cs, nil
}

// Tick generates one reading and stamps every control field on its entry, so a
// status read over the last entries always finds them.
func (e *Emulator) Tick() models.Reading {
	e.mu.Lock()
	temp, level := e.gen.Next(&e.cfg)
	cs := e.cfg.ControlStates
	e.mu.Unlock()

	r := models.Reading{
		Temperature:  temp,
		Level:        level,
		PumpStatus:   cs.PumpStatus,
		HeaterStatus: cs.HeaterStatus,
		Source:       broker.SourceEmulator,
	}
	u := broker.ReadingUpdate(r, e.unit)
	for f, v := range broker.DeviceStateUpdate(models.DeviceState(cs)) {
		u[f] = v
	}
	entry := e.store.append(u)
	r.EntryID = entry.EntryID
	r.Timestamp = entry.CreatedAt

	e.mu.Lock()
	e.ticks++
	e.last = &r
	e.mu.Unlock()
	return r
}

// applyControlUpdate keeps control states in line with commands written to
// the synthetic channel, so the next tick reports what was commanded.
func (e *Emulator) applyControlUpdate(u broker.Update) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := models.DeviceState(e.cfg.ControlStates)
	broker.ApplyUpdate(&st, u)
	e.cfg.ControlStates = models.ControlStates(st)
}

// Validate checks an emulator configuration.
func Validate(cfg models.EmulatorConfig) error {
	if cfg.UpdateInterval < minUpdateInterval {
		return fmt.Errorf("%w: updateInterval must be >= %d", ErrInvalidConfig, minUpdateInterval)
	}
	if !cfg.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, cfg.Mode)
	}
	for _, name := range []string{models.SensorTemperature, models.SensorLevel} {
		r, ok := cfg.SensorRanges[name]
		if !ok {
			return fmt.Errorf("%w: missing range for %s", ErrInvalidConfig, name)
		}
		if r.Min > r.Max {
			return fmt.Errorf("%w: %s min > max", ErrInvalidConfig, name)
		}
		if r.Fluctuation < 0 {
			return fmt.Errorf("%w: %s fluctuation < 0", ErrInvalidConfig, name)
		}
	}
	return nil
}

// normalize fills zero values from the defaults.
func normalize(cfg models.EmulatorConfig) models.EmulatorConfig {
	def := DefaultConfig()
	if cfg.UpdateInterval == 0 {
		cfg.UpdateInterval = def.UpdateInterval
	}
	if cfg.Mode == "" {
		cfg.Mode = def.Mode
	}
	fallback := def.SensorRanges
	if cfg.Mode == models.EmulatorScenario {
		if sc, ok := LookupScenario(cfg.ScenarioName); ok {
			fallback = sc.SensorRanges
		}
	}
	ranges := cloneRanges(cfg.SensorRanges)
	for k, v := range fallback {
		if _, ok := ranges[k]; !ok {
			ranges[k] = v
		}
	}
	cfg.SensorRanges = ranges
	return cfg
}

func cloneConfig(cfg models.EmulatorConfig) models.EmulatorConfig {
	cfg.SensorRanges = cloneRanges(cfg.SensorRanges)
	return cfg
}
