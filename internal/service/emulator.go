package service

import (
	"context"
	"sync"
	"time"

	"aquaponics_monitor/internal/broker"
	"aquaponics_monitor/internal/emulator"
	"aquaponics_monitor/internal/logger"
	"aquaponics_monitor/internal/models"
	"aquaponics_monitor/internal/repository"
)

// DeviceMemory exposes the reconciler state the emulator continues from.
type DeviceMemory interface {
	LoadedMemory() (models.DeviceState, bool)
}

// EmulatorService starts and stops the synthetic feed and routes the broker switch to it.
type EmulatorService struct {
	emu       *emulator.Emulator
	store     *emulator.ConfigStore
	sw        *broker.Switch
	devices   DeviceMemory
	eventRepo repository.EventRepo

	log *logger.Logger
	now func() time.Time

	mu        sync.Mutex
	running   bool
	startedAt *time.Time
	wake      chan struct{}
}

// NewEmulatorService builds the service. devices may be nil, in which case the
// emulator starts from its persisted control states.
func NewEmulatorService(emu *emulator.Emulator, store *emulator.ConfigStore, sw *broker.Switch, devices DeviceMemory, eventRepo repository.EventRepo, opts ...Option) *EmulatorService {
	o := buildOptions(opts)
	return &EmulatorService{
		emu:       emu,
		store:     store,
		sw:        sw,
		devices:   devices,
		eventRepo: eventRepo,
		log:       o.log.With("component", "emulator"),
		now:       o.now,
		wake:      make(chan struct{}, 1),
	}
}

func (s *EmulatorService) Status() models.EmulatorStatus {
	ticks, last := s.emu.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.EmulatorStatus{
		Active:      s.running,
		Running:     s.running,
		Config:      s.emu.Config(),
		Ticks:       ticks,
		LastReading: last,
		StartedAt:   copyTime(s.startedAt),
	}
}

// Running reports whether the synthetic feed is active.
func (s *EmulatorService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start routes the broker to the emulator and produces a first reading right away.
// The emulator continues from the reconciler's state when one is loaded.
func (s *EmulatorService) Start(ctx context.Context) (models.EmulatorStatus, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return s.Status(), nil
	}
	seeded := s.seed()
	if err := s.setEnabled(true); err != nil {
		s.mu.Unlock()
		return models.EmulatorStatus{}, err
	}
	s.running = true
	t := s.now().UTC()
	s.startedAt = &t
	s.sw.UseEmulator(s.emu.Broker())
	s.mu.Unlock()

	s.emu.Tick()
	s.signal()
	s.log.Infow("emulator_started", "mode", s.emu.Config().Mode, "seeded_from_device", seeded)
	s.appendEvent(ctx, "Emulator started", nil)
	return s.Status(), nil
}

// Stop routes the broker back to the remote channel.
func (s *EmulatorService) Stop(ctx context.Context) (models.EmulatorStatus, error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return s.Status(), nil
	}
	if err := s.setEnabled(false); err != nil {
		s.mu.Unlock()
		return models.EmulatorStatus{}, err
	}
	s.running = false
	s.startedAt = nil
	s.sw.UseRemote()
	s.mu.Unlock()

	s.log.Infow("emulator_stopped")
	s.appendEvent(ctx, "Emulator stopped", nil)
	return s.Status(), nil
}

func (s *EmulatorService) Config() models.EmulatorConfig {
	return s.emu.Config()
}

// UpdateConfig validates and persists cfg. Enabled follows the running state,
// use Start and Stop to change it. Control states are kept: they follow the
// commands written to the channel and the Control endpoint.
func (s *EmulatorService) UpdateConfig(ctx context.Context, cfg models.EmulatorConfig) (models.EmulatorConfig, error) {
	s.mu.Lock()
	cfg.Enabled = s.running
	cfg.ControlStates = s.emu.Config().ControlStates
	if err := s.emu.SetConfig(cfg); err != nil {
		s.mu.Unlock()
		return models.EmulatorConfig{}, err
	}
	saved := s.emu.Config()
	if err := s.store.Save(saved); err != nil {
		s.mu.Unlock()
		return models.EmulatorConfig{}, err
	}
	s.mu.Unlock()

	s.signal()
	s.appendEvent(ctx, "Emulator configuration updated", map[string]any{"mode": saved.Mode, "updateInterval": saved.UpdateInterval})
	return saved, nil
}

func (s *EmulatorService) Scenarios() []models.Scenario {
	return emulator.Scenarios()
}

func (s *EmulatorService) LoadScenario(ctx context.Context, name string) (models.Scenario, error) {
	s.mu.Lock()
	sc, err := s.emu.LoadScenario(name)
	if err != nil {
		s.mu.Unlock()
		return models.Scenario{}, err
	}
	if err := s.store.Save(s.emu.Config()); err != nil {
		s.mu.Unlock()
		return models.Scenario{}, err
	}
	s.mu.Unlock()

	s.log.Infow("emulator_scenario_loaded", "scenario", sc.Name)
	s.appendEvent(ctx, "Scenario loaded: "+sc.Title, map[string]any{"scenario": sc.Name})
	return sc, nil
}

// Control sets an emulated actuator directly. The emulator must be running.
func (s *EmulatorService) Control(ctx context.Context, device string, on bool) (models.ControlStates, error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return models.ControlStates{}, ErrEmulatorDisabled
	}
	cs, err := s.emu.SetControl(device, on)
	if err != nil {
		s.mu.Unlock()
		return models.ControlStates{}, err
	}
	if err := s.store.Save(s.emu.Config()); err != nil {
		s.mu.Unlock()
		return models.ControlStates{}, err
	}
	s.mu.Unlock()

	s.appendEvent(ctx, "Emulated "+device+" "+onOff(on), map[string]any{"device": device, "status": on})
	return cs, nil
}

// Data returns the last synthetic reading, or an inactive payload while stopped.
func (s *EmulatorService) Data() models.EmulatorData {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return models.EmulatorData{Active: false, Message: "emulador desativado"}
	}
	_, last := s.emu.Snapshot()
	return models.EmulatorData{Active: true, Reading: last}
}

// Restore starts the emulator when the persisted config says it was enabled.
func (s *EmulatorService) Restore(ctx context.Context) error {
	if !s.emu.Config().Enabled {
		return nil
	}
	_, err := s.Start(ctx)
	return err
}

// Run ticks the emulator at its configured interval while it is running.
func (s *EmulatorService) Run(ctx context.Context) {
	for {
		t := time.NewTimer(s.emu.Interval())
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-s.wake:
			// interval changed or emulator restarted; rearm
			t.Stop()
		case <-t.C:
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()
			if running {
				r := s.emu.Tick()
				s.log.Debugw("emulator_tick", "entry_id", r.EntryID, "temperature", r.Temperature, "level", r.Level)
			}
		}
	}
}

// seed copies the reconciler's state into the emulator. Reports whether one was loaded.
func (s *EmulatorService) seed() bool {
	if s.devices == nil {
		return false
	}
	st, ok := s.devices.LoadedMemory()
	if ok {
		s.emu.Seed(st)
	}
	return ok
}

func (s *EmulatorService) setEnabled(on bool) error {
	cfg := s.emu.Config()
	cfg.Enabled = on
	if err := s.emu.SetConfig(cfg); err != nil {
		return err
	}
	return s.store.Save(s.emu.Config())
}

func (s *EmulatorService) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *EmulatorService) appendEvent(ctx context.Context, msg string, meta map[string]any) {
	ev := models.DeviceEvent{OccurredAt: s.now(), Type: models.EventEmulator, Description: msg}
	if meta != nil {
		ev.Metadata = meta
	}
	if err := s.eventRepo.Append(ctx, ev); err != nil {
		s.log.Errorw("append_event_failed", "type", models.EventEmulator, "error", err)
	}
}
