package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aquaponics_monitor/internal/broker"
	"aquaponics_monitor/internal/emulator"
	"aquaponics_monitor/internal/models"
	"aquaponics_monitor/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Devices exposes the reconciler: both state copies and the control commands.
type Devices interface {
	GetStatus() models.DeviceStatus
	SetPump(ctx context.Context, on bool) (models.CommandResult, error)
	SetHeater(ctx context.Context, on bool) (models.CommandResult, error)
	SetOperationMode(ctx context.Context, automatic bool) (models.CommandResult, error)
	SetTimer(ctx context.Context, kind TimerKind, seconds string) (models.CommandResult, error)
	SetTargetTemp(ctx context.Context, celsius float64) (models.CommandResult, error)
	ForceSync(ctx context.Context) (models.DeviceStatus, error)
}

// PumpCycle exposes the automatic pump cycle.
type PumpCycle interface {
	State() models.PumpCycleState
	ForceCycleStart(ctx context.Context) (models.PumpCycleState, error)
}

// Readings exposes the sensor log and remote history.
type Readings interface {
	Latest(ctx context.Context) (models.LatestReading, error)
	History(ctx context.Context, f HistoryFilter) ([]models.Reading, error)
	Stats(ctx context.Context, f HistoryFilter) (models.ReadingStats, error)
	RemoteHistory(ctx context.Context, q broker.FeedQuery) ([]models.Reading, error)
}

type Settings interface {
	Get(ctx context.Context) (models.Settings, error)
	Save(ctx context.Context, in models.Settings) (models.Settings, error)
}

// EmulatorControl exposes the synthetic feed.
type EmulatorControl interface {
	Status() models.EmulatorStatus
	Start(ctx context.Context) (models.EmulatorStatus, error)
	Stop(ctx context.Context) (models.EmulatorStatus, error)
	Config() models.EmulatorConfig
	UpdateConfig(ctx context.Context, cfg models.EmulatorConfig) (models.EmulatorConfig, error)
	Scenarios() []models.Scenario
	LoadScenario(ctx context.Context, name string) (models.Scenario, error)
	Control(ctx context.Context, device string, on bool) (models.ControlStates, error)
	Data() models.EmulatorData
}

// StatusStream delivers DeviceStatus snapshots to push clients.
type StatusStream interface {
	Subscribe(ctx context.Context) <-chan models.DeviceStatus
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.DeviceEvent, error)
}

// Config carries the tuning knobs of every sub-service.
type Config struct {
	Device     DeviceConfig
	Reading    ReadingConfig
	CycleTick  time.Duration
	SigningKey string
	TokenTTL   time.Duration
}

// Service aggregates all sub-services.
type Service struct {
	Devices       Devices
	PumpCycle     PumpCycle
	Readings      Readings
	Settings      Settings
	Emulator      EmulatorControl
	Status        StatusStream
	EventLog      EventLog
	Authorization Authorization

	device   *DeviceService
	cycle    *PumpCycleService
	readings *ReadingService
	emulator *EmulatorService
}

// NewService wires the repositories, the broker switch and the emulator into
// concrete services sharing one status hub.
func NewService(repos *repository.Repository, sw *broker.Switch, emu *emulator.Emulator, store *emulator.ConfigStore, cfg Config, opts ...Option) (*Service, error) {
	hub := NewHub()
	opts = append(opts, WithHub(hub))

	settings := NewSettingsService(repos.Settings, repos.EventRepo, opts...)
	device := NewDeviceService(sw, repos.DeviceState, repos.EventRepo, cfg.Device, opts...)
	cycle := NewPumpCycleService(device, cfg.CycleTick, opts...)
	readings, err := NewReadingService(sw, repos.Readings, settings, cfg.Reading, opts...)
	if err != nil {
		return nil, err
	}
	emuSvc := NewEmulatorService(emu, store, sw, device, repos.EventRepo, opts...)

	return &Service{
		Devices:       device,
		PumpCycle:     cycle,
		Readings:      readings,
		Settings:      settings,
		Emulator:      emuSvc,
		Status:        hub,
		EventLog:      NewEventLogService(repos.EventRepo),
		Authorization: NewAuthService(repos.Operators, cfg.SigningKey, cfg.TokenTTL),

		device:   device,
		cycle:    cycle,
		readings: readings,
		emulator: emuSvc,
	}, nil
}

// Bootstrap loads the initial device state, then restores the emulator from it.
// A device bootstrap failure is returned but leaves the service usable.
func (s *Service) Bootstrap(ctx context.Context) error {
	derr := s.device.Bootstrap(ctx)
	if err := s.emulator.Restore(ctx); err != nil {
		return err
	}
	if !s.emulator.Running() {
		return derr
	}
	if err := s.device.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh from emulator: %w", err)
	}
	return nil
}

// Run starts the background loops and blocks until all of them have returned.
// Stop via context cancellation.
func (s *Service) Run(ctx context.Context) {
	loops := []func(context.Context){
		s.device.Run,
		s.cycle.Run,
		s.readings.Run,
		s.emulator.Run,
	}
	var wg sync.WaitGroup
	for _, run := range loops {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(run)
	}
	wg.Wait()
}
