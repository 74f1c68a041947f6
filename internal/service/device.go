package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"aquaponics_monitor/internal/broker"
	"aquaponics_monitor/internal/logger"
	"aquaponics_monitor/internal/metrics"
	"aquaponics_monitor/internal/models"
	"aquaponics_monitor/internal/repository"
)

// SourcedBroker is a broker that can tell which backend answers.
type SourcedBroker interface {
	broker.Broker
	Source() string
}

const (
	devicePump   = "pump"
	deviceHeater = "heater"

	minTargetTemp = 0.0
	maxTargetTemp = 50.0
)

// DeviceConfig tunes the reconciler.
type DeviceConfig struct {
	StatusResults       int           // entries folded into one status read
	ToggleCooldown      time.Duration // minimum spacing of pump/heater toggles
	PollInterval        time.Duration
	StuckSyncTimeout    time.Duration // ForceSync after pending this long; 0 disables
	BootstrapMaxElapsed time.Duration
}

// DeviceService keeps the optimistic (memory) and confirmed (database) device
// state and forwards commands to the broker.
type DeviceService struct {
	broker    SourcedBroker
	stateRepo repository.DeviceStateRepo
	eventRepo repository.EventRepo
	cfg       DeviceConfig

	log     *logger.Logger
	now     func() time.Time
	metrics *metrics.Metrics
	hub     *Hub

	mu           sync.Mutex
	memory       models.DeviceState
	database     models.DeviceState
	loaded       bool
	pendingSince *time.Time
	lastSyncAt   *time.Time
	limiters     map[string]*rate.Limiter
}

func NewDeviceService(b SourcedBroker, stateRepo repository.DeviceStateRepo, eventRepo repository.EventRepo, cfg DeviceConfig, opts ...Option) *DeviceService {
	o := buildOptions(opts)
	if cfg.StatusResults <= 0 {
		cfg.StatusResults = 20
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BootstrapMaxElapsed <= 0 {
		cfg.BootstrapMaxElapsed = 30 * time.Second
	}
	return &DeviceService{
		broker:    b,
		stateRepo: stateRepo,
		eventRepo: eventRepo,
		cfg:       cfg,
		log:       o.log.With("component", "reconciler"),
		now:       o.now,
		metrics:   o.metrics,
		hub:       o.hub,
		limiters: map[string]*rate.Limiter{
			devicePump:   rate.NewLimiter(rate.Every(cfg.ToggleCooldown), 1),
			deviceHeater: rate.NewLimiter(rate.Every(cfg.ToggleCooldown), 1),
		},
	}
}

// GetStatus returns both copies of the device state and the derived sync flag.
func (s *DeviceService) GetStatus() models.DeviceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// Memory returns the optimistic state.
func (s *DeviceService) Memory() models.DeviceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memory
}

// LoadedMemory returns the optimistic state and whether any source has loaded it yet.
func (s *DeviceService) LoadedMemory() (models.DeviceState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memory, s.loaded
}

func (s *DeviceService) SetPump(ctx context.Context, on bool) (models.CommandResult, error) {
	s.mu.Lock()
	if s.memory.OperationMode {
		st := s.statusLocked()
		s.mu.Unlock()
		s.log.Infow("pump_command_rejected", "reason", "automatic_mode", "requested", on)
		return models.CommandResult{Status: st}, ErrAutomaticMode
	}
	if res, throttled := s.throttleLocked(devicePump); throttled {
		s.mu.Unlock()
		return res, nil
	}
	s.memory.PumpStatus = on
	s.mu.Unlock()

	return s.forward(ctx, broker.Update{broker.FieldPumpStatus: broker.FormatBool(on)},
		func(st *models.DeviceState) { st.PumpStatus = on },
		models.DeviceEvent{Type: models.EventPump, Description: "Pump " + onOff(on), Metadata: map[string]any{"status": on}})
}

// SetHeater is accepted in any operation mode.
func (s *DeviceService) SetHeater(ctx context.Context, on bool) (models.CommandResult, error) {
	s.mu.Lock()
	if res, throttled := s.throttleLocked(deviceHeater); throttled {
		s.mu.Unlock()
		return res, nil
	}
	s.memory.HeaterStatus = on
	s.mu.Unlock()

	return s.forward(ctx, broker.Update{broker.FieldHeaterStatus: broker.FormatBool(on)},
		func(st *models.DeviceState) { st.HeaterStatus = on },
		models.DeviceEvent{Type: models.EventHeater, Description: "Heater " + onOff(on), Metadata: map[string]any{"status": on}})
}

func (s *DeviceService) SetOperationMode(ctx context.Context, automatic bool) (models.CommandResult, error) {
	s.mu.Lock()
	s.memory.OperationMode = automatic
	s.mu.Unlock()

	mode := "manual"
	if automatic {
		mode = "automatic"
	}
	return s.forward(ctx, broker.Update{broker.FieldOperationMode: broker.FormatBool(automatic)},
		func(st *models.DeviceState) { st.OperationMode = automatic },
		models.DeviceEvent{Type: models.EventModeChange, Description: "Operation mode set to " + mode, Metadata: map[string]any{"automatic": automatic}})
}

// SetTimer sets the pump on or off duration from operator text. Blank text leaves
// the timer untouched and is not an error.
func (s *DeviceService) SetTimer(ctx context.Context, kind TimerKind, seconds string) (models.CommandResult, error) {
	var field broker.Field
	switch kind {
	case TimerOn:
		field = broker.FieldPumpOnTimer
	case TimerOff:
		field = broker.FieldPumpOffTimer
	default:
		return models.CommandResult{Status: s.GetStatus()}, ErrInvalidTimerKind
	}

	n, err := broker.ParseTimerInput(seconds)
	if err != nil {
		return models.CommandResult{Status: s.GetStatus()}, fmt.Errorf("%w: %q", ErrInvalidTimer, seconds)
	}
	if n == nil {
		return models.CommandResult{Status: s.GetStatus()}, nil
	}
	if *n < 1 {
		return models.CommandResult{Status: s.GetStatus()}, fmt.Errorf("%w: %d", ErrInvalidTimer, *n)
	}
	v := *n

	apply := func(st *models.DeviceState) {
		if kind == TimerOn {
			st.PumpOnTimer = v
		} else {
			st.PumpOffTimer = v
		}
	}
	s.mu.Lock()
	apply(&s.memory)
	s.mu.Unlock()

	return s.forward(ctx, broker.Update{field: broker.FormatNumber(float64(v))}, apply,
		models.DeviceEvent{Type: models.EventTimer, Description: fmt.Sprintf("Pump %s timer set to %ds", kind, v), Metadata: map[string]any{"kind": string(kind), "seconds": v}})
}

func (s *DeviceService) SetTargetTemp(ctx context.Context, celsius float64) (models.CommandResult, error) {
	if celsius < minTargetTemp || celsius > maxTargetTemp {
		return models.CommandResult{Status: s.GetStatus()}, fmt.Errorf("%w: %.1f not in [%.0f, %.0f]", ErrInvalidTargetTemp, celsius, minTargetTemp, maxTargetTemp)
	}
	s.mu.Lock()
	s.memory.TargetTemp = celsius
	s.mu.Unlock()

	return s.forward(ctx, broker.Update{broker.FieldTargetTemp: broker.FormatNumber(celsius)},
		func(st *models.DeviceState) { st.TargetTemp = celsius },
		models.DeviceEvent{Type: models.EventTargetTemp, Description: fmt.Sprintf("Target temperature set to %.1f°C", celsius), Metadata: map[string]any{"targetTemp": celsius}})
}

// drivePump switches the pump for the automatic cycle: no mode gate, no cooldown.
func (s *DeviceService) drivePump(ctx context.Context, on bool, reason string) error {
	s.mu.Lock()
	s.memory.PumpStatus = on
	s.mu.Unlock()

	_, err := s.forward(ctx, broker.Update{broker.FieldPumpStatus: broker.FormatBool(on)},
		func(st *models.DeviceState) { st.PumpStatus = on },
		models.DeviceEvent{Type: models.EventCycle, Description: "Cycle: pump " + onOff(on), Metadata: map[string]any{"status": on, "reason": reason}})
	return err
}

// ForceSync replaces the memory state with a fresh read of the broker.
func (s *DeviceService) ForceSync(ctx context.Context) (models.DeviceStatus, error) {
	fresh, err := s.fetch(ctx)
	if err != nil {
		s.appendEvent(ctx, models.DeviceEvent{Type: models.EventError, Description: "Force sync failed", Metadata: map[string]any{"error": err.Error()}})
		return s.GetStatus(), err
	}

	s.mu.Lock()
	discarded := s.memory.Diff(fresh)
	s.database = fresh
	s.memory = fresh
	s.loaded = true
	s.markSyncedLocked()
	st := s.settleLocked()
	s.publishLocked(st)
	s.mu.Unlock()

	s.persist(ctx, fresh)
	s.log.Infow("force_sync", "discarded_fields", discarded)
	s.appendEvent(ctx, models.DeviceEvent{Type: models.EventSync, Description: "Memory state replaced by broker state", Metadata: map[string]any{"discarded": discarded}})
	return st, nil
}

// Refresh pulls the confirmed state from the broker. The first successful load
// also seeds the memory state.
func (s *DeviceService) Refresh(ctx context.Context) error {
	fresh, err := s.fetch(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	changed := s.database != fresh || !s.loaded
	s.database = fresh
	if !s.loaded {
		s.memory = fresh
		s.loaded = true
	}
	s.markSyncedLocked()
	st := s.settleLocked()
	if changed {
		s.publishLocked(st)
	}
	s.mu.Unlock()

	if changed {
		s.persist(ctx, fresh)
	}
	return nil
}

// Bootstrap performs the first Refresh with exponential backoff. When the broker
// stays unreachable the state persisted by the previous run is used instead.
func (s *DeviceService) Bootstrap(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = s.cfg.BootstrapMaxElapsed

	err := backoff.Retry(func() error {
		err := s.Refresh(ctx)
		if errors.Is(err, broker.ErrNotConfigured) {
			return backoff.Permanent(err)
		}
		if err != nil {
			s.log.Warnw("bootstrap_refresh_failed", "error", err)
		}
		return err
	}, backoff.WithContext(bo, ctx))
	if err == nil {
		return nil
	}

	stored, lerr := s.stateRepo.Load(ctx)
	if lerr != nil {
		return fmt.Errorf("bootstrap: broker: %v; local state: %w", err, lerr)
	}
	if stored.ID == 0 {
		return fmt.Errorf("bootstrap: %w", err)
	}

	s.mu.Lock()
	s.database = stored.State
	s.memory = stored.State
	s.loaded = true
	s.publishLocked(s.settleLocked())
	s.mu.Unlock()

	s.log.Warnw("bootstrap_from_local_state", "error", err, "stored_at", stored.UpdatedAt)
	return nil
}

// Run polls the broker until ctx is cancelled and forces a sync when the two
// copies have disagreed for longer than StuckSyncTimeout.
func (s *DeviceService) Run(ctx context.Context) {
	t := time.NewTicker(s.cfg.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.poll(ctx)
		}
	}
}

func (s *DeviceService) poll(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.log.Debugw("refresh_failed", "error", err)
		return
	}
	if !s.stuck() {
		return
	}
	s.log.Warnw("stuck_sync", "timeout", s.cfg.StuckSyncTimeout)
	if _, err := s.ForceSync(ctx); err != nil {
		s.log.Warnw("stuck_sync_force_failed", "error", err)
	}
}

func (s *DeviceService) stuck() bool {
	if s.cfg.StuckSyncTimeout <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingSince != nil && s.now().Sub(*s.pendingSince) >= s.cfg.StuckSyncTimeout
}

// forward writes u to the broker. Memory has already been updated by the caller and
// is never rolled back; on success confirm is applied to the database copy.
func (s *DeviceService) forward(ctx context.Context, u broker.Update, confirm func(*models.DeviceState), ev models.DeviceEvent) (models.CommandResult, error) {
	s.mu.Lock()
	s.publishLocked(s.settleLocked())
	s.mu.Unlock()

	if _, err := s.broker.Write(ctx, u); err != nil {
		s.log.Warnw("broker_write_failed", "event", ev.Type, "error", err)
		s.appendEvent(ctx, models.DeviceEvent{
			Type:        models.EventError,
			Description: ev.Description + " not confirmed by broker",
			Metadata:    map[string]any{"error": err.Error()},
		})
		return models.CommandResult{Applied: true, Status: s.GetStatus()}, fmt.Errorf("write %s: %w", ev.Type, err)
	}

	s.mu.Lock()
	confirm(&s.database)
	s.markSyncedLocked()
	st := s.settleLocked()
	confirmed := s.database
	s.publishLocked(st)
	s.mu.Unlock()

	s.persist(ctx, confirmed)
	s.appendEvent(ctx, ev)
	return models.CommandResult{Applied: true, Status: st}, nil
}

func (s *DeviceService) fetch(ctx context.Context) (models.DeviceState, error) {
	e, err := broker.LatestValues(ctx, s.broker, s.cfg.StatusResults)
	if err != nil {
		return models.DeviceState{}, err
	}
	return broker.ToDeviceState(e), nil
}

func (s *DeviceService) throttleLocked(device string) (models.CommandResult, bool) {
	if s.limiters[device].AllowN(s.now(), 1) {
		return models.CommandResult{}, false
	}
	s.log.Infow("toggle_throttled", "device", device, "cooldown", s.cfg.ToggleCooldown)
	s.metrics.Throttled(device)
	return models.CommandResult{Throttled: true, Status: s.statusLocked()}, true
}

// settleLocked recomputes pendingSince and returns the current status.
func (s *DeviceService) settleLocked() models.DeviceStatus {
	if len(s.memory.Diff(s.database)) == 0 {
		s.pendingSince = nil
	} else if s.pendingSince == nil {
		t := s.now().UTC()
		s.pendingSince = &t
	}
	return s.statusLocked()
}

func (s *DeviceService) markSyncedLocked() {
	t := s.now().UTC()
	s.lastSyncAt = &t
}

func (s *DeviceService) statusLocked() models.DeviceStatus {
	pending := s.memory.Diff(s.database)
	return models.DeviceStatus{
		MemoryState:   s.memory,
		DatabaseState: s.database,
		PendingSync:   len(pending) > 0,
		PendingFields: pending,
		PendingSince:  copyTime(s.pendingSince),
		LastSyncAt:    copyTime(s.lastSyncAt),
		Source:        s.broker.Source(),
	}
}

func (s *DeviceService) persist(ctx context.Context, st models.DeviceState) {
	err := s.stateRepo.Save(ctx, models.StoredDeviceState{ID: 1, State: st, UpdatedAt: s.now()})
	if err != nil {
		s.log.Errorw("persist_device_state_failed", "error", err)
	}
}

// publishLocked runs under s.mu so subscribers see snapshots in state order.
func (s *DeviceService) publishLocked(st models.DeviceStatus) {
	s.metrics.ObserveStatus(st)
	s.hub.Publish(st)
}

func (s *DeviceService) appendEvent(ctx context.Context, ev models.DeviceEvent) {
	ev.OccurredAt = s.now()
	if err := s.eventRepo.Append(ctx, ev); err != nil {
		s.log.Errorw("append_event_failed", "type", ev.Type, "error", err)
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
