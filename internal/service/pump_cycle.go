package service

import (
	"context"
	"sync"
	"time"

	"aquaponics_monitor/internal/logger"
	"aquaponics_monitor/internal/models"
)

// PumpCycleService alternates the pump between ON and OFF phases while the
// device is in automatic mode. Phase timing is derived from the clock, so State
// is exact between ticks.
type PumpCycleService struct {
	devices *DeviceService
	tick    time.Duration

	log *logger.Logger
	now func() time.Time

	mu         sync.Mutex
	active     bool
	pumpOn     bool // phase
	phaseStart time.Time
	driven     bool // pump already switched for the current phase
}

func NewPumpCycleService(devices *DeviceService, tick time.Duration, opts ...Option) *PumpCycleService {
	o := buildOptions(opts)
	if tick <= 0 {
		tick = time.Second
	}
	return &PumpCycleService{
		devices: devices,
		tick:    tick,
		log:     o.log.With("component", "pump_cycle"),
		now:     o.now,
	}
}

// State returns the cycle as of now.
func (p *PumpCycleService) State() models.PumpCycleState {
	st := p.devices.Memory()
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.followModeLocked(st, now)
	return p.stateLocked(st, now)
}

// Tick applies due transitions and drives the pump accordingly.
func (p *PumpCycleService) Tick(ctx context.Context) {
	st := p.devices.Memory()
	now := p.now()

	p.mu.Lock()
	p.followModeLocked(st, now)
	if !p.active {
		p.mu.Unlock()
		return
	}
	reason := "phase_start"
	if p.driven {
		total := phaseDuration(st, p.pumpOn)
		if total <= 0 || now.Sub(p.phaseStart) < time.Duration(total)*time.Second {
			p.mu.Unlock()
			return
		}
		p.pumpOn = !p.pumpOn
		p.phaseStart = now
		reason = "phase_elapsed"
	}
	p.driven = true
	on := p.pumpOn
	p.mu.Unlock()

	p.log.Infow("pump_cycle_transition", "pump_on", on, "reason", reason)
	if err := p.devices.drivePump(ctx, on, reason); err != nil {
		p.log.Warnw("pump_cycle_drive_failed", "pump_on", on, "error", err)
	}
}

// ForceCycleStart restarts the cycle at the beginning of the ON phase.
func (p *PumpCycleService) ForceCycleStart(ctx context.Context) (models.PumpCycleState, error) {
	st := p.devices.Memory()
	if !st.OperationMode {
		return models.PumpCycleState{Active: false, PumpStatus: st.PumpStatus}, ErrNotAutomatic
	}
	now := p.now()

	p.mu.Lock()
	p.active = true
	p.pumpOn = true
	p.phaseStart = now
	p.driven = true
	p.mu.Unlock()

	err := p.devices.drivePump(ctx, true, "forced")
	return p.State(), err
}

// Run ticks until ctx is cancelled.
func (p *PumpCycleService) Run(ctx context.Context) {
	t := time.NewTicker(p.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.Tick(ctx)
		}
	}
}

// followModeLocked starts the cycle at ON with zero elapsed when automatic mode
// is (re)entered and freezes it when the device leaves automatic mode.
func (p *PumpCycleService) followModeLocked(st models.DeviceState, now time.Time) {
	switch {
	case st.OperationMode && !p.active:
		p.active = true
		p.pumpOn = true
		p.phaseStart = now
		p.driven = false
	case !st.OperationMode && p.active:
		p.active = false
	}
}

func (p *PumpCycleService) stateLocked(st models.DeviceState, now time.Time) models.PumpCycleState {
	if !p.active {
		return models.PumpCycleState{Active: false, PumpStatus: st.PumpStatus}
	}
	total := phaseDuration(st, p.pumpOn)
	elapsed := now.Sub(p.phaseStart)
	if elapsed < 0 {
		elapsed = 0
	}

	out := models.PumpCycleState{
		Active:            true,
		PumpStatus:        p.pumpOn,
		CurrentTimerTotal: total,
		Elapsed:           int(elapsed / time.Second),
	}
	if total > 0 {
		out.Progress = clamp01(elapsed.Seconds() / float64(total))
		if rem := total - out.Elapsed; rem > 0 {
			out.TimeRemaining = rem
		}
	}
	start := p.phaseStart.UTC()
	out.PhaseStartedAt = &start
	return out
}

func phaseDuration(st models.DeviceState, on bool) int {
	if on {
		return st.PumpOnTimer
	}
	return st.PumpOffTimer
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
