package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"aquaponics_monitor/internal/logger"
	"aquaponics_monitor/internal/models"
	"aquaponics_monitor/internal/repository"
)

const settingsKey = "dashboard"

// DefaultSettings apply until an operator saves their own.
func DefaultSettings() models.Settings {
	return models.Settings{
		Setpoints: models.Setpoints{
			Temp:  models.Range{Min: 20, Max: 30},
			Level: models.Range{Min: 40, Max: 90},
		},
		AlertsEnabled: true,
	}
}

type SettingsService struct {
	repo      repository.SettingsRepo
	eventRepo repository.EventRepo
	log       *logger.Logger
	now       func() time.Time
}

func NewSettingsService(repo repository.SettingsRepo, eventRepo repository.EventRepo, opts ...Option) *SettingsService {
	o := buildOptions(opts)
	return &SettingsService{repo: repo, eventRepo: eventRepo, log: o.log.With("component", "settings"), now: o.now}
}

// Get returns the stored settings or the defaults.
func (s *SettingsService) Get(ctx context.Context) (models.Settings, error) {
	raw, updatedAt, err := s.repo.Get(ctx, settingsKey)
	if err != nil {
		return models.Settings{}, err
	}
	if raw == nil {
		return DefaultSettings(), nil
	}
	var out models.Settings
	if err := json.Unmarshal(raw, &out); err != nil {
		s.log.Warnw("settings_corrupt", "error", err)
		return DefaultSettings(), nil
	}
	out.UpdatedAt = updatedAt
	return out, nil
}

func (s *SettingsService) Save(ctx context.Context, in models.Settings) (models.Settings, error) {
	if err := validateSetpoints(in.Setpoints); err != nil {
		return models.Settings{}, err
	}
	in.UpdatedAt = s.now().UTC()
	if err := s.repo.Put(ctx, settingsKey, in); err != nil {
		return models.Settings{}, err
	}
	if err := s.eventRepo.Append(ctx, models.DeviceEvent{
		OccurredAt:  in.UpdatedAt,
		Type:        models.EventSettings,
		Description: "Setpoints updated",
		Metadata:    in.Setpoints,
	}); err != nil {
		s.log.Errorw("append_event_failed", "type", models.EventSettings, "error", err)
	}
	return in, nil
}

func validateSetpoints(sp models.Setpoints) error {
	if sp.Temp.Min >= sp.Temp.Max {
		return fmt.Errorf("%w: temp %.1f >= %.1f", ErrInvalidSetpoints, sp.Temp.Min, sp.Temp.Max)
	}
	if sp.Level.Min >= sp.Level.Max {
		return fmt.Errorf("%w: level %.1f >= %.1f", ErrInvalidSetpoints, sp.Level.Min, sp.Level.Max)
	}
	if sp.Level.Min < 0 || sp.Level.Max > 100 {
		return fmt.Errorf("%w: level must stay within 0-100%%", ErrInvalidSetpoints)
	}
	return nil
}

// Alerts evaluates a reading against the setpoints. A faulty temperature sensor
// yields a fault alert instead of a threshold check.
func Alerts(r models.Reading, st models.Settings) []models.Alert {
	out := []models.Alert{}
	if r.SensorFault() {
		out = append(out, models.Alert{
			Sensor:  models.SensorTemperature,
			Kind:    models.AlertFault,
			Value:   r.Temperature,
			Message: "sensor de temperatura desconectado",
		})
	}
	if !st.AlertsEnabled {
		return out
	}
	if !r.SensorFault() {
		out = appendRangeAlert(out, models.SensorTemperature, r.Temperature, st.Setpoints.Temp, "°C")
	}
	return appendRangeAlert(out, models.SensorLevel, r.Level, st.Setpoints.Level, "%")
}

func appendRangeAlert(out []models.Alert, sensor string, v float64, rng models.Range, unit string) []models.Alert {
	switch {
	case v < rng.Min:
		return append(out, models.Alert{Sensor: sensor, Kind: models.AlertLow, Value: v,
			Message: fmt.Sprintf("%s %.1f%s below %.1f%s", sensor, v, unit, rng.Min, unit)})
	case v > rng.Max:
		return append(out, models.Alert{Sensor: sensor, Kind: models.AlertHigh, Value: v,
			Message: fmt.Sprintf("%s %.1f%s above %.1f%s", sensor, v, unit, rng.Max, unit)})
	}
	return out
}
