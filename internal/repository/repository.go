package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"aquaponics_monitor/internal/models"
)

type Operators interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.Operator, error)
}

// ReadingRepo is the local log of normalized sensor readings.
type ReadingRepo interface {
	Append(ctx context.Context, r models.Reading) (int64, error)
	Latest(ctx context.Context) (*models.Reading, error)
	List(ctx context.Context, from, to time.Time, limit int) ([]models.Reading, error)
}

type SettingsRepo interface {
	Get(ctx context.Context, key string) (json.RawMessage, time.Time, error)
	Put(ctx context.Context, key string, value any) error
}

// DeviceStateRepo stores the last state confirmed by the broker.
type DeviceStateRepo interface {
	Save(ctx context.Context, s models.StoredDeviceState) error
	Load(ctx context.Context) (models.StoredDeviceState, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.DeviceEvent) error
	List(ctx context.Context, f EventFilter) ([]models.DeviceEvent, error)
}

type Repository struct {
	Readings    ReadingRepo
	Settings    SettingsRepo
	DeviceState DeviceStateRepo
	EventRepo   EventRepo
	Operators   Operators
}

// NewRepository wires the sqlite repositories. now stamps rows written without
// a time; nil means time.Now.
func NewRepository(db *sql.DB, now func() time.Time) *Repository {
	if now == nil {
		now = time.Now
	}
	readings := NewReadingSQLite(db)
	readings.now = now
	settings := NewSettingsSQLite(db)
	settings.now = now
	state := NewDeviceStateSQLite(db)
	state.now = now
	events := NewEventSQLite(db)
	events.now = now
	return &Repository{
		Readings:    readings,
		Settings:    settings,
		DeviceState: state,
		EventRepo:   events,
		Operators:   NewOperatorRepository(db),
	}
}
