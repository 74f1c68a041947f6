package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"aquaponics_monitor/internal/models"
)

type DeviceStateSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewDeviceStateSQLite(db *sql.DB) *DeviceStateSQLite {
	return &DeviceStateSQLite{db: db, now: time.Now}
}

const (
	deviceStateRowID = 1

	upsertDeviceStateSQL = `
		INSERT INTO device_state (id, pump, heater, automatic, target_temp, pump_on_s, pump_off_s, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pump=excluded.pump,
			heater=excluded.heater,
			automatic=excluded.automatic,
			target_temp=excluded.target_temp,
			pump_on_s=excluded.pump_on_s,
			pump_off_s=excluded.pump_off_s,
			updated_at=excluded.updated_at
	`

	selectDeviceStateSQL = `
		SELECT id, pump, heater, automatic, target_temp, pump_on_s, pump_off_s, updated_at
		FROM device_state WHERE id=?
	`
)

// Save upserts the device_state row (id always 1).
func (r *DeviceStateSQLite) Save(ctx context.Context, s models.StoredDeviceState) error {
	ts := s.UpdatedAt
	if ts.IsZero() {
		ts = r.now().UTC()
	} else {
		ts = ts.UTC()
	}

	_, err := r.db.ExecContext(ctx, upsertDeviceStateSQL,
		deviceStateRowID,
		s.State.PumpStatus,
		s.State.HeaterStatus,
		s.State.OperationMode,
		s.State.TargetTemp,
		s.State.PumpOnTimer,
		s.State.PumpOffTimer,
		ts,
	)
	return err
}

// Load fetches the confirmed state. A zero value (ID 0) means nothing was stored yet.
func (r *DeviceStateSQLite) Load(ctx context.Context) (models.StoredDeviceState, error) {
	row := r.db.QueryRowContext(ctx, selectDeviceStateSQL, deviceStateRowID)

	var s models.StoredDeviceState
	if err := row.Scan(
		&s.ID,
		&s.State.PumpStatus,
		&s.State.HeaterStatus,
		&s.State.OperationMode,
		&s.State.TargetTemp,
		&s.State.PumpOnTimer,
		&s.State.PumpOffTimer,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.StoredDeviceState{}, nil
		}
		return models.StoredDeviceState{}, err
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
