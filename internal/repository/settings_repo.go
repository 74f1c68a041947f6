package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type SettingsSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewSettingsSQLite(db *sql.DB) *SettingsSQLite {
	return &SettingsSQLite{db: db, now: time.Now}
}

const (
	upsertSettingSQL = `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value=excluded.value,
			updated_at=excluded.updated_at
	`
	selectSettingSQL = `SELECT value, updated_at FROM settings WHERE key = ?`
)

// Get returns the raw JSON stored under key, or a nil value if the key is absent.
func (r *SettingsSQLite) Get(ctx context.Context, key string) (json.RawMessage, time.Time, error) {
	var (
		raw string
		ts  time.Time
	)
	err := r.db.QueryRowContext(ctx, selectSettingSQL, key).Scan(&raw, &ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, nil
		}
		return nil, time.Time{}, fmt.Errorf("select setting %q: %w", key, err)
	}
	return json.RawMessage(raw), ts.UTC(), nil
}

// Put stores value as JSON under key.
func (r *SettingsSQLite) Put(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal setting %q: %w", key, err)
	}
	if _, err := r.db.ExecContext(ctx, upsertSettingSQL, key, string(b), r.now().UTC()); err != nil {
		return fmt.Errorf("upsert setting %q: %w", key, err)
	}
	return nil
}
