package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"aquaponics_monitor/internal/models"
)

type ReadingSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewReadingSQLite(db *sql.DB) *ReadingSQLite { return &ReadingSQLite{db: db, now: time.Now} }

const (
	insertReadingSQL = `
		INSERT INTO readings (entry_id, recorded_at, temperature, level, pump_status, heater_status, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	readingColumns      = `id, entry_id, recorded_at, temperature, level, pump_status, heater_status, source`
	selectLatestReading = `SELECT ` + readingColumns + ` FROM readings ORDER BY recorded_at DESC, id DESC LIMIT 1`
)

// Append stores r and returns its row id. A zero Timestamp is set to now.
func (r *ReadingSQLite) Append(ctx context.Context, rd models.Reading) (int64, error) {
	ts := rd.Timestamp
	if ts.IsZero() {
		ts = r.now().UTC()
	} else {
		ts = ts.UTC()
	}
	res, err := r.db.ExecContext(ctx, insertReadingSQL,
		rd.EntryID,
		ts,
		rd.Temperature,
		rd.Level,
		rd.PumpStatus,
		rd.HeaterStatus,
		rd.Source,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Latest returns (nil, nil) when the log is empty.
func (r *ReadingSQLite) Latest(ctx context.Context) (*models.Reading, error) {
	rd, err := scanReading(r.db.QueryRowContext(ctx, selectLatestReading))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rd, nil
}

// List returns readings in [from, to] ordered ASC. Zero bounds are open; limit <= 0 means no limit.
// With a limit the newest readings in range are kept.
func (r *ReadingSQLite) List(ctx context.Context, from, to time.Time, limit int) ([]models.Reading, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "recorded_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, "recorded_at <= ?")
		args = append(args, to.UTC())
	}

	q := `SELECT ` + readingColumns + ` FROM readings`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY recorded_at DESC, id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Reading, 0, 64)
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// newest-first from the query, callers want chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(s rowScanner) (models.Reading, error) {
	var rd models.Reading
	if err := s.Scan(
		&rd.ID,
		&rd.EntryID,
		&rd.Timestamp,
		&rd.Temperature,
		&rd.Level,
		&rd.PumpStatus,
		&rd.HeaterStatus,
		&rd.Source,
	); err != nil {
		return models.Reading{}, err
	}
	rd.Timestamp = rd.Timestamp.UTC()
	return rd, nil
}
