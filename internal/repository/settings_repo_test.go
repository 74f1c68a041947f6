package repository

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSettingsSQLite_PutMarshalsJSON(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSettingsSQLite(db)
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	mock.ExpectExec(regexp.QuoteMeta(upsertSettingSQL)).
		WithArgs("setpoints", `{"min":20,"max":30}`, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Put(ctx(t), "setpoints", map[string]int{"min": 20, "max": 30}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestSettingsSQLite_Get(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSettingsSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta(selectSettingSQL)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"value", "updated_at"}))

	raw, ts, err := repo.Get(ctx(t), "missing")
	if err != nil || raw != nil || !ts.IsZero() {
		t.Fatalf("missing key: got %q %v %v", raw, ts, err)
	}

	stored := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(selectSettingSQL)).
		WithArgs("settings").
		WillReturnRows(sqlmock.NewRows([]string{"value", "updated_at"}).AddRow(`{"alertsEnabled":true}`, stored))

	raw, ts, err = repo.Get(ctx(t), "settings")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(raw) != `{"alertsEnabled":true}` || !ts.Equal(stored) {
		t.Fatalf("unexpected value %q at %v", raw, ts)
	}

	mock.ExpectQuery(regexp.QuoteMeta(selectSettingSQL)).
		WithArgs("broken").
		WillReturnError(errors.New("disk I/O error"))
	if _, _, err := repo.Get(ctx(t), "broken"); err == nil {
		t.Fatalf("expected error")
	}
}
