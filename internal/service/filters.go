package service

import "time"

// LogFilter supports event history filtering by time range and type.
type LogFilter struct {
	From  time.Time // inclusive; zero means no lower bound
	To    time.Time // inclusive; zero means no upper bound
	Type  string    // "", "PUMP", "HEATER", "MODE_CHANGE", "SYNC", "ERROR", ...
	Limit int       // newest N; 0 means all
}

// HistoryFilter selects readings from the local log.
type HistoryFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

// TimerKind selects which pump-cycle duration a timer command sets.
type TimerKind string

const (
	TimerOn  TimerKind = "on"
	TimerOff TimerKind = "off"
)

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func validRange(from, to time.Time) bool {
	return from.IsZero() || to.IsZero() || !from.After(to)
}
