// Package broker talks to the remote time-series store (ThingSpeak) holding the
// tank sensor and actuator fields, and normalizes its loosely typed values.
package broker

import (
	"context"
	"errors"
	"time"
)

// Source names reported to the dashboard.
const (
	SourceThingSpeak = "thingspeak"
	SourceEmulator   = "emulator"
)

var (
	// ErrUnavailable covers transport failures, non-2xx answers and an open breaker.
	ErrUnavailable = errors.New("broker unavailable")
	// ErrRejected means the broker answered but did not store the update (entry id 0).
	ErrRejected = errors.New("broker rejected update")
	// ErrNotConfigured means channel or API keys are missing.
	ErrNotConfigured = errors.New("broker not configured")
	// ErrNoData means the channel has no entries yet.
	ErrNoData = errors.New("broker has no data")
)

// Broker is the read/write surface of a channel.
type Broker interface {
	Latest(ctx context.Context) (Entry, error)
	Feeds(ctx context.Context, q FeedQuery) ([]Entry, error)
	Write(ctx context.Context, u Update) (int64, error)
}

// FeedQuery narrows a feed-list read. Zero values mean "broker default".
type FeedQuery struct {
	Results int
	Start   time.Time
	End     time.Time
}

// Update is a set of field values to write in one entry.
type Update map[Field]string

// LatestValues reads the last n entries and folds them into one entry holding,
// per field, the most recent non-empty value. Per-field writes leave the other
// fields null in their entry, so the single last entry is not enough.
func LatestValues(ctx context.Context, b Broker, n int) (Entry, error) {
	entries, err := b.Feeds(ctx, FeedQuery{Results: n})
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrNoData
	}
	return Fold(entries), nil
}

// LatestSensorValues folds the last n entries like LatestValues but takes the
// entry id and time from the newest entry carrying a sensor sample, so
// control-only writes do not look like new readings. ErrNoData when the window
// holds no sensor sample.
func LatestSensorValues(ctx context.Context, b Broker, n int) (Entry, error) {
	entries, err := b.Feeds(ctx, FeedQuery{Results: n})
	if err != nil {
		return Entry{}, err
	}
	var newest *Entry
	for i := range entries {
		if entries[i].HasSensor() && (newest == nil || entries[i].EntryID > newest.EntryID) {
			newest = &entries[i]
		}
	}
	if newest == nil {
		return Entry{}, ErrNoData
	}
	out := Fold(entries)
	out.EntryID = newest.EntryID
	out.CreatedAt = newest.CreatedAt
	return out, nil
}

// Fold merges entries (any order) newest-first by entry id.
func Fold(entries []Entry) Entry {
	out := Entry{Fields: make(map[Field]any, len(AllFields))}
	for _, e := range entries {
		if e.EntryID > out.EntryID {
			out.EntryID = e.EntryID
			out.CreatedAt = e.CreatedAt
		}
	}
	for _, f := range AllFields {
		var bestID int64 = -1
		for _, e := range entries {
			if e.Has(f) && e.EntryID > bestID {
				bestID = e.EntryID
				out.Fields[f] = e.Fields[f]
			}
		}
	}
	return out
}
