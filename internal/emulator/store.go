package emulator

import (
	"context"
	"sync"
	"time"

	"aquaponics_monitor/internal/broker"
)

const (
	defaultRetention   = 8000
	defaultFeedResults = 100
)

// Store is an in-memory channel standing in for ThingSpeak while the emulator runs.
type Store struct {
	mu        sync.Mutex
	entries   []broker.Entry
	nextID    int64
	retention int
	now       func() time.Time

	// onWrite sees every update written through the Broker interface
	onWrite func(broker.Update)
}

var _ broker.Broker = (*Store)(nil)

// NewStore returns an empty store.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{retention: defaultRetention, now: now, nextID: 1}
}

// Latest returns the newest entry.
func (s *Store) Latest(ctx context.Context) (broker.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return broker.Entry{}, broker.ErrNoData
	}
	return s.entries[len(s.entries)-1], nil
}

// Feeds returns entries in [Start, End], keeping the newest Results, oldest first.
func (s *Store) Feeds(ctx context.Context, q broker.FeedQuery) ([]broker.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]broker.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if !q.Start.IsZero() && e.CreatedAt.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && e.CreatedAt.After(q.End) {
			continue
		}
		out = append(out, e)
	}
	n := q.Results
	if n <= 0 {
		n = defaultFeedResults
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

// Write appends an entry and notifies the emulator of control fields.
func (s *Store) Write(ctx context.Context, u broker.Update) (int64, error) {
	e := s.append(u)
	if s.onWrite != nil {
		s.onWrite(u)
	}
	return e.EntryID, nil
}

// Len reports the number of retained entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) append(u broker.Update) broker.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := broker.Entry{
		EntryID:   s.nextID,
		CreatedAt: s.now().UTC(),
		Fields:    make(map[broker.Field]any, len(u)),
	}
	for f, v := range u {
		e.Fields[f] = v
	}
	s.nextID++
	s.entries = append(s.entries, e)
	if len(s.entries) > s.retention {
		s.entries = s.entries[len(s.entries)-s.retention:]
	}
	return e
}
