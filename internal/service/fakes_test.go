package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"aquaponics_monitor/internal/broker"
	"aquaponics_monitor/internal/models"
	"aquaponics_monitor/internal/repository"
)

// ---- Test doubles shared by the service tests ----

// fakeClock is advanced by hand.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeBroker is an in-memory channel that records writes.
type fakeBroker struct {
	mu       sync.Mutex
	entries  []broker.Entry
	writes   []broker.Update
	writeErr error
	readErr  error
	source   string
}

func newFakeBroker(initial broker.Update) *fakeBroker {
	b := &fakeBroker{source: broker.SourceThingSpeak}
	if initial != nil {
		b.push(initial)
	}
	return b
}

func (b *fakeBroker) push(u broker.Update) broker.Entry {
	e := broker.Entry{
		EntryID:   int64(len(b.entries) + 1),
		CreatedAt: time.Date(2025, 6, 1, 12, 0, len(b.entries), 0, time.UTC),
		Fields:    map[broker.Field]any{},
	}
	for f, v := range u {
		e.Fields[f] = v
	}
	b.entries = append(b.entries, e)
	return e
}

func (b *fakeBroker) Latest(ctx context.Context) (broker.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readErr != nil {
		return broker.Entry{}, b.readErr
	}
	if len(b.entries) == 0 {
		return broker.Entry{}, broker.ErrNoData
	}
	return b.entries[len(b.entries)-1], nil
}

func (b *fakeBroker) Feeds(ctx context.Context, q broker.FeedQuery) ([]broker.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readErr != nil {
		return nil, b.readErr
	}
	out := b.entries
	if q.Results > 0 && len(out) > q.Results {
		out = out[len(out)-q.Results:]
	}
	return append([]broker.Entry(nil), out...), nil
}

func (b *fakeBroker) Write(ctx context.Context, u broker.Update) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeErr != nil {
		return 0, b.writeErr
	}
	b.writes = append(b.writes, u)
	return b.push(u).EntryID, nil
}

func (b *fakeBroker) Source() string { return b.source }

func (b *fakeBroker) writeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.writes)
}

func (b *fakeBroker) setWriteErr(err error) {
	b.mu.Lock()
	b.writeErr = err
	b.mu.Unlock()
}

func (b *fakeBroker) setReadErr(err error) {
	b.mu.Lock()
	b.readErr = err
	b.mu.Unlock()
}

// fakeEventRepo records appends and the filter passed to List.
type fakeEventRepo struct {
	mu      sync.Mutex
	appends []models.DeviceEvent

	gotFilter repository.EventFilter
	events    []models.DeviceEvent
	err       error
	calls     int
}

func (f *fakeEventRepo) Append(ctx context.Context, e models.DeviceEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends = append(f.appends, e)
	return nil
}

func (f *fakeEventRepo) List(ctx context.Context, rf repository.EventFilter) ([]models.DeviceEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotFilter = rf
	return f.events, f.err
}

func (f *fakeEventRepo) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.appends))
	for _, e := range f.appends {
		out = append(out, e.Type)
	}
	return out
}

// fakeStateRepo stores the confirmed device state in memory.
type fakeStateRepo struct {
	mu      sync.Mutex
	stored  models.StoredDeviceState
	saves   int
	loadErr error
}

func (r *fakeStateRepo) Save(ctx context.Context, s models.StoredDeviceState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = s
	r.saves++
	return nil
}

func (r *fakeStateRepo) Load(ctx context.Context) (models.StoredDeviceState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stored, r.loadErr
}

// fakeSettingsRepo is a key/value map of JSON documents.
type fakeSettingsRepo struct {
	values map[string]json.RawMessage
	err    error
}

func (r *fakeSettingsRepo) Get(ctx context.Context, key string) (json.RawMessage, time.Time, error) {
	if r.err != nil {
		return nil, time.Time{}, r.err
	}
	return r.values[key], time.Time{}, nil
}

func (r *fakeSettingsRepo) Put(ctx context.Context, key string, value any) error {
	if r.err != nil {
		return r.err
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if r.values == nil {
		r.values = map[string]json.RawMessage{}
	}
	r.values[key] = b
	return nil
}

// fakeReadingRepo is an append-only slice.
type fakeReadingRepo struct {
	mu       sync.Mutex
	readings []models.Reading
	listFrom time.Time
	listTo   time.Time
	limit    int
}

func (r *fakeReadingRepo) Append(ctx context.Context, rd models.Reading) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rd.ID = int64(len(r.readings) + 1)
	r.readings = append(r.readings, rd)
	return rd.ID, nil
}

func (r *fakeReadingRepo) Latest(ctx context.Context) (*models.Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.readings) == 0 {
		return nil, nil
	}
	last := r.readings[len(r.readings)-1]
	return &last, nil
}

func (r *fakeReadingRepo) List(ctx context.Context, from, to time.Time, limit int) ([]models.Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listFrom, r.listTo, r.limit = from, to, limit
	return append([]models.Reading(nil), r.readings...), nil
}

var errBrokerDown = errors.New("broker down")
