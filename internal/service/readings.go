package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"aquaponics_monitor/internal/broker"
	"aquaponics_monitor/internal/logger"
	"aquaponics_monitor/internal/metrics"
	"aquaponics_monitor/internal/models"
	"aquaponics_monitor/internal/repository"
)

const (
	defaultHistoryLimit = 500
	maxHistoryLimit     = 8000
)

// ReadingConfig tunes collection and the remote history cache.
type ReadingConfig struct {
	LevelUnit     broker.LevelUnit
	StatusResults int
	Interval      time.Duration
	CacheSize     int
	CacheTTL      time.Duration
}

// ReadingService collects sensor readings into the local log and serves them.
type ReadingService struct {
	broker   SourcedBroker
	repo     repository.ReadingRepo
	settings *SettingsService
	cfg      ReadingConfig

	log     *logger.Logger
	now     func() time.Time
	metrics *metrics.Metrics

	cache   *lru.Cache
	collect sync.Mutex
}

type cachedFeed struct {
	readings  []models.Reading
	fetchedAt time.Time
}

func NewReadingService(b SourcedBroker, repo repository.ReadingRepo, settings *SettingsService, cfg ReadingConfig, opts ...Option) (*ReadingService, error) {
	o := buildOptions(opts)
	if cfg.LevelUnit == "" {
		cfg.LevelUnit = broker.LevelPercent
	}
	if cfg.StatusResults <= 0 {
		cfg.StatusResults = 20
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 128
	}
	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("history cache: %w", err)
	}
	return &ReadingService{
		broker:   b,
		repo:     repo,
		settings: settings,
		cfg:      cfg,
		log:      o.log.With("component", "readings"),
		now:      o.now,
		metrics:  o.metrics,
		cache:    cache,
	}, nil
}

// Collect reads the newest values from the active source and appends them to the
// log unless that sensor entry was already stored. Windows without a sensor
// sample return broker.ErrNoData.
func (s *ReadingService) Collect(ctx context.Context) (models.Reading, bool, error) {
	s.collect.Lock()
	defer s.collect.Unlock()

	r, err := s.fetchLatest(ctx)
	if err != nil {
		return models.Reading{}, false, err
	}
	last, err := s.repo.Latest(ctx)
	if err != nil {
		return r, false, err
	}
	if last != nil && sameEntry(*last, r) {
		return *last, false, nil
	}

	id, err := s.repo.Append(ctx, r)
	if err != nil {
		return r, false, err
	}
	r.ID = id
	s.metrics.ObserveReading(r)
	return r, true, nil
}

// Latest prefers a live read and falls back to the local log when the broker is down.
// With neither available the payload carries a nil Reading.
func (s *ReadingService) Latest(ctx context.Context) (models.LatestReading, error) {
	r, err := s.fetchLatest(ctx)
	if err != nil {
		s.log.Debugw("latest_from_log", "error", err)
		last, lerr := s.repo.Latest(ctx)
		if lerr != nil {
			return models.LatestReading{}, lerr
		}
		if last == nil {
			return models.LatestReading{Alerts: []models.Alert{}, Source: s.broker.Source()}, nil
		}
		r = *last
	}

	st, serr := s.settings.Get(ctx)
	if serr != nil {
		st = DefaultSettings()
	}
	return models.LatestReading{
		Reading:     &r,
		SensorFault: r.SensorFault(),
		Alerts:      Alerts(r, st),
		Source:      r.Source,
	}, nil
}

func (s *ReadingService) History(ctx context.Context, f HistoryFilter) ([]models.Reading, error) {
	from, to, limit, err := normalizeHistoryFilter(f)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, from, to, limit)
}

func (s *ReadingService) Stats(ctx context.Context, f HistoryFilter) (models.ReadingStats, error) {
	from, to, _, err := normalizeHistoryFilter(f)
	if err != nil {
		return models.ReadingStats{}, err
	}
	rs, err := s.repo.List(ctx, from, to, 0)
	if err != nil {
		return models.ReadingStats{}, err
	}
	return ComputeStats(rs), nil
}

// RemoteHistory reads the broker feed list, caching results per query.
func (s *ReadingService) RemoteHistory(ctx context.Context, q broker.FeedQuery) ([]models.Reading, error) {
	if !validRange(q.Start, q.End) {
		return nil, ErrInvalidTimeRange
	}
	source := s.broker.Source()
	key := fmt.Sprintf("%s|%d|%d|%d", source, q.Results, q.Start.Unix(), q.End.Unix())
	if v, ok := s.cache.Get(key); ok {
		if c := v.(cachedFeed); s.now().Sub(c.fetchedAt) < s.cfg.CacheTTL {
			return c.readings, nil
		}
		s.cache.Remove(key)
	}

	entries, err := s.broker.Feeds(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]models.Reading, 0, len(entries))
	for _, e := range entries {
		if !e.HasSensor() {
			continue
		}
		r := broker.ToReading(e, s.cfg.LevelUnit)
		r.Source = source
		out = append(out, r)
	}
	s.cache.Add(key, cachedFeed{readings: out, fetchedAt: s.now()})
	return out, nil
}

// Run collects readings until ctx is cancelled.
func (s *ReadingService) Run(ctx context.Context) {
	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r, stored, err := s.Collect(ctx)
			switch {
			case errors.Is(err, broker.ErrNoData), errors.Is(err, broker.ErrNotConfigured):
				s.log.Debugw("collect_skipped", "error", err)
			case err != nil:
				s.log.Warnw("collect_failed", "error", err)
			case stored:
				s.log.Debugw("reading_stored", "entry_id", r.EntryID, "source", r.Source, "sensor_fault", r.SensorFault())
			}
		}
	}
}

func (s *ReadingService) fetchLatest(ctx context.Context) (models.Reading, error) {
	e, err := broker.LatestSensorValues(ctx, s.broker, s.cfg.StatusResults)
	if err != nil {
		return models.Reading{}, err
	}
	r := broker.ToReading(e, s.cfg.LevelUnit)
	r.Source = s.broker.Source()
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now().UTC()
	}
	return r, nil
}

func sameEntry(a, b models.Reading) bool {
	if a.Source != b.Source {
		return false
	}
	if a.EntryID != 0 || b.EntryID != 0 {
		return a.EntryID == b.EntryID
	}
	return a.Timestamp.Equal(b.Timestamp)
}

func normalizeHistoryFilter(f HistoryFilter) (time.Time, time.Time, int, error) {
	from, to := normalizeToUTC(f.From), normalizeToUTC(f.To)
	if !validRange(from, to) {
		return time.Time{}, time.Time{}, 0, ErrInvalidTimeRange
	}
	limit := f.Limit
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	return from, to, limit, nil
}

// ComputeStats aggregates readings. Temperatures equal to the fault sentinel are
// counted in FaultCount and left out of the temperature aggregate.
func ComputeStats(rs []models.Reading) models.ReadingStats {
	var (
		out         models.ReadingStats
		temp, level accumulator
	)
	out.Total = len(rs)
	for i, r := range rs {
		if i == 0 || r.Timestamp.Before(out.From) {
			out.From = r.Timestamp
		}
		if r.Timestamp.After(out.To) {
			out.To = r.Timestamp
		}
		if r.SensorFault() {
			out.FaultCount++
		} else {
			temp.add(r.Temperature)
		}
		level.add(r.Level)
	}
	out.Temperature = temp.stats()
	out.Level = level.stats()
	return out
}

type accumulator struct {
	min, max, sum float64
	n             int
}

func (a *accumulator) add(v float64) {
	if a.n == 0 {
		a.min, a.max = v, v
	}
	a.min = math.Min(a.min, v)
	a.max = math.Max(a.max, v)
	a.sum += v
	a.n++
}

func (a *accumulator) stats() models.SensorStats {
	if a.n == 0 {
		return models.SensorStats{}
	}
	return models.SensorStats{
		Min:   a.min,
		Max:   a.max,
		Avg:   math.Round(a.sum/float64(a.n)*100) / 100,
		Count: a.n,
	}
}
