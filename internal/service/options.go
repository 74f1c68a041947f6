package service

import (
	"time"

	"aquaponics_monitor/internal/logger"
	"aquaponics_monitor/internal/metrics"
)

// Option customizes the ambient dependencies of a service.
type Option func(*options)

type options struct {
	log     *logger.Logger
	now     func() time.Time
	metrics *metrics.Metrics
	hub     *Hub
}

func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithClock replaces time.Now; tests use it to drive cooldowns and cycles.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithHub makes state changes visible to push subscribers.
func WithHub(h *Hub) Option {
	return func(o *options) { o.hub = h }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.NewNop()
	}
	return o
}
