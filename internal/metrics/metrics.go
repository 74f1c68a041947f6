// Package metrics exposes the tank and service collectors on a dedicated registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aquaponics_monitor/internal/models"
)

const namespace = "aquaponics"

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	temperature    prometheus.Gauge
	level          prometheus.Gauge
	deviceOn       *prometheus.GaugeVec
	pendingSync    prometheus.Gauge
	sensorFaults   prometheus.Counter
	brokerRequests *prometheus.CounterVec
	throttled      *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Last valid water temperature reading",
		}),
		level: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "water_level_percent",
			Help:      "Last water level reading (0-100)",
		}),
		deviceOn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_on",
			Help:      "Confirmed actuator state (1 = on)",
		}, []string{"device"}),
		pendingSync: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_sync",
			Help:      "1 while the local device state differs from the broker",
		}),
		sensorFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_faults_total",
			Help:      "Readings with a disconnected temperature sensor",
		}),
		brokerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_requests_total",
			Help:      "Broker calls by operation and result",
		}, []string{"op", "result"}),
		throttled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttled_commands_total",
			Help:      "Toggle commands dropped by the cooldown",
		}, []string{"device"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		m.temperature,
		m.level,
		m.deviceOn,
		m.pendingSync,
		m.sensorFaults,
		m.brokerRequests,
		m.throttled,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveReading updates the sensor gauges. Fault readings only bump the fault counter.
func (m *Metrics) ObserveReading(r models.Reading) {
	if m == nil {
		return
	}
	if r.SensorFault() {
		m.sensorFaults.Inc()
	} else {
		m.temperature.Set(r.Temperature)
	}
	m.level.Set(r.Level)
}

// ObserveStatus records the confirmed actuator states and the sync flag.
func (m *Metrics) ObserveStatus(s models.DeviceStatus) {
	if m == nil {
		return
	}
	m.deviceOn.WithLabelValues("pump").Set(boolGauge(s.DatabaseState.PumpStatus))
	m.deviceOn.WithLabelValues("heater").Set(boolGauge(s.DatabaseState.HeaterStatus))
	m.pendingSync.Set(boolGauge(s.PendingSync))
}

// BrokerRequest has the broker.Observer signature.
func (m *Metrics) BrokerRequest(op, result string) {
	if m == nil {
		return
	}
	m.brokerRequests.WithLabelValues(op, result).Inc()
}

func (m *Metrics) Throttled(device string) {
	if m == nil {
		return
	}
	m.throttled.WithLabelValues(device).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests by matched route, so path parameters do not explode cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
