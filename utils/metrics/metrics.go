// Package metrics exposes Prometheus collectors for the gateway and REST
// layers. Every method is safe to call on a nil *Metrics, so components can
// carry an optional collector without checking for it.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors.
type Metrics struct {
	// Gateway
	GatewayStatus     prometheus.Gauge
	GatewayReconnects prometheus.Counter
	HeartbeatLatency  prometheus.Gauge
	DispatchedEvents  *prometheus.CounterVec
	BufferedEvents    prometheus.Gauge
	MalformedPayloads prometheus.Counter

	// REST
	RESTRequests   *prometheus.CounterVec
	RateLimitHits  *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
}

// New creates the collectors and registers them into reg. A nil reg uses the
// default Prometheus registerer.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		GatewayStatus: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "status",
				Help:      "Current gateway session status as its numeric value",
			},
		),
		GatewayReconnects: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "reconnects_total",
				Help:      "Total number of reconnect attempts",
			},
		),
		HeartbeatLatency: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "heartbeat_latency_seconds",
				Help:      "Round trip time of the last acknowledged heartbeat",
			},
		),
		DispatchedEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "dispatched_events_total",
				Help:      "Total number of dispatch events handled, by event type",
			},
			[]string{"type"},
		),
		BufferedEvents: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "buffered_events",
				Help:      "Number of dispatch events waiting for a missing entity or the initial load",
			},
		),
		MalformedPayloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "malformed_payloads_total",
				Help:      "Total number of gateway payloads dropped because they could not be decoded",
			},
		),

		RESTRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rest",
				Name:      "requests_total",
				Help:      "Total number of REST requests, by method and status code",
			},
			[]string{"method", "status_code"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rest",
				Name:      "rate_limit_hits_total",
				Help:      "Total number of 429 responses, by bucket",
			},
			[]string{"bucket"},
		),
		RequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "rest",
				Name:      "request_duration_seconds",
				Help:      "REST request latency distributions",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
			},
			[]string{"method"},
		),
	}
}

// SetStatus records the gateway status.
func (m *Metrics) SetStatus(status int) {
	if m == nil {
		return
	}
	m.GatewayStatus.Set(float64(status))
}

// IncReconnect counts one reconnect attempt.
func (m *Metrics) IncReconnect() {
	if m == nil {
		return
	}
	m.GatewayReconnects.Inc()
}

// SetLatency records the heartbeat round trip.
func (m *Metrics) SetLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.HeartbeatLatency.Set(d.Seconds())
}

// IncDispatch counts one handled dispatch event.
func (m *Metrics) IncDispatch(eventType string) {
	if m == nil {
		return
	}
	m.DispatchedEvents.WithLabelValues(eventType).Inc()
}

// SetBuffered records the number of buffered events.
func (m *Metrics) SetBuffered(n int) {
	if m == nil {
		return
	}
	m.BufferedEvents.Set(float64(n))
}

// IncMalformed counts one dropped payload.
func (m *Metrics) IncMalformed() {
	if m == nil {
		return
	}
	m.MalformedPayloads.Inc()
}

// RecordRequest records one finished REST request.
func (m *Metrics) RecordRequest(method string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.RESTRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.RequestLatency.WithLabelValues(method).Observe(took.Seconds())
}

// IncRateLimit counts one rate limited response for the bucket.
func (m *Metrics) IncRateLimit(bucket string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(bucket).Inc()
}
