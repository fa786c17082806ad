package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry(), "cordlink")

	m.SetStatus(4)
	m.IncReconnect()
	m.IncReconnect()
	m.IncDispatch("GUILD_CREATE")
	m.IncDispatch("GUILD_CREATE")
	m.IncDispatch("READY")
	m.SetBuffered(7)
	m.IncMalformed()
	m.RecordRequest("GET", 200, 10*time.Millisecond)
	m.IncRateLimit("GET /guilds/1")

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"status", m.GatewayStatus, 4},
		{"reconnects", m.GatewayReconnects, 2},
		{"guild creates", m.DispatchedEvents.WithLabelValues("GUILD_CREATE"), 2},
		{"ready", m.DispatchedEvents.WithLabelValues("READY"), 1},
		{"buffered", m.BufferedEvents, 7},
		{"malformed", m.MalformedPayloads, 1},
		{"requests", m.RESTRequests.WithLabelValues("GET", "200"), 1},
		{"rate limits", m.RateLimitHits.WithLabelValues("GET /guilds/1"), 1},
	}

	for _, test := range tests {
		if got := testutil.ToFloat64(test.c); got != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, got)
		}
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	m.SetStatus(1)
	m.IncReconnect()
	m.SetLatency(time.Second)
	m.IncDispatch("READY")
	m.SetBuffered(1)
	m.IncMalformed()
	m.RecordRequest("GET", 500, time.Second)
	m.IncRateLimit("GET /gateway")
}
