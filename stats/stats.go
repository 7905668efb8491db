// Package stats tracks per-connection counters, following
// stats.Tracker's counter/gauge registration pattern (stats/
// target_stats.go) but backed by github.com/prometheus/client_golang
// alone rather than a StatsD/Prometheus dual build-tag split — this
// library only ever ships the Prometheus path.
package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Tracker is the counter/gauge set one Connection updates as it runs:
// connection-health observability, not data publishing.
type Tracker struct {
	FramesSent     prometheus.Counter
	FramesReceived prometheus.Counter
	BytesSent      prometheus.Counter
	BytesReceived  prometheus.Counter
	Reconnects     prometheus.Counter
	HeartbeatsSent prometheus.Counter
	ActiveSubs     prometheus.Gauge
	ActiveSymbols  prometheus.Gauge
	DescribeRTT    prometheus.Histogram
	DecodeErrors   prometheus.Counter
}

// New registers a fresh Tracker's metrics under reg, labeled by connID
// so multiple connections in one process don't collide. Pass a
// dedicated prometheus.Registry (or prometheus.NewRegistry()) per
// connection in tests to avoid duplicate-registration panics; passing
// nil uses the default global registerer.
func New(reg prometheus.Registerer, connID string) *Tracker {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := prometheus.Labels{"conn": connID}
	t := &Tracker{
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedcore_frames_sent_total", ConstLabels: labels,
		}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedcore_frames_received_total", ConstLabels: labels,
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedcore_bytes_sent_total", ConstLabels: labels,
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedcore_bytes_received_total", ConstLabels: labels,
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedcore_reconnects_total", ConstLabels: labels,
		}),
		HeartbeatsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedcore_heartbeats_sent_total", ConstLabels: labels,
		}),
		ActiveSubs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feedcore_active_subscriptions", ConstLabels: labels,
		}),
		ActiveSymbols: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feedcore_active_symbols", ConstLabels: labels,
		}),
		DescribeRTT: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "feedcore_describe_protocol_rtt_seconds", ConstLabels: labels,
			Buckets: prometheus.DefBuckets,
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedcore_decode_errors_total", ConstLabels: labels,
		}),
	}
	for _, c := range []prometheus.Collector{
		t.FramesSent, t.FramesReceived, t.BytesSent, t.BytesReceived,
		t.Reconnects, t.HeartbeatsSent, t.ActiveSubs, t.ActiveSymbols,
		t.DescribeRTT, t.DecodeErrors,
	} {
		_ = reg.Register(c) // best-effort: a re-Dial may re-register under the same label set
	}
	return t
}

// Noop returns a Tracker backed by an isolated, unregistered registry,
// for callers that don't want Prometheus wiring (e.g. unit tests).
func Noop() *Tracker { return New(prometheus.NewRegistry(), "noop") }
