package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActivePlaybackSessions prometheus.Gauge
	PlaybackEvents         *prometheus.CounterVec
	SynthesisOutcomes      *prometheus.CounterVec
	SynthesisLatency       prometheus.Histogram
	AssetWrites            *prometheus.CounterVec
	AssetResolves          *prometheus.CounterVec
	WSMessages             *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActivePlaybackSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_playback_sessions",
			Help:      "Number of live playback sessions.",
		}),
		PlaybackEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_events_total",
			Help:      "Playback session events by type.",
		}, []string{"event"}),
		SynthesisOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_outcomes_total",
			Help:      "Synthesis attempts by result and failure kind.",
		}, []string{"result", "kind"}),
		SynthesisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_latency_seconds",
			Help:      "Wall-clock latency of provider synthesis calls.",
			Buckets:   []float64{1, 2, 5, 10, 20, 40, 60, 90, 120},
		}),
		AssetWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_writes_total",
			Help:      "Audio asset writes by elected root.",
		}, []string{"root"}),
		AssetResolves: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_resolves_total",
			Help:      "Audio asset lookups by outcome.",
		}, []string{"outcome"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
	}
}

func (m *Metrics) ObserveSynthesisLatency(d time.Duration) {
	m.SynthesisLatency.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
