package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the gateway.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal  prometheus.Counter
	errorsTotal    prometheus.Counter
	streamsCreated prometheus.Counter
	streamsEnded   prometheus.Counter
	activeStreams  prometheus.Gauge

	segmentsDownloaded      prometheus.Counter
	segmentsDecrypted       prometheus.Counter
	decryptFailures         prometheus.Counter
	manifestRefreshFailures prometheus.Counter
}

// New creates and registers Prometheus metrics for the gateway.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dash2hls_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dash2hls_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		streamsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dash2hls_streams_created_total",
			Help: "Total number of streams created",
		}),
		streamsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dash2hls_streams_ended_total",
			Help: "Total number of streams ended",
		}),
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dash2hls_active_streams",
			Help: "Number of streams currently registered",
		}),
		segmentsDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dash2hls_segments_downloaded_total",
			Help: "Total number of segments downloaded from origin",
		}),
		segmentsDecrypted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dash2hls_segments_decrypted_total",
			Help: "Total number of segments successfully decrypted",
		}),
		decryptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dash2hls_decrypt_failures_total",
			Help: "Total number of segment decryption failures",
		}),
		manifestRefreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dash2hls_manifest_refresh_failures_total",
			Help: "Total number of failed manifest refresh attempts",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.streamsCreated,
		m.streamsEnded,
		m.activeStreams,
		m.segmentsDownloaded,
		m.segmentsDecrypted,
		m.decryptFailures,
		m.manifestRefreshFailures,
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncStreamsCreated increments the streams created counter.
func (m *Metrics) IncStreamsCreated() {
	m.streamsCreated.Inc()
}

// IncStreamsEnded increments the streams ended counter.
func (m *Metrics) IncStreamsEnded() {
	m.streamsEnded.Inc()
}

// SetActiveStreams sets the active streams gauge.
func (m *Metrics) SetActiveStreams(n int) {
	m.activeStreams.Set(float64(n))
}

// IncSegmentsDownloaded increments the segments downloaded counter.
func (m *Metrics) IncSegmentsDownloaded() {
	m.segmentsDownloaded.Inc()
}

// IncSegmentsDecrypted increments the segments decrypted counter.
func (m *Metrics) IncSegmentsDecrypted() {
	m.segmentsDecrypted.Inc()
}

// IncDecryptFailures increments the decrypt failures counter.
func (m *Metrics) IncDecryptFailures() {
	m.decryptFailures.Inc()
}

// IncManifestRefreshFailures increments the manifest refresh failures counter.
func (m *Metrics) IncManifestRefreshFailures() {
	m.manifestRefreshFailures.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active streams).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
