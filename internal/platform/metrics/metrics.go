package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Download outcomes used as the "outcome" label of hls_downloads_total.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

// Metrics holds Prometheus counters and gauges for the download service.
type Metrics struct {
	registry         *prometheus.Registry
	requestsTotal    prometheus.Counter
	errorsTotal      prometheus.Counter
	downloadsTotal   *prometheus.CounterVec
	manifestFetches  *prometheus.CounterVec
	segmentsResolved prometheus.Counter
	bytesStreamed    prometheus.Counter
	activeTranscodes prometheus.Gauge
}

// New creates and registers Prometheus metrics for the service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	downloadsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hls_downloads_total",
		Help: "Download requests by outcome",
	}, []string{"outcome"})
	manifestFetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hls_manifest_fetches_total",
		Help: "Manifest fetches by upstream status class (2xx, 4xx, 5xx, error)",
	}, []string{"result"})
	segmentsResolved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_segments_resolved_total",
		Help: "Total number of segment URIs written to concat lists",
	})
	bytesStreamed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_bytes_streamed_total",
		Help: "Total number of MP4 bytes written to clients",
	})
	activeTranscodes := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hls_active_transcodes",
		Help: "Number of downloads currently in flight",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		downloadsTotal,
		manifestFetches,
		segmentsResolved,
		bytesStreamed,
		activeTranscodes,
	)

	return &Metrics{
		registry:         registry,
		requestsTotal:    requestsTotal,
		errorsTotal:      errorsTotal,
		downloadsTotal:   downloadsTotal,
		manifestFetches:  manifestFetches,
		segmentsResolved: segmentsResolved,
		bytesStreamed:    bytesStreamed,
		activeTranscodes: activeTranscodes,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncDownloads records a finished download request with the given outcome.
func (m *Metrics) IncDownloads(outcome string) {
	m.downloadsTotal.WithLabelValues(outcome).Inc()
}

// IncManifestFetch records a manifest fetch result.
func (m *Metrics) IncManifestFetch(result string) {
	m.manifestFetches.WithLabelValues(result).Inc()
}

// AddSegmentsResolved adds n to the resolved segments counter.
func (m *Metrics) AddSegmentsResolved(n int) {
	m.segmentsResolved.Add(float64(n))
}

// AddBytesStreamed adds n to the streamed bytes counter.
func (m *Metrics) AddBytesStreamed(n int) {
	m.bytesStreamed.Add(float64(n))
}

// SetActiveTranscodes sets the in-flight downloads gauge.
func (m *Metrics) SetActiveTranscodes(n int) {
	m.activeTranscodes.Set(float64(n))
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active transcodes).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
