// Package observability provides Prometheus metrics for vendor streams
// and outbound vendor requests.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haowjy/meridian-stream"
)

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Metrics implements llmprovider.StreamObserver with Prometheus collectors.
// One Metrics value can be shared by every adapter and stream.
type Metrics struct {
	// FragmentsTotal counts fragments emitted by provider and result shape.
	FragmentsTotal *prometheus.CounterVec

	// EventsSkippedTotal counts consumed payloads that produced no fragment.
	EventsSkippedTotal *prometheus.CounterVec

	// StreamsTotal counts finished streams by outcome ("ok" or "error").
	StreamsTotal *prometheus.CounterVec

	// RequestsTotal counts outbound vendor HTTP requests by status code and method.
	RequestsTotal *prometheus.CounterVec

	// RequestDuration records time to response headers in seconds.
	RequestDuration *prometheus.HistogramVec
}

var _ llmprovider.StreamObserver = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered (useful in tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FragmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meridian_stream_fragments_total",
				Help: "Stream fragments emitted",
			},
			[]string{"provider", "shape"},
		),
		EventsSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meridian_stream_events_skipped_total",
				Help: "Stream events consumed without a fragment",
			},
			[]string{"provider", "reason"},
		),
		StreamsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meridian_stream_streams_total",
				Help: "Streams finished",
			},
			[]string{"provider", "outcome"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meridian_stream_requests_total",
				Help: "Outbound vendor requests",
			},
			[]string{"code", "method"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meridian_stream_request_duration_seconds",
				Help:    "Outbound vendor request latency",
				Buckets: LLMBuckets,
			},
			[]string{"code", "method"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.FragmentsTotal,
			m.EventsSkippedTotal,
			m.StreamsTotal,
			m.RequestsTotal,
			m.RequestDuration,
		)
	}
	return m
}

// FragmentEmitted implements llmprovider.StreamObserver.
func (m *Metrics) FragmentEmitted(provider llmprovider.ProviderID, shape llmprovider.ResultShape) {
	m.FragmentsTotal.WithLabelValues(provider.String(), shape.String()).Inc()
}

// EventSkipped implements llmprovider.StreamObserver.
func (m *Metrics) EventSkipped(provider llmprovider.ProviderID, reason llmprovider.SkipReason) {
	m.EventsSkippedTotal.WithLabelValues(provider.String(), string(reason)).Inc()
}

// StreamEnded implements llmprovider.StreamObserver.
func (m *Metrics) StreamEnded(provider llmprovider.ProviderID, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.StreamsTotal.WithLabelValues(provider.String(), outcome).Inc()
}

// InstrumentTransport wraps next so every outbound request is counted and timed.
// A nil next uses http.DefaultTransport.
func (m *Metrics) InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperCounter(m.RequestsTotal,
		promhttp.InstrumentRoundTripperDuration(m.RequestDuration, next))
}
