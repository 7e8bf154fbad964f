// Package metrics holds the Prometheus collectors for scanning and injection.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	SourceFile   = "file"
	SourceStream = "stream"
	SourceUpload = "upload"
)

// Metrics holds all Prometheus metrics for mp3nema
type Metrics struct {
	objectsTotal     *prometheus.CounterVec
	oobBytesTotal    *prometheus.CounterVec
	desyncsTotal     *prometheus.CounterVec
	injectedBytes    prometheus.Counter
	injectionsTotal  *prometheus.CounterVec
	streamSessions   prometheus.Gauge
	httpRequestTotal *prometheus.CounterVec
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		objectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mp3nema_objects_total",
				Help: "Frames and tags recognized by the scanner",
			},
			[]string{"source", "kind"},
		),
		oobBytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mp3nema_oob_bytes_total",
				Help: "Out-of-band bytes found between frames",
			},
			[]string{"source"},
		),
		desyncsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mp3nema_stream_desyncs_total",
				Help: "Reassembly window resets",
			},
			[]string{"reason"},
		),
		injectedBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mp3nema_injected_bytes_total",
				Help: "Payload bytes written between frames",
			},
		),
		injectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mp3nema_injections_total",
				Help: "Destination files processed by the injector",
			},
			[]string{"status"},
		),
		streamSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mp3nema_stream_sessions",
				Help: "Live stream sessions currently open",
			},
		),
		httpRequestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mp3nema_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
	}
}

var defaultMetrics = New(prometheus.DefaultRegisterer)

// Default returns the metrics registered on the default registry.
func Default() *Metrics {
	return defaultMetrics
}

func (m *Metrics) RecordObject(source, kind string) {
	m.objectsTotal.WithLabelValues(source, kind).Inc()
}

func (m *Metrics) RecordOOB(source string, n int) {
	if n > 0 {
		m.oobBytesTotal.WithLabelValues(source).Add(float64(n))
	}
}

func (m *Metrics) RecordDesync(reason string) {
	m.desyncsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordInjection(bytes int64, err error) {
	if err != nil {
		m.injectionsTotal.WithLabelValues("error").Inc()
		return
	}
	m.injectionsTotal.WithLabelValues("success").Inc()
	m.injectedBytes.Add(float64(bytes))
}

func (m *Metrics) SessionOpened() {
	m.streamSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	m.streamSessions.Dec()
}

func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string) {
	m.httpRequestTotal.WithLabelValues(method, endpoint, statusCode).Inc()
}
