package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the intercom bridge
type Metrics struct {
	registry *prometheus.Registry

	// Capture metrics
	DatagramsReceived  prometheus.Counter
	DatagramsTruncated prometheus.Counter
	BytesReceived      prometheus.Counter
	SamplesCaptured    prometheus.Counter
	CaptureActive      prometheus.Gauge
	CapturesWritten    prometheus.Counter
	CaptureFailures    *prometheus.CounterVec
	CaptureDuration    prometheus.Histogram
	OutputBytesWritten prometheus.Counter

	// Command relay metrics
	CommandsSent     *prometheus.CounterVec
	CommandsRejected *prometheus.CounterVec
	RelayConnections prometheus.Counter
	ClientReconnects prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them on reg
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Capture metrics
		DatagramsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "intercom_capture_datagrams_received_total",
			Help: "Total number of audio datagrams received",
		}),
		DatagramsTruncated: factory.NewCounter(prometheus.CounterOpts{
			Name: "intercom_capture_datagrams_truncated_total",
			Help: "Total number of audio datagrams with an odd trailing byte dropped",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "intercom_capture_bytes_received_total",
			Help: "Total number of audio bytes received",
		}),
		SamplesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "intercom_capture_samples_total",
			Help: "Total number of samples appended to capture streams",
		}),
		CaptureActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "intercom_capture_active",
			Help: "Whether a capture is currently running",
		}),
		CapturesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "intercom_captures_written_total",
			Help: "Total number of captures written to disk",
		}),
		CaptureFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intercom_capture_failures_total",
			Help: "Total number of captures that did not produce a file",
		}, []string{"reason"}),
		CaptureDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "intercom_capture_audio_duration_seconds",
			Help:    "Audio duration of written captures",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),
		OutputBytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "intercom_capture_output_bytes_total",
			Help: "Total number of bytes written to WAV files",
		}),

		// Command relay metrics
		CommandsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intercom_commands_sent_total",
			Help: "Total number of commands forwarded to the intercom",
		}, []string{"command"}),
		CommandsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intercom_commands_rejected_total",
			Help: "Total number of console lines rejected by the relay",
		}, []string{"reason"}),
		RelayConnections: factory.NewCounter(prometheus.CounterOpts{
			Name: "intercom_relay_connections_total",
			Help: "Total number of intercom connections accepted by the relay",
		}),
		ClientReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "intercom_client_reconnects_total",
			Help: "Total number of command client reconnect attempts",
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intercom_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "intercom_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intercom_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordDatagram records one received datagram and the samples decoded from it
func (m *Metrics) RecordDatagram(sizeBytes, samples int, truncated bool) {
	m.DatagramsReceived.Inc()
	m.BytesReceived.Add(float64(sizeBytes))
	m.SamplesCaptured.Add(float64(samples))
	if truncated {
		m.DatagramsTruncated.Inc()
	}
}

// SetCaptureActive flips the capture-running gauge
func (m *Metrics) SetCaptureActive(active bool) {
	if active {
		m.CaptureActive.Set(1)
	} else {
		m.CaptureActive.Set(0)
	}
}

// RecordCaptureWritten records a capture persisted to disk
func (m *Metrics) RecordCaptureWritten(durationSeconds float64, sizeBytes uint64) {
	m.CapturesWritten.Inc()
	m.CaptureDuration.Observe(durationSeconds)
	m.OutputBytesWritten.Add(float64(sizeBytes))
}

// RecordCaptureFailure records a capture that ended without output
func (m *Metrics) RecordCaptureFailure(reason string) {
	m.CaptureFailures.WithLabelValues(reason).Inc()
}

// RecordCommandSent records a command forwarded by the relay
func (m *Metrics) RecordCommandSent(command string) {
	m.CommandsSent.WithLabelValues(command).Inc()
}

// RecordCommandRejected records a console line the relay refused
func (m *Metrics) RecordCommandRejected(reason string) {
	m.CommandsRejected.WithLabelValues(reason).Inc()
}

// RecordRelayConnection records an accepted intercom connection
func (m *Metrics) RecordRelayConnection() {
	m.RelayConnections.Inc()
}

// RecordClientReconnect records a client reconnect attempt
func (m *Metrics) RecordClientReconnect() {
	m.ClientReconnects.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
