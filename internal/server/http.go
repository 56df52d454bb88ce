package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nkalupahana/digital-intercom/internal/capture"
	"github.com/nkalupahana/digital-intercom/internal/config"
	"github.com/nkalupahana/digital-intercom/internal/metrics"
)

// CaptureSource exposes the state of a running capture
type CaptureSource interface {
	GetStatistics() capture.Statistics
	LastResult() (*capture.Result, bool)
}

// HTTPServer provides HTTP API endpoints for monitoring
type HTTPServer struct {
	server   *http.Server
	logger   *slog.Logger
	config   *config.Config
	capturer CaptureSource
	metrics  *metrics.Metrics

	startTime time.Time
}

// NewMetricsServer creates an HTTP API server without capture endpoints.
// The relay and client binaries use it to expose /health and /metrics.
func NewMetricsServer(cfg config.HTTPConfig, logger *slog.Logger,
	appConfig *config.Config, m *metrics.Metrics) *HTTPServer {
	return NewHTTPServer(cfg, logger, appConfig, nil, m)
}

// NewHTTPServer creates a new HTTP API server. capturer may be nil, in which
// case /stats is not served.
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger,
	appConfig *config.Config, capturer CaptureSource, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		capturer:  capturer,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// Handler returns the routed handler
func (h *HTTPServer) Handler() http.Handler {
	return h.server.Handler
}

func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	if h.capturer != nil {
		mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))
	}
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Prometheus metrics endpoint (not instrumented itself)
	mux.Handle("/metrics", h.metrics.Handler())

	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		h.metrics.RecordHTTPRequest(r.Method, endpoint, fmt.Sprintf("%d", ww.statusCode), duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server in the background
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server", slog.String("address", h.server.Addr))

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

func (h *HTTPServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("Failed to encode response", slog.String("error", err.Error()))
	}
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	components := map[string]interface{}{}
	if h.capturer != nil {
		stats := h.capturer.GetStatistics()
		status := "idle"
		if stats.Running {
			status = "capturing"
		}
		components["capture"] = map[string]interface{}{
			"status":             status,
			"datagrams_received": stats.DatagramsReceived,
			"samples_captured":   stats.SamplesCaptured,
		}
	}

	h.writeJSON(w, map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().UTC(),
		"uptime":     time.Since(h.startTime).String(),
		"components": components,
	})
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"capture":   h.capturer.GetStatistics(),
	}
	if result, ok := h.capturer.LastResult(); ok {
		response["last_result"] = result
	}

	h.writeJSON(w, response)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"capture": map[string]interface{}{
			"udp_port":      h.config.Capture.UDPPort,
			"bind_address":  h.config.Capture.BindAddress,
			"buffer_size":   h.config.Capture.BufferSize,
			"poll_interval": h.config.Capture.PollInterval,
		},
		"audio": map[string]interface{}{
			"sample_rate": h.config.Audio.SampleRate,
			"channels":    h.config.Audio.Channels,
			"bit_depth":   h.config.Audio.BitDepth,
			"output_path": h.config.Audio.OutputPath,
		},
		"command": map[string]interface{}{
			"tcp_port":       h.config.Command.TCPPort,
			"bind_address":   h.config.Command.BindAddress,
			"relay_address":  h.config.Command.RelayAddress,
			"retry_interval": h.config.Command.RetryInterval,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	})
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	endpoints := map[string]interface{}{
		"GET /":        "API documentation",
		"GET /health":  "Service health check",
		"GET /config":  "Service configuration",
		"GET /metrics": "Prometheus metrics",
	}
	if h.capturer != nil {
		endpoints["GET /stats"] = "Capture statistics and last written capture"
	}

	h.writeJSON(w, map[string]interface{}{
		"service":   "Digital Intercom Bridge",
		"endpoints": endpoints,
		"timestamp": time.Now().UTC(),
	})
}
