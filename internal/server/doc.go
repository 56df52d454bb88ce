// Package server implements the HTTP API exposed next to a running capture.
// It reports health, capture statistics, the active configuration and
// Prometheus metrics.
package server
