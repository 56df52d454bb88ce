// Package metrics defines the Prometheus collectors exported by the bridge binaries.
package metrics
