// Package config provides configuration loading and validation for the intercom bridge.
// It handles YAML-based configuration with defaults for every key and per-section validation.
package config
