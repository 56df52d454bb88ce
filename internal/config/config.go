package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete bridge configuration
type Config struct {
	Capture CaptureConfig `yaml:"capture"`
	Audio   AudioConfig   `yaml:"audio"`
	Command CommandConfig `yaml:"command"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

// CaptureConfig contains the UDP sample listener configuration
type CaptureConfig struct {
	UDPPort      int    `yaml:"udp_port"`
	BindAddress  string `yaml:"bind_address"`
	BufferSize   int    `yaml:"buffer_size"`   // bytes per datagram read
	PollInterval int    `yaml:"poll_interval"` // milliseconds between cancellation checks
}

// AudioConfig contains the output container parameters
type AudioConfig struct {
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
	BitDepth   int    `yaml:"bit_depth"`
	OutputPath string `yaml:"output_path"`
}

// CommandConfig contains the TCP command relay configuration
type CommandConfig struct {
	TCPPort       int    `yaml:"tcp_port"`
	BindAddress   string `yaml:"bind_address"`
	RelayAddress  string `yaml:"relay_address"`  // address the client dials
	RetryInterval int    `yaml:"retry_interval"` // milliseconds
}

// HTTPConfig contains HTTP API server configuration. Port serves the
// capture binary; the relay and client expose their metrics on their own ports.
type HTTPConfig struct {
	Port       int    `yaml:"port"`
	RelayPort  int    `yaml:"relay_port"`
	ClientPort int    `yaml:"client_port"`
	Address    string `yaml:"address"`
	Enabled    bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Default returns the configuration used when a key is absent from the file.
// The ports match the intercom firmware: audio on 9999, commands on 9998.
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			UDPPort:      9999,
			BindAddress:  "0.0.0.0",
			BufferSize:   1024,
			PollInterval: 1000,
		},
		Audio: AudioConfig{
			SampleRate: 22050,
			Channels:   1,
			BitDepth:   16,
			OutputPath: "capture.wav",
		},
		Command: CommandConfig{
			TCPPort:       9998,
			BindAddress:   "0.0.0.0",
			RelayAddress:  "127.0.0.1:9998",
			RetryInterval: 1000,
		},
		HTTP: HTTPConfig{
			Port:       8080,
			RelayPort:  8081,
			ClientPort: 8082,
			Address:    "127.0.0.1",
			Enabled:    false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Validate performs validation of every section
func (c *Config) Validate() error {
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Command.Validate(); err != nil {
		return fmt.Errorf("command config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates capture configuration
func (s *CaptureConfig) Validate() error {
	if s.UDPPort < 1 || s.UDPPort > 65535 {
		return fmt.Errorf("udp_port must be between 1 and 65535, got %d", s.UDPPort)
	}

	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if s.BufferSize < 2 || s.BufferSize > 65535 {
		return fmt.Errorf("buffer_size must be between 2 and 65535 bytes, got %d", s.BufferSize)
	}

	if s.PollInterval < 10 {
		return fmt.Errorf("poll_interval must be at least 10 milliseconds, got %d", s.PollInterval)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 22050 {
		return fmt.Errorf("sample_rate must be 22050 Hz, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	if a.OutputPath == "" {
		return fmt.Errorf("output_path cannot be empty")
	}

	return nil
}

// Validate validates command relay configuration
func (c *CommandConfig) Validate() error {
	if c.TCPPort < 1 || c.TCPPort > 65535 {
		return fmt.Errorf("tcp_port must be between 1 and 65535, got %d", c.TCPPort)
	}

	if c.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if c.RelayAddress == "" {
		return fmt.Errorf("relay_address cannot be empty")
	}

	if c.RetryInterval < 1 {
		return fmt.Errorf("retry_interval must be at least 1 millisecond, got %d", c.RetryInterval)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		ports := []struct {
			name string
			port int
		}{{"port", h.Port}, {"relay_port", h.RelayPort}, {"client_port", h.ClientPort}}

		seen := make(map[int]string, len(ports))
		for _, p := range ports {
			if p.port < 1 || p.port > 65535 {
				return fmt.Errorf("http %s must be between 1 and 65535, got %d", p.name, p.port)
			}
			if other, ok := seen[p.port]; ok {
				return fmt.Errorf("http %s and %s cannot share port %d", other, p.name, p.port)
			}
			seen[p.port] = p.name
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration. Output may be stdout, stderr or a file path.
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// ListenAddress returns the host:port the capture listener binds to
func (s *CaptureConfig) ListenAddress() string {
	return fmt.Sprintf("%s:%d", s.BindAddress, s.UDPPort)
}

// GetPollInterval returns the poll interval as a time.Duration
func (s *CaptureConfig) GetPollInterval() time.Duration {
	return time.Duration(s.PollInterval) * time.Millisecond
}

// ListenAddress returns the host:port the relay binds to
func (c *CommandConfig) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.TCPPort)
}

// WithPort returns a copy of the HTTP configuration bound to port
func (h HTTPConfig) WithPort(port int) HTTPConfig {
	h.Port = port
	return h
}

// GetRetryInterval returns the client reconnect delay as a time.Duration
func (c *CommandConfig) GetRetryInterval() time.Duration {
	return time.Duration(c.RetryInterval) * time.Millisecond
}
