package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name: "invalid capture port",
			mutate: func(c *Config) {
				c.Capture.UDPPort = 70000
			},
			expectError: true,
			errorMsg:    "udp_port must be between 1 and 65535",
		},
		{
			name: "invalid audio sample rate",
			mutate: func(c *Config) {
				c.Audio.SampleRate = 44100
			},
			expectError: true,
			errorMsg:    "sample_rate must be 22050 Hz",
		},
		{
			name: "stereo output",
			mutate: func(c *Config) {
				c.Audio.Channels = 2
			},
			expectError: true,
			errorMsg:    "channels must be 1",
		},
		{
			name: "empty output path",
			mutate: func(c *Config) {
				c.Audio.OutputPath = ""
			},
			expectError: true,
			errorMsg:    "output_path cannot be empty",
		},
		{
			name: "invalid relay port",
			mutate: func(c *Config) {
				c.Command.TCPPort = 0
			},
			expectError: true,
			errorMsg:    "tcp_port must be between 1 and 65535",
		},
		{
			name: "http enabled without address",
			mutate: func(c *Config) {
				c.HTTP.Enabled = true
				c.HTTP.Address = ""
			},
			expectError: true,
			errorMsg:    "http address cannot be empty",
		},
		{
			name: "http relay port out of range",
			mutate: func(c *Config) {
				c.HTTP.Enabled = true
				c.HTTP.RelayPort = 0
			},
			expectError: true,
			errorMsg:    "http relay_port must be between 1 and 65535",
		},
		{
			name: "http ports collide",
			mutate: func(c *Config) {
				c.HTTP.Enabled = true
				c.HTTP.ClientPort = c.HTTP.Port
			},
			expectError: true,
			errorMsg:    "http port and client_port cannot share port 8080",
		},
		{
			name: "http disabled ignores port",
			mutate: func(c *Config) {
				c.HTTP.Enabled = false
				c.HTTP.Port = 0
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)

			err := config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config file",
			configYAML: `
capture:
  udp_port: 9999
  bind_address: "0.0.0.0"
  buffer_size: 1024
  poll_interval: 500
audio:
  sample_rate: 22050
  channels: 1
  bit_depth: 16
  output_path: "out.wav"
command:
  tcp_port: 9998
  bind_address: "0.0.0.0"
  relay_address: "192.168.1.10:9998"
  retry_interval: 1000
http:
  enabled: true
  address: "127.0.0.1"
  port: 8080
  relay_port: 8081
  client_port: 8082
logging:
  level: "debug"
  format: "json"
  output: "stderr"
`,
			expectError: false,
		},
		{
			name: "partial file keeps defaults",
			configYAML: `
audio:
  output_path: "partial.wav"
`,
			expectError: false,
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
capture:
  udp_port: 9999
  buffer_size: invalid_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "explicitly empty bind address",
			configYAML: `
capture:
  bind_address: ""
`,
			expectError: true,
			errorMsg:    "bind_address cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.configYAML), 0644); err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				} else if config == nil {
					t.Errorf("Expected config to be loaded but got nil")
				}
			}
		})
	}
}

func TestConfigLoadPartialKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("audio:\n  output_path: \"door.wav\"\n"), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.Audio.OutputPath != "door.wav" {
		t.Errorf("Expected output path door.wav, got %s", config.Audio.OutputPath)
	}
	if config.Audio.SampleRate != 22050 {
		t.Errorf("Expected default sample rate 22050, got %d", config.Audio.SampleRate)
	}
	if config.Capture.UDPPort != 9999 {
		t.Errorf("Expected default udp port 9999, got %d", config.Capture.UDPPort)
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Fatalf("Expected error for nonexistent file but got none")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected error about reading file, got: %v", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	capture := CaptureConfig{PollInterval: 250}
	if capture.GetPollInterval() != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", capture.GetPollInterval())
	}

	command := CommandConfig{RetryInterval: 1500}
	if command.GetRetryInterval() != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s, got %v", command.GetRetryInterval())
	}
}

func TestListenAddresses(t *testing.T) {
	config := Default()

	if got := config.Capture.ListenAddress(); got != "0.0.0.0:9999" {
		t.Errorf("Expected capture address 0.0.0.0:9999, got %s", got)
	}

	if got := config.Command.ListenAddress(); got != "0.0.0.0:9998" {
		t.Errorf("Expected relay address 0.0.0.0:9998, got %s", got)
	}
}

func TestLoggingConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config LoggingConfig
		valid  bool
	}{
		{
			name:   "valid json to stdout",
			config: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
			valid:  true,
		},
		{
			name:   "valid text to file",
			config: LoggingConfig{Level: "debug", Format: "text", Output: "/tmp/bridge.log"},
			valid:  true,
		},
		{
			name:   "invalid log level",
			config: LoggingConfig{Level: "trace", Format: "json", Output: "stdout"},
			valid:  false,
		},
		{
			name:   "invalid format",
			config: LoggingConfig{Level: "info", Format: "xml", Output: "stdout"},
			valid:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid config but got error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected invalid config but got no error")
			}
		})
	}
}

func TestCaptureConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config CaptureConfig
		valid  bool
	}{
		{
			name:   "valid config",
			config: CaptureConfig{UDPPort: 9999, BindAddress: "0.0.0.0", BufferSize: 1024, PollInterval: 1000},
			valid:  true,
		},
		{
			name:   "port too low",
			config: CaptureConfig{UDPPort: 0, BindAddress: "0.0.0.0", BufferSize: 1024, PollInterval: 1000},
			valid:  false,
		},
		{
			name:   "empty bind address",
			config: CaptureConfig{UDPPort: 9999, BindAddress: "", BufferSize: 1024, PollInterval: 1000},
			valid:  false,
		},
		{
			name:   "buffer too small for one sample",
			config: CaptureConfig{UDPPort: 9999, BindAddress: "0.0.0.0", BufferSize: 1, PollInterval: 1000},
			valid:  false,
		},
		{
			name:   "poll interval too short",
			config: CaptureConfig{UDPPort: 9999, BindAddress: "0.0.0.0", BufferSize: 1024, PollInterval: 1},
			valid:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid config but got error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected invalid config but got no error")
			}
		})
	}
}

func TestHTTPConfigWithPort(t *testing.T) {
	base := Default().HTTP
	relay := base.WithPort(base.RelayPort)

	if relay.Port != 8081 {
		t.Errorf("Expected port 8081, got %d", relay.Port)
	}
	if base.Port != 8080 {
		t.Errorf("WithPort modified the original: port %d", base.Port)
	}
	if relay.Address != base.Address {
		t.Errorf("Expected address %s, got %s", base.Address, relay.Address)
	}
}
