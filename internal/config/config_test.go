package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			UDPPort:              4444,
			BindAddress:          "0.0.0.0",
			BufferSize:           65536,
			MaxConcurrentStreams: 1000,
		},
		HTTP: HTTPConfig{
			Port:    8080,
			Address: "0.0.0.0",
			Enabled: true,
		},
		Audio: AudioConfig{
			SampleRate:        16000,
			Channels:          1,
			BitDepth:          16,
			RingBufferSeconds: 30,
			WindowSize:        1600,
			StreamTimeout:     60,
		},
		VAD: VADConfig{
			Threshold: 0.02,
		},
		Segmenter: SegmenterConfig{
			MinDuration:        1.0,
			MaxDuration:        30.0,
			MinSpeechDuration:  0.5,
			MinSilenceDuration: 0.3,
		},
		Queue: QueueConfig{
			MaxPending:     256,
			OverflowPolicy: "drop_oldest",
		},
		Engine: EngineConfig{
			Backend:  "remote",
			Language: "en",
			Timeout:  30,
			Endpoint: "https://api.example.com/transcribe",
			APIKey:   "test-key",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*Config)
		errorMsg string // empty means the config must be valid
	}{
		{
			name:   "valid configuration",
			modify: func(c *Config) {},
		},
		{
			name:     "invalid server port",
			modify:   func(c *Config) { c.Server.UDPPort = 70000 },
			errorMsg: "udp_port must be between 1 and 65535",
		},
		{
			name:     "invalid sample rate",
			modify:   func(c *Config) { c.Audio.SampleRate = 44100 },
			errorMsg: "sample_rate must be 8000 or 16000",
		},
		{
			name:     "stereo not supported",
			modify:   func(c *Config) { c.Audio.Channels = 2 },
			errorMsg: "channels must be 1",
		},
		{
			name:     "window size too small",
			modify:   func(c *Config) { c.Audio.WindowSize = 100 },
			errorMsg: "window_size must be between 256 and 8192",
		},
		{
			name:     "threshold out of range",
			modify:   func(c *Config) { c.VAD.Threshold = 1.5 },
			errorMsg: "threshold must be between 0 and 1",
		},
		{
			name:     "max duration not above min",
			modify:   func(c *Config) { c.Segmenter.MaxDuration = 0.5 },
			errorMsg: "must be greater than min_duration",
		},
		{
			name:     "negative queue bound",
			modify:   func(c *Config) { c.Queue.MaxPending = -1 },
			errorMsg: "max_pending cannot be negative",
		},
		{
			name:     "unknown overflow policy",
			modify:   func(c *Config) { c.Queue.OverflowPolicy = "reject_all" },
			errorMsg: "overflow_policy must be",
		},
		{
			name:     "unknown engine backend",
			modify:   func(c *Config) { c.Engine.Backend = "local" },
			errorMsg: "backend must be 'native' or 'remote'",
		},
		{
			name: "native backend without model",
			modify: func(c *Config) {
				c.Engine.Backend = "native"
				c.Engine.ModelPath = ""
			},
			errorMsg: "model_path cannot be empty",
		},
		{
			name:     "remote backend without endpoint",
			modify:   func(c *Config) { c.Engine.Endpoint = "" },
			errorMsg: "endpoint cannot be empty",
		},
		{
			name:     "invalid log level",
			modify:   func(c *Config) { c.Logging.Level = "trace" },
			errorMsg: "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.modify(&config)
			err := config.Validate()

			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("Expected valid config but got error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing '%s' but got none", tt.errorMsg)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
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
server:
  udp_port: 4444
  bind_address: "0.0.0.0"
  buffer_size: 65536
  max_concurrent_streams: 1000
http:
  port: 8080
  address: "0.0.0.0"
  enabled: true
audio:
  sample_rate: 16000
  channels: 1
  bit_depth: 16
  ring_buffer_seconds: 30
  window_size: 1600
  stream_timeout: 60
vad:
  threshold: 0.02
segmenter:
  min_duration: 1.0
  max_duration: 30.0
  min_speech_duration: 0.5
  min_silence_duration: 0.3
queue:
  max_pending: 256
  overflow_policy: "drop_oldest"
engine:
  backend: "remote"
  language: "en"
  timeout: 30
  endpoint: "https://api.example.com/transcribe"
  api_key: "test-key"
logging:
  level: "info"
  format: "json"
  output: "stdout"
`,
			expectError: false,
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
server:
  udp_port: 4444
  bind_address: "0.0.0.0"
  buffer_size: invalid_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "missing required fields",
			configYAML: `
server:
  udp_port: 4444
  # missing bind_address
`,
			expectError: true,
			errorMsg:    "bind_address cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			err := os.WriteFile(configPath, []byte(tt.configYAML), 0644)
			if err != nil {
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
	audio := AudioConfig{
		SampleRate:        16000,
		RingBufferSeconds: 30,
		StreamTimeout:     60,
	}

	if audio.GetStreamTimeoutDuration() != 60*time.Second {
		t.Errorf("Expected 60 seconds, got %v", audio.GetStreamTimeoutDuration())
	}

	if audio.RingCapacity() != 480000 {
		t.Errorf("Expected 480000 samples, got %d", audio.RingCapacity())
	}

	segmenter := SegmenterConfig{
		MinDuration:        1.5,
		MaxDuration:        10.0,
		MinSpeechDuration:  0.5,
		MinSilenceDuration: 0.3,
	}

	if segmenter.GetMinDuration() != 1500*time.Millisecond {
		t.Errorf("Expected 1.5 seconds, got %v", segmenter.GetMinDuration())
	}

	if segmenter.GetMaxDuration() != 10*time.Second {
		t.Errorf("Expected 10 seconds, got %v", segmenter.GetMaxDuration())
	}

	if segmenter.GetMinSpeechDuration() != 500*time.Millisecond {
		t.Errorf("Expected 0.5 seconds, got %v", segmenter.GetMinSpeechDuration())
	}

	if segmenter.GetMinSilenceDuration() != 300*time.Millisecond {
		t.Errorf("Expected 0.3 seconds, got %v", segmenter.GetMinSilenceDuration())
	}

	engine := EngineConfig{
		Timeout: 30,
	}

	if engine.GetTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", engine.GetTimeoutDuration())
	}
}

func TestServerConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config ServerConfig
		valid  bool
	}{
		{
			name: "valid config",
			config: ServerConfig{
				UDPPort:              4444,
				BindAddress:          "0.0.0.0",
				BufferSize:           65536,
				MaxConcurrentStreams: 1000,
			},
			valid: true,
		},
		{
			name: "port too low",
			config: ServerConfig{
				UDPPort:              0,
				BindAddress:          "0.0.0.0",
				BufferSize:           65536,
				MaxConcurrentStreams: 1000,
			},
			valid: false,
		},
		{
			name: "port too high",
			config: ServerConfig{
				UDPPort:              70000,
				BindAddress:          "0.0.0.0",
				BufferSize:           65536,
				MaxConcurrentStreams: 1000,
			},
			valid: false,
		},
		{
			name: "empty bind address",
			config: ServerConfig{
				UDPPort:              4444,
				BindAddress:          "",
				BufferSize:           65536,
				MaxConcurrentStreams: 1000,
			},
			valid: false,
		},
		{
			name: "buffer too small",
			config: ServerConfig{
				UDPPort:              4444,
				BindAddress:          "0.0.0.0",
				BufferSize:           512,
				MaxConcurrentStreams: 1000,
			},
			valid: false,
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

func TestLoggingConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config LoggingConfig
		valid  bool
	}{
		{
			name: "valid json to stdout",
			config: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
			valid: true,
		},
		{
			name: "valid text to stderr",
			config: LoggingConfig{
				Level:  "debug",
				Format: "text",
				Output: "stderr",
			},
			valid: true,
		},
		{
			name: "invalid log level",
			config: LoggingConfig{
				Level:  "trace",
				Format: "json",
				Output: "stdout",
			},
			valid: false,
		},
		{
			name: "invalid format",
			config: LoggingConfig{
				Level:  "info",
				Format: "xml",
				Output: "stdout",
			},
			valid: false,
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
