package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	HTTP      HTTPConfig      `yaml:"http"`
	Audio     AudioConfig     `yaml:"audio"`
	VAD       VADConfig       `yaml:"vad"`
	Segmenter SegmenterConfig `yaml:"segmenter"`
	Queue     QueueConfig     `yaml:"queue"`
	Engine    EngineConfig    `yaml:"engine"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains UDP server configuration
type ServerConfig struct {
	UDPPort              int    `yaml:"udp_port"`
	BindAddress          string `yaml:"bind_address"`
	BufferSize           int    `yaml:"buffer_size"`
	MaxConcurrentStreams int    `yaml:"max_concurrent_streams"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// AudioConfig contains audio processing parameters
type AudioConfig struct {
	SampleRate        int `yaml:"sample_rate"`
	Channels          int `yaml:"channels"`
	BitDepth          int `yaml:"bit_depth"`
	RingBufferSeconds int `yaml:"ring_buffer_seconds"` // Per-stream buffer capacity
	WindowSize        int `yaml:"window_size"`         // VAD window in samples
	StreamTimeout     int `yaml:"stream_timeout"`      // seconds
}

// VADConfig contains voice activity detection configuration
type VADConfig struct {
	Threshold float32 `yaml:"threshold"`
}

// SegmenterConfig contains audio segmentation parameters
type SegmenterConfig struct {
	MinDuration        float64 `yaml:"min_duration"`         // seconds
	MaxDuration        float64 `yaml:"max_duration"`         // seconds
	MinSpeechDuration  float64 `yaml:"min_speech_duration"`  // seconds
	MinSilenceDuration float64 `yaml:"min_silence_duration"` // seconds
}

// QueueConfig contains processing queue configuration
type QueueConfig struct {
	MaxPending     int    `yaml:"max_pending"`     // 0 means unbounded
	OverflowPolicy string `yaml:"overflow_policy"` // drop_oldest or drop_newest
}

// EngineConfig contains transcription engine configuration
type EngineConfig struct {
	Backend   string `yaml:"backend"` // "native" or "remote"
	Language  string `yaml:"language"`
	Timeout   int    `yaml:"timeout"` // per-chunk deadline, seconds

	// Native backend
	ModelPath string `yaml:"model_path"`
	Threads   int    `yaml:"threads"`

	// Remote backend
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Model         string `yaml:"model"`
	MaxRetries    int    `yaml:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent"`
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

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad config: %w", err)
	}

	if err := c.Segmenter.Validate(); err != nil {
		return fmt.Errorf("segmenter config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.UDPPort < 1 || s.UDPPort > 65535 {
		return fmt.Errorf("udp_port must be between 1 and 65535, got %d", s.UDPPort)
	}

	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if s.BufferSize < 1024 {
		return fmt.Errorf("buffer_size must be at least 1024 bytes, got %d", s.BufferSize)
	}

	if s.MaxConcurrentStreams < 1 {
		return fmt.Errorf("max_concurrent_streams must be at least 1, got %d", s.MaxConcurrentStreams)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 8000 && a.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 8000 or 16000 Hz, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	if a.RingBufferSeconds < 1 {
		return fmt.Errorf("ring_buffer_seconds must be at least 1, got %d", a.RingBufferSeconds)
	}

	if a.WindowSize < 256 || a.WindowSize > 8192 {
		return fmt.Errorf("window_size must be between 256 and 8192 samples, got %d", a.WindowSize)
	}

	if a.StreamTimeout < 1 {
		return fmt.Errorf("stream_timeout must be at least 1 second, got %d", a.StreamTimeout)
	}

	return nil
}

// Validate validates VAD configuration
func (v *VADConfig) Validate() error {
	if v.Threshold < 0 || v.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %f", v.Threshold)
	}

	return nil
}

// Validate validates segmenter configuration
func (s *SegmenterConfig) Validate() error {
	if s.MinDuration <= 0 {
		return fmt.Errorf("min_duration must be positive, got %f", s.MinDuration)
	}

	if s.MaxDuration <= s.MinDuration {
		return fmt.Errorf("max_duration (%f) must be greater than min_duration (%f)",
			s.MaxDuration, s.MinDuration)
	}

	if s.MinSpeechDuration <= 0 {
		return fmt.Errorf("min_speech_duration must be positive, got %f", s.MinSpeechDuration)
	}

	if s.MinSilenceDuration <= 0 {
		return fmt.Errorf("min_silence_duration must be positive, got %f", s.MinSilenceDuration)
	}

	return nil
}

// Validate validates queue configuration
func (q *QueueConfig) Validate() error {
	if q.MaxPending < 0 {
		return fmt.Errorf("max_pending cannot be negative, got %d", q.MaxPending)
	}

	switch q.OverflowPolicy {
	case "", "drop_oldest", "drop_newest":
	default:
		return fmt.Errorf("overflow_policy must be 'drop_oldest' or 'drop_newest', got '%s'", q.OverflowPolicy)
	}

	return nil
}

// Validate validates engine configuration
func (e *EngineConfig) Validate() error {
	switch e.Backend {
	case "native":
		if e.ModelPath == "" {
			return fmt.Errorf("model_path cannot be empty for the native backend")
		}
		if e.Threads < 0 {
			return fmt.Errorf("threads cannot be negative, got %d", e.Threads)
		}
	case "remote":
		if e.Endpoint == "" {
			return fmt.Errorf("endpoint cannot be empty for the remote backend")
		}
		if e.MaxRetries < 0 {
			return fmt.Errorf("max_retries cannot be negative, got %d", e.MaxRetries)
		}
		if e.MaxConcurrent < 0 {
			return fmt.Errorf("max_concurrent cannot be negative, got %d", e.MaxConcurrent)
		}
	default:
		return fmt.Errorf("backend must be 'native' or 'remote', got '%s'", e.Backend)
	}

	if e.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative, got %d", e.Timeout)
	}

	return nil
}

// Validate validates logging configuration
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

// GetStreamTimeoutDuration returns the stream timeout as a time.Duration
func (a *AudioConfig) GetStreamTimeoutDuration() time.Duration {
	return time.Duration(a.StreamTimeout) * time.Second
}

// RingCapacity returns the per-stream buffer capacity in samples
func (a *AudioConfig) RingCapacity() int {
	return a.RingBufferSeconds * a.SampleRate
}

// GetMinDuration returns the minimum segment duration as a time.Duration
func (s *SegmenterConfig) GetMinDuration() time.Duration {
	return time.Duration(s.MinDuration * float64(time.Second))
}

// GetMaxDuration returns the maximum segment duration as a time.Duration
func (s *SegmenterConfig) GetMaxDuration() time.Duration {
	return time.Duration(s.MaxDuration * float64(time.Second))
}

// GetMinSpeechDuration returns the minimum speech duration as a time.Duration
func (s *SegmenterConfig) GetMinSpeechDuration() time.Duration {
	return time.Duration(s.MinSpeechDuration * float64(time.Second))
}

// GetMinSilenceDuration returns the minimum silence duration as a time.Duration
func (s *SegmenterConfig) GetMinSilenceDuration() time.Duration {
	return time.Duration(s.MinSilenceDuration * float64(time.Second))
}

// GetTimeoutDuration returns the per-chunk engine deadline as a time.Duration
func (e *EngineConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(e.Timeout) * time.Second
}
