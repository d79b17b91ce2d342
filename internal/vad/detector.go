package vad

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Detector performs energy-based voice activity detection on windows
// of normalized float32 samples.
type Detector struct {
	threshold  float32 // RMS energy threshold for voice
	windowSize int     // Samples per window
	sampleRate int     // Audio sample rate

	// Detection state
	lastEnergy float32
	smoothing  float32 // Exponential smoothing factor

	// Statistics
	totalWindows  uint64
	voiceWindows  uint64
	lastProcessed time.Time

	mu sync.RWMutex
}

// Result represents the outcome of processing one audio window.
type Result struct {
	Energy      float32   `json:"energy"`       // Smoothed RMS energy (0.0 - 1.0)
	HasVoice    bool      `json:"has_voice"`    // Whether voice was detected
	WindowIndex int       `json:"window_index"` // Window index processed
	Timestamp   time.Time `json:"timestamp"`    // When processing occurred
}

// Stats represents detector statistics.
type Stats struct {
	TotalWindows    uint64    `json:"total_windows"`
	VoiceWindows    uint64    `json:"voice_windows"`
	VoicePercentage float64   `json:"voice_percentage"`
	LastProcessed   time.Time `json:"last_processed"`
	Threshold       float32   `json:"threshold"`
}

// NewDetector creates a new energy detector instance.
func NewDetector(threshold float32, windowSize int, sampleRate int) (*Detector, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be between 0 and 1, got %f", threshold)
	}

	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", windowSize)
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	return &Detector{
		threshold:  threshold,
		windowSize: windowSize,
		sampleRate: sampleRate,
		smoothing:  0.3,
	}, nil
}

// Process evaluates one window of samples and reports whether it contains voice.
func (d *Detector) Process(samples []float32) (*Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(samples) != d.windowSize {
		return nil, fmt.Errorf("expected %d samples, got %d", d.windowSize, len(samples))
	}

	energy := rmsEnergy(samples)

	// Smooth against the previous window to suppress single-window spikes
	if d.totalWindows > 0 {
		energy = d.smoothing*energy + (1-d.smoothing)*d.lastEnergy
	}
	d.lastEnergy = energy

	hasVoice := energy >= d.threshold

	d.totalWindows++
	if hasVoice {
		d.voiceWindows++
	}
	d.lastProcessed = time.Now()

	return &Result{
		Energy:      energy,
		HasVoice:    hasVoice,
		WindowIndex: int(d.totalWindows - 1),
		Timestamp:   d.lastProcessed,
	}, nil
}

// rmsEnergy computes root-mean-square energy of normalized samples.
func rmsEnergy(samples []float32) float32 {
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}

// GetStats returns current detector statistics.
func (d *Detector) GetStats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	voicePercentage := float64(0)
	if d.totalWindows > 0 {
		voicePercentage = float64(d.voiceWindows) / float64(d.totalWindows) * 100
	}

	return Stats{
		TotalWindows:    d.totalWindows,
		VoiceWindows:    d.voiceWindows,
		VoicePercentage: voicePercentage,
		LastProcessed:   d.lastProcessed,
		Threshold:       d.threshold,
	}
}

// UpdateThreshold updates the voice detection threshold.
func (d *Detector) UpdateThreshold(threshold float32) error {
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %f", threshold)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.threshold = threshold
	return nil
}

// Reset clears detection state and statistics.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.totalWindows = 0
	d.voiceWindows = 0
	d.lastEnergy = 0
	d.lastProcessed = time.Time{}
}

// GetThreshold returns the current voice detection threshold.
func (d *Detector) GetThreshold() float32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.threshold
}

// GetWindowSize returns the window size in samples.
func (d *Detector) GetWindowSize() int {
	return d.windowSize
}
