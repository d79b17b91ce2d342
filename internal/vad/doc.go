// Package vad provides energy-based voice activity detection over windows
// of normalized float32 samples, with configurable thresholds and smoothing.
package vad
