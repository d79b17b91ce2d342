package audio

import (
	"math"
	"testing"
)

func TestPCM16ToFloat32(t *testing.T) {
	// int16 values 0, 16384, -16384, 32767, -32768 in little-endian
	data := []byte{
		0x00, 0x00,
		0x00, 0x40,
		0x00, 0xC0,
		0xFF, 0x7F,
		0x00, 0x80,
	}

	samples := PCM16ToFloat32(data)
	if len(samples) != 5 {
		t.Fatalf("Expected 5 samples, got %d", len(samples))
	}

	expected := []float32{0, 0.5, -0.5, 32767.0 / 32768.0, -1.0}
	for i, want := range expected {
		if math.Abs(float64(samples[i]-want)) > 1e-6 {
			t.Errorf("Sample %d: expected %.6f, got %.6f", i, want, samples[i])
		}
	}
}

func TestPCM16ToFloat32OddLength(t *testing.T) {
	// Trailing odd byte is ignored
	data := []byte{0x00, 0x40, 0x12}
	samples := PCM16ToFloat32(data)
	if len(samples) != 1 {
		t.Errorf("Expected 1 sample, got %d", len(samples))
	}
}

func TestFloat32ToPCM16Clipping(t *testing.T) {
	samples := []float32{2.0, -2.0}
	data := Float32ToPCM16(samples)
	if len(data) != 4 {
		t.Fatalf("Expected 4 bytes, got %d", len(data))
	}

	// 2.0 clips to 32767, -2.0 clips to -32767
	hi := int16(data[0]) | int16(data[1])<<8
	lo := int16(data[2]) | int16(data[3])<<8
	if hi != 32767 {
		t.Errorf("Expected clipped value 32767, got %d", hi)
	}
	if lo != -32767 {
		t.Errorf("Expected clipped value -32767, got %d", lo)
	}
}

func TestPCMRoundTrip(t *testing.T) {
	original := []float32{0.0, 0.25, -0.25, 0.9, -0.9}
	decoded := PCM16ToFloat32(Float32ToPCM16(original))

	if len(decoded) != len(original) {
		t.Fatalf("Expected %d samples, got %d", len(original), len(decoded))
	}

	for i, want := range original {
		if math.Abs(float64(decoded[i]-want)) > 1.0/32767.0 {
			t.Errorf("Sample %d: expected %.6f, got %.6f", i, want, decoded[i])
		}
	}
}
