package audio

// PCM16ToFloat32 converts 16-bit little-endian signed PCM bytes into
// normalized float32 samples in [-1, 1). A trailing odd byte is ignored.
func PCM16ToFloat32(data []byte) []float32 {
	n := len(data) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(data[i*2]) | int16(data[i*2+1])<<8
		samples[i] = float32(s) / 32768.0
	}
	return samples
}

// Float32ToPCM16 converts normalized float32 samples into 16-bit
// little-endian signed PCM bytes, clipping values outside [-1, 1].
func Float32ToPCM16(samples []float32) []byte {
	data := make([]byte, len(samples)*2)
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		s := int16(v * 32767)
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return data
}
