// Package audio provides the sample-level primitives of the pipeline: the
// lock-free SPSC ring buffer that decouples capture from processing, the
// immutable Chunk value handed to the transcription worker, and PCM/WAV
// format conversion.
package audio
