// Package pipeline connects the audio primitives to the transcription
// engine: per-stream sessions feed ring-buffered audio through voice
// detection and segmentation, finished chunks go onto a shared FIFO
// queue, and a single background worker dispatches them to the engine
// in order.
package pipeline
