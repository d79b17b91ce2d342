// Package protocol implements the binary wire format for audio ingest:
// an 8-byte header followed by a signaling, audio, or stop payload.
package protocol
