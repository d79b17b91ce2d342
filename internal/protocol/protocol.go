package protocol

import (
	"encoding/binary"
	"fmt"
)

// Wire protocol constants
const (
	// Packet types
	PacketTypeSignaling = 0x01 // Stream announcement
	PacketTypeAudio     = 0x02 // PCM16 audio payload
	PacketTypeStop      = 0x03 // Explicit end of stream

	// Packet structure sizes
	HeaderSize             = 8  // 1 + 2 + 4 + 1 bytes
	SignalingPayloadSize   = 88 // 64 + 16 + 4 + 4 bytes
	AudioPayloadHeaderSize = 4  // Sequence number (4 bytes)

	// String field sizes in signaling payload
	SourceSize     = 64
	LanguageSize   = 16
	SampleRateSize = 4
	TimestampSize  = 4
)

// Header is the 8-byte packet header.
// Layout: [PacketType:1][PacketLen:2][StreamID:4][Flags:1]
type Header struct {
	PacketType uint8  // 0x01=Signaling, 0x02=Audio, 0x03=Stop
	PacketLen  uint16 // Total packet size (header + payload)
	StreamID   uint32 // Unique stream identifier
	Flags      uint8  // Reserved, must be 0
}

// SignalingPayload is the 88-byte signaling packet payload.
// Layout: [Source:64][Language:16][SampleRate:4][Timestamp:4]
type SignalingPayload struct {
	Source     [SourceSize]byte   // Null-terminated stream source name
	Language   [LanguageSize]byte // Null-terminated language hint
	SampleRate uint32             // Samples per second
	Timestamp  uint32             // Unix timestamp
}

// AudioPayload is the audio packet payload.
// Layout: [Sequence:4][AudioData:N]
type AudioPayload struct {
	Sequence  uint32 // Packet sequence number
	AudioData []byte // PCM16 little-endian audio data
}

// ParsedPacket is a fully parsed packet.
type ParsedPacket struct {
	Header    *Header
	Signaling *SignalingPayload // Only set for signaling packets
	Audio     *AudioPayload     // Only set for audio packets
}

// ParseHeader parses the 8-byte packet header.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("header too short: expected %d bytes, got %d", HeaderSize, len(data))
	}

	return &Header{
		PacketType: data[0],
		PacketLen:  binary.BigEndian.Uint16(data[1:3]),
		StreamID:   binary.BigEndian.Uint32(data[3:7]),
		Flags:      data[7],
	}, nil
}

// ParseSignalingPayload parses the 88-byte signaling packet payload.
func ParseSignalingPayload(data []byte) (*SignalingPayload, error) {
	if len(data) < SignalingPayloadSize {
		return nil, fmt.Errorf("signaling payload too short: expected %d bytes, got %d",
			SignalingPayloadSize, len(data))
	}

	payload := &SignalingPayload{}

	copy(payload.Source[:], data[0:SourceSize])
	copy(payload.Language[:], data[SourceSize:SourceSize+LanguageSize])

	offset := SourceSize + LanguageSize
	payload.SampleRate = binary.BigEndian.Uint32(data[offset : offset+SampleRateSize])
	payload.Timestamp = binary.BigEndian.Uint32(data[offset+SampleRateSize : offset+SampleRateSize+TimestampSize])

	return payload, nil
}

// ParseAudioPayload parses the audio packet payload (4-byte sequence + audio data).
func ParseAudioPayload(data []byte) (*AudioPayload, error) {
	if len(data) < AudioPayloadHeaderSize {
		return nil, fmt.Errorf("audio payload too short: expected at least %d bytes, got %d",
			AudioPayloadHeaderSize, len(data))
	}

	payload := &AudioPayload{
		Sequence: binary.BigEndian.Uint32(data[0:4]),
	}

	if len(data) > AudioPayloadHeaderSize {
		payload.AudioData = make([]byte, len(data)-AudioPayloadHeaderSize)
		copy(payload.AudioData, data[AudioPayloadHeaderSize:])
	}

	return payload, nil
}

// ParsePacket parses a complete packet (header + payload).
func ParsePacket(data []byte) (*ParsedPacket, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("packet too short: expected at least %d bytes, got %d", HeaderSize, len(data))
	}

	header, err := ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	if int(header.PacketLen) != len(data) {
		return nil, fmt.Errorf("packet length mismatch: header says %d bytes, got %d bytes",
			header.PacketLen, len(data))
	}

	if err := ValidateHeader(header); err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	packet := &ParsedPacket{Header: header}
	payloadData := data[HeaderSize:]

	switch header.PacketType {
	case PacketTypeSignaling:
		payload, err := ParseSignalingPayload(payloadData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse signaling payload: %w", err)
		}
		packet.Signaling = payload

	case PacketTypeAudio:
		payload, err := ParseAudioPayload(payloadData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse audio payload: %w", err)
		}
		packet.Audio = payload

	case PacketTypeStop:
		// Stop packets carry no payload

	default:
		return nil, fmt.Errorf("unknown packet type: 0x%02x", header.PacketType)
	}

	return packet, nil
}

// ValidateHeader validates the packet header fields.
func ValidateHeader(header *Header) error {
	if !IsValidPacketType(header.PacketType) {
		return fmt.Errorf("invalid packet type: 0x%02x", header.PacketType)
	}

	if header.PacketLen < HeaderSize {
		return fmt.Errorf("packet length too small: %d (minimum %d)", header.PacketLen, HeaderSize)
	}

	expectedPayloadSize := int(header.PacketLen) - HeaderSize
	switch header.PacketType {
	case PacketTypeSignaling:
		if expectedPayloadSize != SignalingPayloadSize {
			return fmt.Errorf("signaling packet payload size mismatch: expected %d, got %d",
				SignalingPayloadSize, expectedPayloadSize)
		}
	case PacketTypeAudio:
		if expectedPayloadSize < AudioPayloadHeaderSize {
			return fmt.Errorf("audio packet payload too small: expected at least %d, got %d",
				AudioPayloadHeaderSize, expectedPayloadSize)
		}
	case PacketTypeStop:
		if expectedPayloadSize != 0 {
			return fmt.Errorf("stop packet must have no payload, got %d bytes", expectedPayloadSize)
		}
	}

	return nil
}

// IsValidPacketType checks if the packet type is valid.
func IsValidPacketType(ptype uint8) bool {
	return ptype == PacketTypeSignaling || ptype == PacketTypeAudio || ptype == PacketTypeStop
}

// EncodeSignalingPacket builds a complete signaling packet.
func EncodeSignalingPacket(streamID uint32, source, language string, sampleRate, timestamp uint32) []byte {
	data := make([]byte, HeaderSize+SignalingPayloadSize)

	data[0] = PacketTypeSignaling
	binary.BigEndian.PutUint16(data[1:3], uint16(len(data)))
	binary.BigEndian.PutUint32(data[3:7], streamID)

	copy(data[HeaderSize:HeaderSize+SourceSize], source)
	copy(data[HeaderSize+SourceSize:HeaderSize+SourceSize+LanguageSize], language)

	offset := HeaderSize + SourceSize + LanguageSize
	binary.BigEndian.PutUint32(data[offset:offset+4], sampleRate)
	binary.BigEndian.PutUint32(data[offset+4:offset+8], timestamp)

	return data
}

// EncodeAudioPacket builds a complete audio packet.
func EncodeAudioPacket(streamID, sequence uint32, audioData []byte) []byte {
	data := make([]byte, HeaderSize+AudioPayloadHeaderSize+len(audioData))

	data[0] = PacketTypeAudio
	binary.BigEndian.PutUint16(data[1:3], uint16(len(data)))
	binary.BigEndian.PutUint32(data[3:7], streamID)

	binary.BigEndian.PutUint32(data[HeaderSize:HeaderSize+4], sequence)
	copy(data[HeaderSize+AudioPayloadHeaderSize:], audioData)

	return data
}

// EncodeStopPacket builds a complete stop packet.
func EncodeStopPacket(streamID uint32) []byte {
	data := make([]byte, HeaderSize)

	data[0] = PacketTypeStop
	binary.BigEndian.PutUint16(data[1:3], uint16(len(data)))
	binary.BigEndian.PutUint32(data[3:7], streamID)

	return data
}

// ExtractString extracts a null-terminated string from a fixed-size byte array.
func ExtractString(buf []byte) string {
	nullPos := len(buf)
	for i, b := range buf {
		if b == 0 {
			nullPos = i
			break
		}
	}
	return string(buf[:nullPos])
}

// GetSource extracts the stream source as a string.
func (s *SignalingPayload) GetSource() string {
	return ExtractString(s.Source[:])
}

// GetLanguage extracts the language hint as a string.
func (s *SignalingPayload) GetLanguage() string {
	return ExtractString(s.Language[:])
}

// String returns a human-readable representation of the header.
func (h *Header) String() string {
	var packetType string

	switch h.PacketType {
	case PacketTypeSignaling:
		packetType = "Signaling"
	case PacketTypeAudio:
		packetType = "Audio"
	case PacketTypeStop:
		packetType = "Stop"
	default:
		packetType = fmt.Sprintf("Unknown(0x%02x)", h.PacketType)
	}

	return fmt.Sprintf("Header{Type:%s, Len:%d, StreamID:%d}",
		packetType, h.PacketLen, h.StreamID)
}

// String returns a human-readable representation of the signaling payload.
func (s *SignalingPayload) String() string {
	return fmt.Sprintf("SignalingPayload{Source:%q, Language:%q, SampleRate:%d, Timestamp:%d}",
		s.GetSource(), s.GetLanguage(), s.SampleRate, s.Timestamp)
}

// String returns a human-readable representation of the audio payload.
func (a *AudioPayload) String() string {
	return fmt.Sprintf("AudioPayload{Sequence:%d, AudioDataLen:%d}", a.Sequence, len(a.AudioData))
}
