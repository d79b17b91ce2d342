package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/skypro1111/whisper-stream-service/internal/config"
	"github.com/skypro1111/whisper-stream-service/internal/metrics"
	"github.com/skypro1111/whisper-stream-service/internal/pipeline"
	"github.com/skypro1111/whisper-stream-service/internal/protocol"
)

// UDPServer receives protocol packets and routes them to the pipeline.
// Parsing and routing run on a single goroutine so packets reach each
// session's ingest channel in arrival order; the sessions themselves do
// the heavy lifting on their own goroutines.
type UDPServer struct {
	conn    *net.UDPConn
	config  *config.ServerConfig
	logger  *slog.Logger
	manager *pipeline.Manager
	metrics *metrics.Metrics // optional

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	packetsReceived  uint64
	packetsProcessed uint64
	parseErrors      uint64
	mu               sync.RWMutex
}

// NewUDPServer creates a new UDP server instance.
func NewUDPServer(cfg *config.ServerConfig, logger *slog.Logger, manager *pipeline.Manager,
	m *metrics.Metrics) *UDPServer {

	ctx, cancel := context.WithCancel(context.Background())

	return &UDPServer{
		config:  cfg,
		logger:  logger,
		manager: manager,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins listening for UDP packets.
func (s *UDPServer) Start() error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", s.config.BindAddress, s.config.UDPPort))
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}

	s.conn = conn

	if err := s.conn.SetReadBuffer(s.config.BufferSize); err != nil {
		s.logger.Warn("Failed to set UDP read buffer size",
			slog.Int("buffer_size", s.config.BufferSize),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("UDP server started",
		slog.String("address", addr.String()),
		slog.Int("buffer_size", s.config.BufferSize),
	)

	s.wg.Add(1)
	go s.receiveLoop()

	return nil
}

// Stop gracefully stops the UDP server.
func (s *UDPServer) Stop() error {
	s.logger.Info("Stopping UDP server...")

	s.cancel()

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Warn("Error closing UDP connection", slog.String("error", err.Error()))
		}
	}

	s.wg.Wait()

	s.mu.RLock()
	packetsReceived := s.packetsReceived
	packetsProcessed := s.packetsProcessed
	parseErrors := s.parseErrors
	s.mu.RUnlock()

	s.logger.Info("UDP server stopped",
		slog.Uint64("packets_received", packetsReceived),
		slog.Uint64("packets_processed", packetsProcessed),
		slog.Uint64("parse_errors", parseErrors),
	)

	return nil
}

// receiveLoop is the single packet receiving and routing loop.
func (s *UDPServer) receiveLoop() {
	defer s.wg.Done()

	buffer := make([]byte, s.config.BufferSize)

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("Receive loop stopping due to context cancellation")
			return
		default:
		}

		// Deadline so the loop can notice cancellation
		if err := s.conn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
			s.logger.Error("Failed to set read deadline", slog.String("error", err.Error()))
			continue
		}

		n, remoteAddr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}

			select {
			case <-s.ctx.Done():
				return
			default:
				s.logger.Error("Failed to read UDP packet", slog.String("error", err.Error()))
				continue
			}
		}

		s.mu.Lock()
		s.packetsReceived++
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordPacketReceived()
		}

		s.handlePacket(buffer[:n], remoteAddr)
	}
}

// handlePacket parses and routes a single incoming packet.
func (s *UDPServer) handlePacket(data []byte, remoteAddr *net.UDPAddr) {
	packet, err := protocol.ParsePacket(data)
	if err != nil {
		s.mu.Lock()
		s.parseErrors++
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordParseError()
		}

		s.logger.Error("Failed to parse packet",
			slog.String("remote_addr", remoteAddr.String()),
			slog.Int("packet_size", len(data)),
			slog.String("error", err.Error()),
		)
		return
	}

	s.mu.Lock()
	s.packetsProcessed++
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.RecordPacketProcessed()
	}

	switch packet.Header.PacketType {
	case protocol.PacketTypeSignaling:
		s.processSignalingPacket(packet.Header, packet.Signaling)
	case protocol.PacketTypeAudio:
		s.processAudioPacket(packet.Header, packet.Audio)
	case protocol.PacketTypeStop:
		s.processStopPacket(packet.Header)
	}
}

// processSignalingPacket handles session creation and refresh.
func (s *UDPServer) processSignalingPacket(header *protocol.Header, payload *protocol.SignalingPayload) {
	s.logger.Debug("Processing signaling packet",
		slog.Uint64("stream_id", uint64(header.StreamID)),
		slog.String("source", payload.GetSource()),
		slog.String("language", payload.GetLanguage()),
	)

	_, err := s.manager.CreateSession(header.StreamID, payload.GetSource(), payload.GetLanguage())
	if err != nil {
		s.logger.Error("Failed to create stream session",
			slog.Uint64("stream_id", uint64(header.StreamID)),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("Signaling packet processed",
		slog.Uint64("stream_id", uint64(header.StreamID)),
		slog.String("source", payload.GetSource()),
	)
}

// processAudioPacket routes audio data to its session.
func (s *UDPServer) processAudioPacket(header *protocol.Header, payload *protocol.AudioPayload) {
	if err := s.manager.HandleAudio(header.StreamID, payload.AudioData); err != nil {
		s.logger.Warn("Received audio packet for unknown stream",
			slog.Uint64("stream_id", uint64(header.StreamID)),
			slog.Uint64("sequence", uint64(payload.Sequence)),
			slog.Int("audio_size", len(payload.AudioData)),
		)
	}
}

// processStopPacket finalizes and removes the stream session.
func (s *UDPServer) processStopPacket(header *protocol.Header) {
	if !s.manager.RemoveSession(header.StreamID) {
		s.logger.Warn("Received stop packet for unknown stream",
			slog.Uint64("stream_id", uint64(header.StreamID)),
		)
		return
	}

	s.logger.Info("Stream stopped by client",
		slog.Uint64("stream_id", uint64(header.StreamID)),
	)
}

// GetStatistics returns current server statistics.
func (s *UDPServer) GetStatistics() ServerStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ServerStatistics{
		PacketsReceived:  s.packetsReceived,
		PacketsProcessed: s.packetsProcessed,
		ParseErrors:      s.parseErrors,
		ActiveStreams:    uint64(s.manager.GetActiveSessionCount()),
		QueueSize:        uint64(s.manager.QueueSize()),
	}
}

// ServerStatistics represents server performance metrics.
type ServerStatistics struct {
	PacketsReceived  uint64 `json:"packets_received"`
	PacketsProcessed uint64 `json:"packets_processed"`
	ParseErrors      uint64 `json:"parse_errors"`
	ActiveStreams    uint64 `json:"active_streams"`
	QueueSize        uint64 `json:"queue_size"`
}
