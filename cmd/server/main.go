package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skypro1111/whisper-stream-service/internal/config"
	"github.com/skypro1111/whisper-stream-service/internal/engine"
	"github.com/skypro1111/whisper-stream-service/internal/engine/remote"
	"github.com/skypro1111/whisper-stream-service/internal/engine/whisper"
	"github.com/skypro1111/whisper-stream-service/internal/metrics"
	"github.com/skypro1111/whisper-stream-service/internal/pipeline"
	"github.com/skypro1111/whisper-stream-service/internal/server"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "whisper-stream-service"
	serviceVersion    = "1.0.0"

	// How often each session drains its ring buffer and how many packets
	// may sit between the receive loop and a session's ingest goroutine.
	drainInterval = 100 * time.Millisecond
	ingestBacklog = 256
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("udp_port", cfg.Server.UDPPort),
		slog.String("bind_address", cfg.Server.BindAddress),
		slog.Int("max_concurrent_streams", cfg.Server.MaxConcurrentStreams),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Float64("vad_threshold", float64(cfg.VAD.Threshold)),
		slog.String("engine_backend", cfg.Engine.Backend),
		slog.Int("queue_max_pending", cfg.Queue.MaxPending),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize the transcription engine
	eng, err := buildEngine(cfg.Engine, appMetrics)
	if err != nil {
		logger.Error("Failed to create transcription engine", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Transcription engine initialized",
		slog.String("backend", cfg.Engine.Backend),
	)

	overflowPolicy, err := pipeline.ParseOverflowPolicy(cfg.Queue.OverflowPolicy)
	if err != nil {
		logger.Error("Invalid queue overflow policy", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create the pipeline manager configuration
	managerConfig := pipeline.ManagerConfig{
		Session: pipeline.SessionConfig{
			SampleRate:    cfg.Audio.SampleRate,
			RingCapacity:  cfg.Audio.RingCapacity(),
			WindowSize:    cfg.Audio.WindowSize,
			DrainInterval: drainInterval,
			IngestBacklog: ingestBacklog,
			VADThreshold:  cfg.VAD.Threshold,
			Segmenter: pipeline.SegmenterConfig{
				MinDuration:        cfg.Segmenter.GetMinDuration(),
				MaxDuration:        cfg.Segmenter.GetMaxDuration(),
				MinSpeechDuration:  cfg.Segmenter.GetMinSpeechDuration(),
				MinSilenceDuration: cfg.Segmenter.GetMinSilenceDuration(),
				SampleRate:         cfg.Audio.SampleRate,
			},
		},
		MaxPending:     cfg.Queue.MaxPending,
		OverflowPolicy: overflowPolicy,
		SessionTimeout: cfg.Audio.GetStreamTimeoutDuration(),
		EngineTimeout:  cfg.Engine.GetTimeoutDuration(),
		Metrics:        appMetrics,
	}

	// Initialize pipeline manager. Transcripts are emitted through the
	// structured log by the manager itself.
	manager, err := pipeline.NewManager(eng, managerConfig, logger, nil)
	if err != nil {
		logger.Error("Failed to create pipeline manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Pipeline manager initialized",
		slog.Duration("stream_timeout", cfg.Audio.GetStreamTimeoutDuration()),
		slog.Int("queue_max_pending", cfg.Queue.MaxPending),
		slog.String("overflow_policy", overflowPolicy.String()),
	)

	// Initialize UDP server
	udpServer := server.NewUDPServer(&cfg.Server, logger, manager, appMetrics)
	logger.Info("UDP server initialized")

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, manager, udpServer, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Start UDP server
	if err := udpServer.Start(); err != nil {
		logger.Error("Failed to start UDP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start HTTP server (if enabled)
	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("udp_address", fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.UDPPort)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop UDP server (stop accepting new packets)
	if err := udpServer.Stop(); err != nil {
		logger.Error("Error stopping UDP server", slog.String("error", err.Error()))
	}

	// Stop the pipeline (flush sessions, stop the worker, close the engine)
	manager.Stop()

	// Get final statistics
	stats := udpServer.GetStatistics()
	logger.Info("Final server statistics",
		slog.Uint64("packets_received", stats.PacketsReceived),
		slog.Uint64("packets_processed", stats.PacketsProcessed),
		slog.Uint64("parse_errors", stats.ParseErrors),
		slog.Uint64("active_streams", stats.ActiveStreams),
	)

	logger.Info("Service stopped")
}

// buildEngine creates the configured transcription engine backend.
func buildEngine(cfg config.EngineConfig, m *metrics.Metrics) (engine.Engine, error) {
	switch cfg.Backend {
	case "native":
		opts := []whisper.Option{}
		if cfg.Language != "" {
			opts = append(opts, whisper.WithLanguage(cfg.Language))
		}
		if cfg.Threads > 0 {
			opts = append(opts, whisper.WithThreads(cfg.Threads))
		}
		eng, err := whisper.New(cfg.ModelPath, opts...)
		if err != nil {
			return nil, err
		}
		return eng, nil
	case "remote":
		client, err := remote.NewClient(remote.Config{
			Endpoint:      cfg.Endpoint,
			APIKey:        cfg.APIKey,
			Timeout:       cfg.GetTimeoutDuration(),
			MaxRetries:    cfg.MaxRetries,
			MaxConcurrent: cfg.MaxConcurrent,
			Model:         cfg.Model,
			Metrics:       m,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown engine backend: %s", cfg.Backend)
	}
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
