package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/booth-engine/internal/api"
	"github.com/snarg/booth-engine/internal/audio"
	"github.com/snarg/booth-engine/internal/config"
	"github.com/snarg/booth-engine/internal/events"
	"github.com/snarg/booth-engine/internal/playback"
	"github.com/snarg/booth-engine/internal/timeline"
	"github.com/snarg/booth-engine/internal/tts"
	"github.com/snarg/booth-engine/internal/voices"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file")
	flag.StringVar(&overrides.HTTPAddr, "addr", "", "http listen address")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (trace..error)")
	flag.StringVar(&overrides.AudioDir, "audio-dir", "", "directory for synthesized audio")
	flag.StringVar(&overrides.VoicesFile, "voices", "", "voice roster JSON file")
	flag.Parse()

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("booth-engine starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Audio store
	store, err := audio.NewStore(cfg.AudioDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create audio store")
	}

	// Voice roster, optionally hot-reloaded from a JSON file
	roster := voices.NewRoster()
	if cfg.VoicesFile != "" {
		voicesLog := log.With().Str("component", "voices").Logger()
		if err := roster.LoadFile(cfg.VoicesFile); err != nil {
			log.Warn().Err(err).Str("file", cfg.VoicesFile).Msg("voice roster load failed, using defaults")
		}
		go func() {
			if err := roster.Watch(ctx, cfg.VoicesFile, voicesLog); err != nil {
				voicesLog.Warn().Err(err).Msg("voice roster watcher stopped")
			}
		}()
	}

	// TTS providers
	var provider tts.Provider
	if cfg.ElevenLabsAPIKey != "" {
		provider = tts.NewElevenLabsClient(tts.ElevenLabsConfig{
			APIKey:       cfg.ElevenLabsAPIKey,
			BaseURL:      cfg.ElevenLabsBaseURL,
			ModelID:      cfg.ElevenLabsModel,
			OutputFormat: cfg.OutputFormat,
			Timeout:      cfg.TTSTimeout,
		})
	} else {
		log.Warn().Msg("ELEVENLABS_API_KEY not set, single synthesis disabled")
	}
	var dialog *tts.DialogClient
	if cfg.FalAPIKey != "" {
		dialog = tts.NewDialogClient(tts.DialogConfig{
			APIKey:  cfg.FalAPIKey,
			BaseURL: cfg.DialogBaseURL,
			Timeout: cfg.TTSTimeout,
		})
	} else {
		log.Warn().Msg("FAL_API_KEY not set, dialog rendering disabled")
	}

	// Shared state
	cache := tts.NewCache(cfg.CacheBudgetBytes())
	tl := timeline.NewStore()
	bus := events.NewBus(cfg.EventRingSize)

	// Synthesis worker pool feeding the timeline
	pool := tts.NewWorkerPool(tts.WorkerPoolOptions{
		Provider:     provider,
		Cache:        cache,
		Store:        store,
		Roster:       roster,
		OutputFormat: cfg.OutputFormat,
		Workers:      cfg.TTSWorkers,
		QueueSize:    cfg.TTSQueueSize,
		Pacing:       cfg.TTSPacing,
		Timeout:      cfg.TTSTimeout,
		Retry: tts.RetryPolicy{
			MaxAttempts: cfg.TTSMaxRetries,
			BaseDelay:   cfg.TTSRetryBase,
			MaxDelay:    cfg.TTSRetryCap,
			Jitter:      cfg.TTSRetryJitter,
		},
		OnResolved: func(id string, res tts.Resolved) {
			tl.Resolve(id, res.URL, res.Duration, res.Truncated, res.Err)
		},
		PublishEvent: func(eventType string, payload map[string]any) {
			bus.Publish(eventType, payload)
		},
		Log: log.With().Str("component", "tts").Logger(),
	})
	pool.Start()
	defer pool.Stop()

	// Shared server-side transport over a simulated clock; position changes
	// reach clients through the event stream.
	sink := playback.NewTimerSink(func(src string) (float64, error) {
		data, err := store.Read(audioFileName(src))
		if err != nil {
			return 0, err
		}
		wav, err := audio.DecodeWAV(data)
		if err != nil {
			return 0, err
		}
		return wav.Duration(), nil
	})
	transport := playback.NewTransport(sink, log.With().Str("component", "transport").Logger())
	transport.OnChange(func(snap playback.Snapshot) {
		bus.Publish("transport", snap)
	})

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(cfg, api.Components{
		Provider:   provider,
		Dialog:     dialog,
		Cache:      cache,
		AudioStore: store,
		Roster:     roster,
		Timeline:   tl,
		Pool:       pool,
		Bus:        bus,
		Transport:  transport,
		Version:    version,
		StartTime:  startTime,
	}, httpLog)

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("booth-engine stopped")
}

// audioFileName strips the serving prefix from a locally stored audio URL.
func audioFileName(src string) string {
	const prefix = "/audio/"
	if len(src) > len(prefix) && src[:len(prefix)] == prefix {
		return src[len(prefix):]
	}
	return src
}
