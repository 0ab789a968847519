package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/snarg/booth-engine/internal/audio"
	"github.com/snarg/booth-engine/internal/config"
	"github.com/snarg/booth-engine/internal/events"
	"github.com/snarg/booth-engine/internal/metrics"
	"github.com/snarg/booth-engine/internal/playback"
	"github.com/snarg/booth-engine/internal/timeline"
	"github.com/snarg/booth-engine/internal/tts"
	"github.com/snarg/booth-engine/internal/voices"
)

// Components bundles the engine pieces the HTTP surface exposes.
type Components struct {
	Provider   tts.Provider      // nil when no API key configured
	Dialog     *tts.DialogClient // nil when no API key configured
	Cache      *tts.Cache
	AudioStore *audio.Store
	Roster     *voices.Roster
	Timeline   *timeline.Store
	Pool       *tts.WorkerPool
	Bus        *events.Bus
	Transport  *playback.Transport
	Version    string
	StartTime  time.Time
}

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(cfg *config.Config, c Components, log zerolog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(log))
	r.Use(CORS)
	r.Use(metrics.InstrumentHandler)

	// Health and metrics — no auth
	health := NewHealthHandler(c.Pool, c.Cache, c.Roster, c.Provider != nil, c.Dialog != nil, c.Version, c.StartTime)
	r.Get("/api/v1/health", health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	// Synthesized audio is fetched by bare <audio> elements; no auth
	NewAudioHandler(c.AudioStore).Routes(r)

	// Authenticated API routes
	retry := tts.RetryPolicy{
		MaxAttempts: cfg.TTSMaxRetries,
		BaseDelay:   cfg.TTSRetryBase,
		MaxDelay:    cfg.TTSRetryCap,
		Jitter:      cfg.TTSRetryJitter,
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuth(cfg.AuthToken))
		NewTTSHandler(c.Provider, c.Dialog, c.Cache, c.AudioStore, c.Roster, retry, cfg.OutputFormat, cfg.TTSTimeout).Routes(r)
		NewTimelineHandler(c.Timeline, c.Pool, c.AudioStore, c.Bus, cfg.GlobalGapSeconds).Routes(r)
		NewTransportHandler(c.Transport, c.Timeline).Routes(r)
		NewEventsHandler(c.Bus).Routes(r)
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
