package api

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/booth-engine/internal/audio"
	"github.com/snarg/booth-engine/internal/config"
	"github.com/snarg/booth-engine/internal/events"
	"github.com/snarg/booth-engine/internal/playback"
	"github.com/snarg/booth-engine/internal/timeline"
	"github.com/snarg/booth-engine/internal/tts"
	"github.com/snarg/booth-engine/internal/voices"
)

// stubProvider returns canned audio without touching the network.
type stubProvider struct {
	data  []byte
	err   error
	calls int
}

func (s *stubProvider) Synthesize(_ context.Context, _ tts.Request) (*tts.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &tts.Result{Bytes: s.data, ContentType: "audio/mpeg"}, nil
}

func (s *stubProvider) Name() string  { return "stub" }
func (s *stubProvider) Model() string { return "stub-model" }

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:         ":0",
		ReadTimeout:      time.Second,
		WriteTimeout:     10 * time.Second,
		IdleTimeout:      10 * time.Second,
		OutputFormat:     "mp3_44100_128",
		TTSTimeout:       time.Second,
		TTSMaxRetries:    2,
		TTSRetryBase:     time.Millisecond,
		TTSRetryCap:      2 * time.Millisecond,
		GlobalGapSeconds: 10,
	}
}

// newTestServer wires a full server around the given provider and returns
// the httptest server plus the live components for inspection.
func newTestServer(t *testing.T, provider tts.Provider) (*httptest.Server, Components) {
	t.Helper()
	store, err := audio.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	cache := tts.NewCache(1 << 20)
	roster := voices.NewRoster()
	tl := timeline.NewStore()
	bus := events.NewBus(32)
	pool := tts.NewWorkerPool(tts.WorkerPoolOptions{
		Provider:     provider,
		Cache:        cache,
		Store:        store,
		Roster:       roster,
		OutputFormat: "mp3_44100_128",
		Workers:      1,
		QueueSize:    64,
		Timeout:      time.Second,
		Retry:        tts.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		OnResolved: func(id string, res tts.Resolved) {
			tl.Resolve(id, res.URL, res.Duration, res.Truncated, res.Err)
		},
		Log: zerolog.Nop(),
	})
	pool.Start()
	t.Cleanup(pool.Stop)

	sink := playback.NewTimerSink(func(string) (float64, error) { return 5.0, nil })
	transport := playback.NewTransport(sink, zerolog.Nop())

	c := Components{
		Provider:   provider,
		Cache:      cache,
		AudioStore: store,
		Roster:     roster,
		Timeline:   tl,
		Pool:       pool,
		Bus:        bus,
		Transport:  transport,
		Version:    "test",
		StartTime:  time.Now(),
	}
	srv := NewServer(testConfig(), c, zerolog.Nop())
	ts := httptest.NewServer(srv.http.Handler)
	t.Cleanup(ts.Close)
	return ts, c
}
