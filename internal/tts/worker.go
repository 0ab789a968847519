package tts

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/booth-engine/internal/audio"
	"github.com/snarg/booth-engine/internal/metrics"
	"github.com/snarg/booth-engine/internal/voices"
)

// Job is one timeline segment awaiting synthesis.
type Job struct {
	SegmentID string
	Speaker   string
	Text      string
}

// Resolved is the outcome of a job, delivered to the timeline layer.
// Err is set when synthesis failed terminally; the segment then renders
// without audio and is skipped during playback.
type Resolved struct {
	URL       string
	Duration  float64 // 0 when unknown; the layout applies its floor
	Truncated bool
	Err       string
}

// ResolveFunc receives job outcomes. Implementations must tolerate stale
// segment IDs: a rebuild discards the old timeline, and late results for it
// are simply dropped.
type ResolveFunc func(segmentID string, res Resolved)

// EventPublishFunc is a callback for publishing SSE events.
type EventPublishFunc func(eventType string, payload map[string]any)

// QueueStats reports the current state of the synthesis queue.
type QueueStats struct {
	Pending   int   `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// WorkerPoolOptions configures the synthesis worker pool.
type WorkerPoolOptions struct {
	Provider     Provider
	Cache        *Cache
	Store        *audio.Store
	Roster       *voices.Roster
	OutputFormat string
	Workers      int
	QueueSize    int
	Pacing       time.Duration // delay between dispatches, for provider rate limits
	Timeout      time.Duration // per-job budget including retries
	Retry        RetryPolicy
	OnResolved   ResolveFunc
	PublishEvent EventPublishFunc
	Log          zerolog.Logger
}

// WorkerPool runs a small number of synthesis workers over a shared queue.
// Concurrency is deliberately low (one or two workers) with a fixed pacing
// delay between dispatches, matching the provider's rate limits.
type WorkerPool struct {
	jobs   chan Job
	opts   WorkerPoolOptions
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	completed atomic.Int64
	failed    atomic.Int64
}

// NewWorkerPool creates a new synthesis worker pool.
func NewWorkerPool(opts WorkerPoolOptions) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobs:   make(chan Job, opts.QueueSize),
		opts:   opts,
		log:    opts.Log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.opts.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.log.Info().Int("workers", wp.opts.Workers).Int("queue_size", wp.opts.QueueSize).Msg("tts worker pool started")
}

// Stop signals workers to drain and waits for completion.
func (wp *WorkerPool) Stop() {
	close(wp.jobs)
	wp.wg.Wait()
	wp.cancel()
	wp.log.Info().
		Int64("completed", wp.completed.Load()).
		Int64("failed", wp.failed.Load()).
		Msg("tts worker pool stopped")
}

// Enqueue adds a job to the synthesis queue. Returns false if the queue is full.
func (wp *WorkerPool) Enqueue(j Job) bool {
	select {
	case wp.jobs <- j:
		return true
	default:
		return false
	}
}

// Stats returns current queue statistics.
func (wp *WorkerPool) Stats() QueueStats {
	return QueueStats{
		Pending:   len(wp.jobs),
		Completed: wp.completed.Load(),
		Failed:    wp.failed.Load(),
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log := wp.log.With().Int("worker", id).Logger()

	for job := range wp.jobs {
		if err := wp.processJob(log, job); err != nil {
			wp.failed.Add(1)
			log.Warn().Err(err).
				Str("segment", job.SegmentID).
				Str("speaker", job.Speaker).
				Msg("synthesis failed")
			if wp.opts.OnResolved != nil {
				wp.opts.OnResolved(job.SegmentID, Resolved{Err: err.Error()})
			}
			wp.publish("segment", map[string]any{
				"segment_id": job.SegmentID,
				"status":     "failed",
				"error":      err.Error(),
			})
		} else {
			wp.completed.Add(1)
		}
		if wp.opts.Pacing > 0 {
			select {
			case <-wp.ctx.Done():
			case <-time.After(wp.opts.Pacing):
			}
		}
	}
}

func (wp *WorkerPool) processJob(log zerolog.Logger, job Job) error {
	if wp.opts.Provider == nil {
		return ErrNoProvider
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(wp.ctx, wp.opts.Timeout)
	defer cancel()

	text, truncated := Truncate(strings.TrimSpace(job.Text))
	if truncated {
		metrics.TTSTextTruncatedTotal.Inc()
		log.Warn().Str("segment", job.SegmentID).Int("max_chars", MaxTextChars).Msg("text truncated before synthesis")
	}

	voice := wp.opts.Roster.Resolve(job.Speaker)
	req := Request{
		Text:         text,
		VoiceID:      voice.VoiceID,
		ModelID:      voice.ModelID,
		OutputFormat: wp.opts.OutputFormat,
	}

	// 1. Cache lookup
	key := CacheKey(req.VoiceID, req.ModelID, req.OutputFormat, req.Text)
	data, hit := wp.opts.Cache.Get(key)
	if hit {
		metrics.TTSCacheHitsTotal.Inc()
	} else {
		metrics.TTSCacheMissesTotal.Inc()

		// 2. Synthesize with retry
		res, err := Do(ctx, wp.opts.Retry, func() (*Result, error) {
			metrics.TTSRequestsTotal.WithLabelValues(wp.opts.Provider.Name()).Inc()
			return wp.opts.Provider.Synthesize(ctx, req)
		})
		if err != nil {
			return err
		}

		// 3. Normalize to bytes: some providers hand back a URL instead
		data = res.Bytes
		if data == nil {
			if res.URL == "" {
				return ErrNoAudio
			}
			data, err = Do(ctx, wp.opts.Retry, func() ([]byte, error) {
				return FetchURL(ctx, res.URL, wp.opts.Timeout)
			})
			if err != nil {
				return err
			}
		}
		wp.opts.Cache.Put(key, data)
	}

	// 4. Store locally so the frontend can fetch it by URL
	name, err := wp.opts.Store.Put(data, wp.opts.OutputFormat)
	if err != nil {
		return err
	}

	// 5. Probe duration; non-WAV or broken audio falls back to the layout floor
	dur := 0.0
	if w, derr := audio.DecodeWAV(data); derr == nil {
		dur = w.Duration()
	}

	resolved := Resolved{
		URL:       wp.opts.Store.URLPath(name),
		Duration:  dur,
		Truncated: truncated,
	}
	if wp.opts.OnResolved != nil {
		wp.opts.OnResolved(job.SegmentID, resolved)
	}

	wp.publish("segment", map[string]any{
		"segment_id":  job.SegmentID,
		"status":      "ready",
		"url":         resolved.URL,
		"duration":    dur,
		"truncated":   truncated,
		"cache_hit":   hit,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	log.Debug().
		Str("segment", job.SegmentID).
		Bool("cache_hit", hit).
		Float64("audio_seconds", dur).
		Dur("took", time.Since(start)).
		Msg("segment synthesized")

	return nil
}

func (wp *WorkerPool) publish(eventType string, payload map[string]any) {
	if wp.opts.PublishEvent != nil {
		wp.opts.PublishEvent(eventType, payload)
	}
}
