package tts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io"

// ElevenLabsConfig configures the ElevenLabs TTS client.
type ElevenLabsConfig struct {
	APIKey       string
	BaseURL      string // defaults to the public API
	VoiceID      string // default voice when a request names none
	ModelID      string
	OutputFormat string
	Timeout      time.Duration
}

// ElevenLabsClient calls the ElevenLabs text-to-speech API, which answers
// with raw audio bytes. Implements the Provider interface.
type ElevenLabsClient struct {
	cfg ElevenLabsConfig
	rc  *resty.Client
}

// NewElevenLabsClient creates a new ElevenLabs TTS client.
func NewElevenLabsClient(cfg ElevenLabsConfig) *ElevenLabsClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = elevenLabsBaseURL
	}
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("xi-api-key", cfg.APIKey)
	return &ElevenLabsClient{cfg: cfg, rc: rc}
}

// Name returns the provider name.
func (c *ElevenLabsClient) Name() string { return "elevenlabs" }

// Model returns the default model identifier.
func (c *ElevenLabsClient) Model() string { return c.cfg.ModelID }

// Synthesize sends one text-to-speech request and returns the audio bytes.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, req Request) (*Result, error) {
	voice := req.VoiceID
	if voice == "" {
		voice = c.cfg.VoiceID
	}
	model := req.ModelID
	if model == "" {
		model = c.cfg.ModelID
	}
	format := req.OutputFormat
	if format == "" {
		format = c.cfg.OutputFormat
	}

	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("output_format", format).
		SetBody(map[string]any{
			"text":     req.Text,
			"model_id": model,
		}).
		Post("/v1/text-to-speech/" + voice)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, &UpstreamError{Provider: "elevenlabs", Status: resp.StatusCode(), Detail: string(resp.Body())}
	}

	ct := resp.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "audio/") {
		// Upstream answered 200 with a JSON body instead of audio.
		return nil, fmt.Errorf("%w: content-type %q", ErrNoAudio, ct)
	}
	if len(resp.Body()) == 0 {
		return nil, ErrNoAudio
	}

	return &Result{Bytes: resp.Body(), ContentType: ct}, nil
}
