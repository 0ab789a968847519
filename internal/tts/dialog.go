package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/snarg/booth-engine/internal/transcript"
	"github.com/snarg/booth-engine/internal/voices"
)

const playDialogBaseURL = "https://fal.run/fal-ai/playai"

// DialogConfig configures the dialog-rendering client.
type DialogConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// DialogClient calls a Play-style dialog TTS endpoint that renders a whole
// multi-speaker script in one request and answers with a JSON envelope
// carrying a URL to the audio. Implements the Provider interface for
// single-turn requests and adds RenderDialog for full scripts.
type DialogClient struct {
	cfg DialogConfig
	rc  *resty.Client
}

// NewDialogClient creates a new dialog TTS client.
func NewDialogClient(cfg DialogConfig) *DialogClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = playDialogBaseURL
	}
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", "Key "+cfg.APIKey)
	return &DialogClient{cfg: cfg, rc: rc}
}

// Name returns the provider name.
func (c *DialogClient) Name() string { return "playdialog" }

// Model returns the model identifier.
func (c *DialogClient) Model() string { return "playai/tts/dialog" }

type dialogVoice struct {
	Voice      string `json:"voice"`
	TurnPrefix string `json:"turn_prefix,omitempty"`
}

// Synthesize renders a single turn through the dialog endpoint.
func (c *DialogClient) Synthesize(ctx context.Context, req Request) (*Result, error) {
	return c.call(ctx, req.Text, []dialogVoice{{Voice: req.VoiceID}}, req.Seed)
}

// RenderDialog assembles a turn-prefixed script from transcript lines and
// renders it in one upstream call. Line text over the character budget is
// truncated; the count of truncated lines is returned so callers can warn.
func (c *DialogClient) RenderDialog(ctx context.Context, lines []transcript.Line, roster *voices.Roster, seed *int64) (*Result, int, error) {
	var sb strings.Builder
	truncated := 0
	seen := map[transcript.Role]string{}

	for _, l := range lines {
		text, cut := Truncate(l.Text)
		if cut {
			truncated++
		}
		role := transcript.Classify(l.Speaker)
		if _, ok := seen[role]; !ok {
			seen[role] = roster.Resolve(l.Speaker).VoiceID
		}
		fmt.Fprintf(&sb, "%s: %s\n", role, text)
	}

	dv := make([]dialogVoice, 0, len(seen))
	for role, voiceID := range seen {
		dv = append(dv, dialogVoice{Voice: voiceID, TurnPrefix: string(role) + ": "})
	}

	res, err := c.call(ctx, sb.String(), dv, seed)
	if err != nil {
		return nil, truncated, err
	}
	return res, truncated, nil
}

func (c *DialogClient) call(ctx context.Context, input string, dv []dialogVoice, seed *int64) (*Result, error) {
	body := map[string]any{
		"input":           input,
		"voices":          dv,
		"response_format": "url",
		"seed":            seed,
	}

	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/tts/dialog")
	if err != nil {
		return nil, fmt.Errorf("dialog request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, &UpstreamError{Provider: "playdialog", Status: resp.StatusCode(), Detail: string(resp.Body())}
	}

	// Providers nest the URL differently across versions; normalize.
	url := extractAudioURL(resp.Body())
	if url == "" {
		return nil, ErrNoAudio
	}
	return &Result{URL: url}, nil
}

// extractAudioURL digs the audio URL out of the response envelope, trying
// the shapes observed in the wild: audio.url, url, output.audio.url,
// result.audio.url.
func extractAudioURL(body []byte) string {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}

	if u := urlField(env, "url"); u != "" {
		return u
	}
	for _, outer := range []string{"audio", "output", "result"} {
		inner, ok := env[outer]
		if !ok {
			continue
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal(inner, &m); err != nil {
			continue
		}
		if u := urlField(m, "url"); u != "" {
			return u
		}
		if a, ok := m["audio"]; ok {
			var am map[string]json.RawMessage
			if err := json.Unmarshal(a, &am); err == nil {
				if u := urlField(am, "url"); u != "" {
					return u
				}
			}
		}
	}
	return ""
}

func urlField(m map[string]json.RawMessage, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

// FetchURL downloads an audio URL returned in a provider envelope.
func FetchURL(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	resp, err := resty.New().SetTimeout(timeout).R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("download audio: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, &UpstreamError{Provider: "audio-url", Status: resp.StatusCode(), Detail: "download failed"}
	}
	if len(resp.Body()) == 0 {
		return nil, ErrNoAudio
	}
	return resp.Body(), nil
}
