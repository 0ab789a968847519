// Package tts talks to text-to-speech vendors: provider clients, the
// transient-failure retry policy, the byte-budget response cache, and the
// worker pool that resolves timeline segments.
package tts

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"unicode/utf8"
)

// MaxTextChars is the upstream character budget per request. Longer text is
// truncated before submission; callers surface the truncation to the user.
const MaxTextChars = 2800

// Request is one synthesis call.
type Request struct {
	Text         string
	VoiceID      string
	ModelID      string
	OutputFormat string
	Seed         *int64
}

// Result is the normalized audio reference from any provider: either raw
// bytes or a URL to fetch them from, never both.
type Result struct {
	Bytes       []byte
	URL         string
	ContentType string
}

// Provider is the interface for text-to-speech backends.
type Provider interface {
	Synthesize(ctx context.Context, req Request) (*Result, error)
	Name() string  // "elevenlabs", "playdialog"
	Model() string // default model identifier for logs
}

// ErrNoAudio means the upstream call succeeded but returned nothing usable.
var ErrNoAudio = errors.New("tts: upstream returned no audio reference")

// ErrNoProvider means synthesis was requested without a configured backend.
var ErrNoProvider = errors.New("tts: no provider configured")

// UpstreamError is a non-2xx response from a TTS vendor.
type UpstreamError struct {
	Provider string
	Status   int
	Detail   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.Status, e.Detail)
}

// Transient reports whether the failure is worth retrying.
func (e *UpstreamError) Transient() bool {
	return e.Status == 429 || e.Status >= 500
}

// IsTransient matches the retryable-failure signature: rate limiting, server
// errors, and network/timeout conditions. Anything else fails immediately.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Transient()
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range []string{"timeout", "rate", "network", "connection refused", "connection reset"} {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// Truncate enforces the character budget and reports whether text was cut.
// The cut never splits a UTF-8 sequence.
func Truncate(text string) (string, bool) {
	if len(text) <= MaxTextChars {
		return text, false
	}
	cut := MaxTextChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut], true
}
