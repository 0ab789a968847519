// Package voices maps speaker labels to TTS voice definitions.
//
// The built-in roster mirrors the product's two-booth setup; an optional
// JSON roster file overrides it and is hot-reloaded on change.
package voices

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/snarg/booth-engine/internal/transcript"
)

// Voice selects an upstream voice and optionally pins a model.
type Voice struct {
	VoiceID string `json:"voice_id"`
	ModelID string `json:"model_id,omitempty"`
}

// Roster resolves speaker labels to voices. Safe for concurrent use.
type Roster struct {
	mu       sync.RWMutex
	speakers map[string]Voice
}

// Defaults is the built-in speaker→voice table.
func Defaults() map[string]Voice {
	return map[string]Voice{
		"PlayByPlay": {VoiceID: "JBFqnCBsd6RMkjVDRZzb"},
		"Color":      {VoiceID: "EXAVITQu4vr4xnSDxMaL"},
		"Analyst":    {VoiceID: "JBFqnCBsd6RMkjVDRZzb"},
		"Speaker":    {VoiceID: "JBFqnCBsd6RMkjVDRZzb"},
	}
}

// NewRoster returns a roster seeded with the defaults.
func NewRoster() *Roster {
	return &Roster{speakers: Defaults()}
}

// Resolve picks the voice for a speaker label: exact label match first,
// then the label's classified role, then the generic speaker entry.
func (r *Roster) Resolve(speaker string) Voice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.speakers[speaker]; ok {
		return v
	}
	if v, ok := r.speakers[string(transcript.Classify(speaker))]; ok {
		return v
	}
	return r.speakers["Speaker"]
}

// LoadFile replaces the roster from a JSON file of {"speaker": {"voice_id": ...}}.
// Entries missing from the file fall back to the defaults, so a partial
// roster file only overrides what it names.
func (r *Roster) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded map[string]Voice
	if err := json.Unmarshal(b, &loaded); err != nil {
		return err
	}

	merged := Defaults()
	for k, v := range loaded {
		merged[k] = v
	}

	r.mu.Lock()
	r.speakers = merged
	r.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current table, for the health endpoint.
func (r *Roster) Snapshot() map[string]Voice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Voice, len(r.speakers))
	for k, v := range r.speakers {
		out[k] = v
	}
	return out
}
