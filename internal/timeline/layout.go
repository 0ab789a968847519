// Package timeline lays transcript segments out on parallel tracks and keeps
// the per-track non-overlap invariant as audio resolves and clips move.
package timeline

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/snarg/booth-engine/internal/timecode"
	"github.com/snarg/booth-engine/internal/transcript"
)

const (
	// Epsilon nudges a computed start that would tie or precede its track
	// predecessor, guaranteeing strictly increasing start times. It is a
	// tie-break, not an audible-gap promise.
	Epsilon = 0.04

	// DurationFloor is the placeholder clip length until audio resolves,
	// and the fallback when probing fails. Keeps layout math away from
	// zero-length clips.
	DurationFloor = 0.1

	// DefaultGlobalGap is the spacing inserted by the global overlap policy.
	DefaultGlobalGap = 10.0
)

// Status of a clip's audio.
const (
	StatusPending = "pending"
	StatusReady   = "ready"
	StatusFailed  = "failed"
)

// Clip is one synthesized audio unit placed on a track.
type Clip struct {
	ID        string          `json:"id"`
	Speaker   string          `json:"speaker"`
	Role      transcript.Role `json:"role"`
	Start     float64         `json:"start"`
	Duration  float64         `json:"duration"`
	Text      string          `json:"text"`
	URL       string          `json:"url,omitempty"` // empty until TTS resolves
	Status    string          `json:"status"`
	Truncated bool            `json:"truncated,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// End returns the clip's end time.
func (c Clip) End() float64 { return c.Start + c.Duration }

// Track is a lane of non-overlapping clips, conventionally one per role.
// Cross-track overlap is allowed: that is the dual-commentary use case.
type Track struct {
	ID    string `json:"id"` // "A" or "B"
	Name  string `json:"name"`
	Clips []Clip `json:"clips"`
}

// Build converts parsed transcript lines into two laid-out tracks:
// play-by-play on A, color on B. Lines with a timecode anchor there; lines
// without one start at their track's running end. A malformed timecode
// fails the whole build.
func Build(lines []transcript.Line) ([]Track, error) {
	tracks := []Track{
		{ID: "A", Name: "Play-by-play"},
		{ID: "B", Name: "Color"},
	}
	lastStart := map[string]float64{} // track id → most recent computed start
	trackEnd := map[string]float64{}  // track id → running end for untimed lines
	placed := map[string]bool{}

	for i, l := range lines {
		role := transcript.Classify(l.Speaker)
		ti := 0
		if role == transcript.RoleColor {
			ti = 1
		}
		id := tracks[ti].ID

		var start float64
		if l.Time != "" {
			s, err := timecode.Parse(l.Time)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i, err)
			}
			start = s
		} else {
			start = trackEnd[id]
		}

		// Strict ordering within a track: ties and regressions advance by epsilon.
		if placed[id] && start <= lastStart[id]+1e-6 {
			start = lastStart[id] + Epsilon
		}

		clip := Clip{
			ID:       uuid.NewString(),
			Speaker:  l.Speaker,
			Role:     role,
			Start:    start,
			Duration: DurationFloor,
			Text:     l.Text,
			Status:   StatusPending,
		}
		tracks[ti].Clips = append(tracks[ti].Clips, clip)
		lastStart[id] = start
		trackEnd[id] = math.Max(trackEnd[id], clip.End())
		placed[id] = true
	}

	for i := range tracks {
		normalizeTrack(&tracks[i])
	}
	return tracks, nil
}

// sortClips orders a track's clips by start without touching their positions.
func sortClips(t *Track) {
	sort.SliceStable(t.Clips, func(i, j int) bool {
		return t.Clips[i].Start < t.Clips[j].Start
	})
}

// normalizeTrack restores the track invariant: clips sorted by start, each
// starting at or after its predecessor's end. Conflicts resolve by shifting
// later clips forward.
func normalizeTrack(t *Track) {
	sortClips(t)
	for i := 1; i < len(t.Clips); i++ {
		prevEnd := t.Clips[i-1].End()
		if t.Clips[i].Start < prevEnd {
			t.Clips[i].Start = prevEnd
		}
	}
}

// SnapNonOverlap clamps a proposed start for the moving clip into the open
// gap between its temporal neighbors on the same track. When the gap cannot
// fit the clip the result collapses to the predecessor's end: the clip sits
// flush against it, and no other clip is displaced.
func SnapNonOverlap(t Track, clipID string, proposed float64) (float64, error) {
	moving, ok := lo.Find(t.Clips, func(c Clip) bool { return c.ID == clipID })
	if !ok {
		return 0, fmt.Errorf("clip %s not on track %s", clipID, t.ID)
	}

	others := lo.Filter(t.Clips, func(c Clip, _ int) bool { return c.ID != clipID })
	sort.Slice(others, func(i, j int) bool { return others[i].Start < others[j].Start })

	proposed = math.Max(0, proposed)

	// A proposal landing inside an occupied span pushes forward to that
	// clip's end; walking in start order resolves chains of flush clips.
	for _, c := range others {
		if c.Start <= proposed && proposed < c.End() {
			proposed = c.End()
		}
	}

	// Clamp into the gap around the (possibly advanced) proposal. When the
	// gap is too small for the clip, the result collapses to the
	// predecessor's end: flush placement, no displacement of other clips.
	prevEnd := 0.0
	nextStart := math.Inf(1)
	for _, c := range others {
		if c.End() <= proposed {
			prevEnd = math.Max(prevEnd, c.End())
		} else if c.Start >= proposed {
			nextStart = math.Min(nextStart, c.Start)
		}
	}

	return math.Max(prevEnd, math.Min(proposed, nextStart-moving.Duration)), nil
}

// ResolveOverlapsGlobally flattens every clip across every track into one
// globally ordered sequence with a fixed gap between consecutive clips, then
// partitions it back into tracks. This is the alternate, mutually exclusive
// overlap policy used by the single-transport splice view: global
// exclusivity instead of per-track snapping.
func ResolveOverlapsGlobally(tracks []Track, gap float64) []Track {
	type flat struct {
		Clip
		trackIdx int
	}
	var all []flat
	for ti, t := range tracks {
		for _, c := range t.Clips {
			all = append(all, flat{Clip: c, trackIdx: ti})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].Duration < all[j].Duration
	})

	lastEnd := 0.0
	for i := range all {
		if i > 0 {
			all[i].Start = math.Max(all[i].Start, lastEnd+gap)
		}
		lastEnd = all[i].End()
	}

	out := make([]Track, len(tracks))
	for i, t := range tracks {
		out[i] = Track{ID: t.ID, Name: t.Name}
	}
	for _, f := range all {
		out[f.trackIdx].Clips = append(out[f.trackIdx].Clips, f.Clip)
	}
	return out
}

// TrackOffset is the minimum anchored start among a track's clips, the
// constant that aligns the track's local playback clock to the shared
// transcript clock.
func TrackOffset(t Track) float64 {
	if len(t.Clips) == 0 {
		return 0
	}
	min := math.Inf(1)
	for _, c := range t.Clips {
		if c.Start < min {
			min = c.Start
		}
	}
	return min
}
