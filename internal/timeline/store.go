package timeline

import (
	"fmt"
	"sync"
)

// Store holds the process-lifetime timeline: the tracks built from the most
// recent transcript submission. A rebuild replaces everything; late TTS
// results for discarded clips are dropped because their IDs no longer
// resolve.
type Store struct {
	mu     sync.RWMutex
	tracks []Track
}

// NewStore returns an empty timeline store.
func NewStore() *Store {
	return &Store{}
}

// Replace installs a freshly built timeline, discarding the previous one.
func (s *Store) Replace(tracks []Track) {
	s.mu.Lock()
	s.tracks = tracks
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the current tracks.
func (s *Store) Snapshot() []Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Track, len(s.tracks))
	for i, t := range s.tracks {
		out[i] = Track{ID: t.ID, Name: t.Name, Clips: append([]Clip(nil), t.Clips...)}
	}
	return out
}

// Clip returns a copy of the clip with the given ID.
func (s *Store) Clip(id string) (Clip, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ti, ci, ok := s.locate(id)
	if !ok {
		return Clip{}, false
	}
	return s.tracks[ti].Clips[ci], true
}

// Resolve attaches a TTS outcome to a clip. Returns false when the clip no
// longer exists (the timeline was rebuilt while the job was in flight).
// Real durations can collide with neighbors, so the track is re-normalized:
// later clips shift forward, never earlier ones back.
func (s *Store) Resolve(id, url string, duration float64, truncated bool, errMsg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ti, ci, ok := s.locate(id)
	if !ok {
		return false
	}

	clip := &s.tracks[ti].Clips[ci]
	if errMsg != "" {
		clip.Status = StatusFailed
		clip.Error = errMsg
		return true
	}
	clip.URL = url
	clip.Status = StatusReady
	clip.Truncated = truncated
	if duration > 0 {
		clip.Duration = duration
	} else {
		clip.Duration = DurationFloor
	}
	normalizeTrack(&s.tracks[ti])
	return true
}

// MoveClip applies a drag: the proposed start is snapped into the gap
// between the clip's neighbors and the track re-sorted. Returns the
// adjusted start actually applied.
func (s *Store) MoveClip(id string, proposed float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ti, ci, ok := s.locate(id)
	if !ok {
		return 0, fmt.Errorf("clip %s not found", id)
	}

	adjusted, err := SnapNonOverlap(s.tracks[ti], id, proposed)
	if err != nil {
		return 0, err
	}
	s.tracks[ti].Clips[ci].Start = adjusted
	// A drag moves only the dragged clip. When the snap collapsed into a
	// gap too small for it, the clip sits flush against its predecessor and
	// may overlap its successor; neighbors are never pushed aside.
	sortClips(&s.tracks[ti])
	return adjusted, nil
}

func (s *Store) locate(id string) (trackIdx, clipIdx int, ok bool) {
	for ti, t := range s.tracks {
		for ci, c := range t.Clips {
			if c.ID == id {
				return ti, ci, true
			}
		}
	}
	return 0, 0, false
}
