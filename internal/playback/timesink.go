package playback

import (
	"sync"
	"time"
)

// ProbeFunc resolves an audio source to its duration in seconds. The server
// wires this to the audio store's WAV probe; unknown sources report 0.
type ProbeFunc func(src string) (float64, error)

// TimerSink is a wall-clock simulation of an audio element, used by the
// server-side shared transport: it does not produce sound, it only keeps a
// position advancing in real time and fires the ended callback when the
// position reaches the probed duration.
type TimerSink struct {
	mu       sync.Mutex
	probe    ProbeFunc
	src      string
	duration float64
	pos      float64 // position at the last state change
	started  time.Time
	playing  bool
	endTimer *time.Timer
	onEnded  func()
}

// NewTimerSink creates a paused, empty sink.
func NewTimerSink(probe ProbeFunc) *TimerSink {
	return &TimerSink{probe: probe}
}

// Load assigns a source and probes its duration. The readiness callback
// fires synchronously: a simulated sink is always immediately ready.
func (s *TimerSink) Load(src string, onReady func()) {
	s.mu.Lock()
	s.stopEndTimerLocked()
	s.src = src
	s.playing = false
	s.pos = 0
	s.duration = 0
	if s.probe != nil {
		if d, err := s.probe(src); err == nil {
			s.duration = d
		}
	}
	s.mu.Unlock()

	if onReady != nil {
		onReady()
	}
}

// Play starts the clock. Restarting at the end replays from the end (the
// ended signal fires immediately via the zero-length timer).
func (s *TimerSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing {
		return nil
	}
	s.playing = true
	s.started = time.Now()
	s.armEndTimerLocked()
	return nil
}

// Pause freezes the clock.
func (s *TimerSink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return
	}
	s.pos = s.currentLocked()
	s.playing = false
	s.stopEndTimerLocked()
}

// Seek repositions the clock, clamped to [0, duration].
func (s *TimerSink) Seek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	if s.duration > 0 && seconds > s.duration {
		seconds = s.duration
	}
	s.pos = seconds
	if s.playing {
		s.started = time.Now()
		s.armEndTimerLocked()
	}
}

// CurrentTime returns the simulated position.
func (s *TimerSink) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

// Duration returns the probed source duration.
func (s *TimerSink) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// Paused reports whether the clock is frozen.
func (s *TimerSink) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.playing
}

// SetOnEnded registers the ended callback. It is invoked without the sink's
// lock held, so it may call back into the sink.
func (s *TimerSink) SetOnEnded(fn func()) {
	s.mu.Lock()
	s.onEnded = fn
	s.mu.Unlock()
}

func (s *TimerSink) currentLocked() float64 {
	if !s.playing {
		return s.pos
	}
	cur := s.pos + time.Since(s.started).Seconds()
	if s.duration > 0 && cur > s.duration {
		cur = s.duration
	}
	return cur
}

func (s *TimerSink) armEndTimerLocked() {
	s.stopEndTimerLocked()
	if s.duration <= 0 {
		return
	}
	remaining := time.Duration((s.duration - s.pos) * float64(time.Second))
	if remaining < 0 {
		remaining = 0
	}
	s.endTimer = time.AfterFunc(remaining, s.handleEnd)
}

func (s *TimerSink) stopEndTimerLocked() {
	if s.endTimer != nil {
		s.endTimer.Stop()
		s.endTimer = nil
	}
}

func (s *TimerSink) handleEnd() {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	s.pos = s.duration
	s.playing = false
	s.endTimer = nil
	fn := s.onEnded
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}
