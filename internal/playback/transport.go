// Package playback implements the transport state machine that drives audio
// sinks through a segment sequence, plus the dual-track variant that keeps
// two sinks aligned to a shared transcript clock.
package playback

import (
	"sync"

	"github.com/rs/zerolog"
)

// State of a transport.
type State string

const (
	StateIdle    State = "idle"    // nothing loaded
	StateLoading State = "loading" // source assigned, awaiting sink readiness
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateEnded   State = "ended" // last playable segment finished
)

// Sink abstracts a single audio output: a browser audio element on the
// client, a TimerSink on the server. Load's readiness callback may fire
// synchronously or from another goroutine.
type Sink interface {
	Load(src string, onReady func())
	Play() error
	Pause()
	Seek(seconds float64)
	CurrentTime() float64
	Duration() float64
	Paused() bool
	SetOnEnded(fn func())
}

// Segment is one playable unit in the transport's sequence. Segments with an
// empty URL (synthesis failed or still pending) are skipped during advance.
type Segment struct {
	ID  string
	URL string
}

// Snapshot is the externally visible transport state.
type Snapshot struct {
	State     State   `json:"state"`
	Index     int     `json:"index"` // -1 when idle/ended
	SegmentID string  `json:"segment_id,omitempty"`
	Position  float64 `json:"position"`
	Duration  float64 `json:"duration"`
}

// Transport plays a segment sequence through one sink, advancing on each
// ended signal. Every load is tagged with a sequence number; asynchronous
// continuations carrying an older number are discarded, which is the sole
// cancellation mechanism for readiness callbacks that outlive a newer load.
type Transport struct {
	mu       sync.Mutex
	sink     Sink
	segments []Segment
	state    State
	index    int
	seq      uint64
	onChange func(Snapshot)
	log      zerolog.Logger
}

// NewTransport wraps a sink. The transport starts Idle with no segments.
func NewTransport(sink Sink, log zerolog.Logger) *Transport {
	t := &Transport{
		sink:  sink,
		state: StateIdle,
		index: -1,
		log:   log,
	}
	sink.SetOnEnded(t.handleEnded)
	return t
}

// OnChange registers an observer called with a snapshot after every state
// change. At most one observer; registration replaces the previous one.
func (t *Transport) OnChange(fn func(Snapshot)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// SetSegments installs a new sequence and resets the transport to Idle.
// Pending load continuations for the old sequence become stale.
func (t *Transport) SetSegments(segs []Segment) {
	t.mu.Lock()
	t.segments = append([]Segment(nil), segs...)
	t.seq++
	t.state = StateIdle
	t.index = -1
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.sink.Pause()
	t.sink.Seek(0)
	t.emit(snap)
}

// PlayFrom loads and plays the first playable segment at or after index,
// skipping segments without audio. When none remains the transport Ends.
func (t *Transport) PlayFrom(index int) {
	t.mu.Lock()
	idx, ok := t.nextPlayable(index)
	if !ok {
		t.state = StateEnded
		t.index = -1
		snap := t.snapshotLocked()
		t.mu.Unlock()
		t.emit(snap)
		return
	}

	t.seq++
	seq := t.seq
	t.index = idx
	t.state = StateLoading
	src := t.segments[idx].URL
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.emit(snap)
	t.sink.Load(src, func() { t.handleReady(seq) })
}

// Pause moves Playing → Paused. Other states are unaffected.
func (t *Transport) Pause() {
	t.mu.Lock()
	if t.state != StatePlaying {
		t.mu.Unlock()
		return
	}
	t.state = StatePaused
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.sink.Pause()
	t.emit(snap)
}

// Resume moves Paused → Playing, reconciling against the sink on rejection.
func (t *Transport) Resume() {
	t.mu.Lock()
	if t.state != StatePaused {
		t.mu.Unlock()
		return
	}
	seq := t.seq
	t.mu.Unlock()

	t.startPlayback(seq)
}

// Seek repositions within the current segment, clamped to its duration.
func (t *Transport) Seek(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	if d := t.sink.Duration(); d > 0 && seconds > d {
		seconds = d
	}
	t.sink.Seek(seconds)
}

// Stop resets to Idle: position zero, no current segment. Any in-flight
// load continuation becomes stale.
func (t *Transport) Stop() {
	t.mu.Lock()
	t.seq++
	t.state = StateIdle
	t.index = -1
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.sink.Pause()
	t.sink.Seek(0)
	t.emit(snap)
}

// Snapshot returns the current externally visible state.
func (t *Transport) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// handleReady is the sink readiness continuation for load seq.
func (t *Transport) handleReady(seq uint64) {
	t.mu.Lock()
	if seq != t.seq {
		t.mu.Unlock()
		t.log.Debug().Uint64("seq", seq).Msg("stale readiness signal dropped")
		return
	}
	t.mu.Unlock()

	t.startPlayback(seq)
}

// startPlayback asks the sink to play and reconciles state with the sink's
// actual paused flag: a rejected play attempt (no user gesture, interrupted
// load) is not fatal, and the sink's own boolean wins over the intent.
func (t *Transport) startPlayback(seq uint64) {
	err := t.sink.Play()

	t.mu.Lock()
	if seq != t.seq {
		t.mu.Unlock()
		return
	}
	if err != nil {
		if t.sink.Paused() {
			t.state = StatePaused
		} else {
			t.state = StatePlaying
		}
		t.log.Warn().Err(err).Str("state", string(t.state)).Msg("play attempt rejected, reconciled with sink")
	} else {
		t.state = StatePlaying
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.emit(snap)
}

// handleEnded advances to the next playable segment or Ends the transport.
func (t *Transport) handleEnded() {
	t.mu.Lock()
	if t.state != StatePlaying {
		t.mu.Unlock()
		return
	}
	next := t.index + 1
	t.mu.Unlock()

	t.PlayFrom(next)
}

func (t *Transport) nextPlayable(from int) (int, bool) {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(t.segments); i++ {
		if t.segments[i].URL != "" {
			return i, true
		}
	}
	return 0, false
}

func (t *Transport) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:    t.state,
		Index:    t.index,
		Position: t.sink.CurrentTime(),
		Duration: t.sink.Duration(),
	}
	if t.index >= 0 && t.index < len(t.segments) {
		snap.SegmentID = t.segments[t.index].ID
	}
	return snap
}

func (t *Transport) emit(snap Snapshot) {
	t.mu.Lock()
	fn := t.onChange
	t.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}
