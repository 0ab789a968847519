package playback

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DualTrack binds one sink to its audio source and track offset. The offset
// is the minimum parsed start time among the track's lines: the constant
// relating the sink's local clock to the shared transcript clock via
// globalTime = localTime + offset.
type DualTrack struct {
	Sink   Sink
	Source string
	Offset float64
}

// DualTransport plays two (or more) independently loaded sinks as one
// logical transport aligned to the shared transcript clock. Seeking the
// shared clock to T puts each sink at max(0, T-offset); a track whose
// content has not started yet waits paused behind a deferred timer armed
// for offset-T seconds. Timers are cleared and re-armed on every seek,
// play, and pause so a rapid scrub never stacks duplicate starts.
//
// Alignment is coarse: timer granularity and decode latency bound the
// achievable sync, not sample accuracy.
type DualTransport struct {
	mu      sync.Mutex
	tracks  []dualTrack
	playing bool
	anchor  float64 // shared-clock position at the last seek
	gen     uint64  // invalidates deferred-start timers
	log     zerolog.Logger
}

type dualTrack struct {
	DualTrack
	timer *time.Timer // armed while waiting for the shared clock to reach offset
}

// NewDualTransport creates a paused transport and loads every track's source.
func NewDualTransport(tracks []DualTrack, log zerolog.Logger) *DualTransport {
	d := &DualTransport{log: log}
	for _, t := range tracks {
		d.tracks = append(d.tracks, dualTrack{DualTrack: t})
		t.Sink.Load(t.Source, func() {})
	}
	return d
}

// Play resumes from the current shared-clock position.
func (d *DualTransport) Play() {
	d.SeekGlobal(d.GlobalTime(), true)
}

// Pause stops every sink and clears pending deferred starts.
func (d *DualTransport) Pause() {
	d.mu.Lock()
	d.anchor = d.globalTimeLocked()
	d.clearTimersLocked()
	d.playing = false
	sinks := d.sinksLocked()
	d.mu.Unlock()

	for _, s := range sinks {
		s.Pause()
	}
}

// Restart rewinds the shared clock to zero and plays.
func (d *DualTransport) Restart() {
	d.SeekGlobal(0, true)
}

// SeekBy nudges the shared clock by delta seconds, preserving play state.
func (d *DualTransport) SeekBy(delta float64) {
	d.mu.Lock()
	playing := d.playing
	d.mu.Unlock()
	d.SeekGlobal(d.GlobalTime()+delta, playing)
}

// SeekGlobal moves the shared clock to T. Each sink seeks to its local
// equivalent max(0, T-offset); a sink whose offset lies ahead of T pauses
// and, when playing, arms a one-shot timer to start exactly when the shared
// clock reaches the offset.
func (d *DualTransport) SeekGlobal(t float64, keepPlaying bool) {
	t = math.Max(0, t)

	d.mu.Lock()
	d.clearTimersLocked()
	d.playing = keepPlaying
	d.anchor = t
	d.gen++
	gen := d.gen

	type plan struct {
		sink  Sink
		local float64
		start bool          // play immediately
		wait  time.Duration // >0: arm deferred start
		idx   int
	}
	plans := make([]plan, 0, len(d.tracks))
	for i := range d.tracks {
		tr := &d.tracks[i]
		p := plan{sink: tr.Sink, idx: i}
		if t >= tr.Offset {
			p.local = math.Min(t-tr.Offset, tr.Sink.Duration())
			p.start = keepPlaying
		} else {
			p.local = 0
			if keepPlaying {
				p.wait = time.Duration((tr.Offset - t) * float64(time.Second))
			}
		}
		plans = append(plans, p)
	}
	d.mu.Unlock()

	for _, p := range plans {
		p.sink.Seek(p.local)
		if p.start {
			if err := p.sink.Play(); err != nil {
				d.log.Warn().Err(err).Int("track", p.idx).Msg("dual play rejected")
			}
			continue
		}
		p.sink.Pause()
		if p.wait > 0 {
			d.armDeferredStart(p.idx, p.wait, gen)
		}
	}
}

// GlobalTime reports the shared-clock position: the furthest local clock
// plus its offset among tracks whose content has started, falling back to
// the last seek anchor while every track is still waiting.
func (d *DualTransport) GlobalTime() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.globalTimeLocked()
}

// Playing reports whether the shared transport is running.
func (d *DualTransport) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

func (d *DualTransport) globalTimeLocked() float64 {
	g := d.anchor
	for i := range d.tracks {
		tr := &d.tracks[i]
		if tr.timer != nil {
			continue // not started yet; its local clock says nothing
		}
		lt := tr.Sink.CurrentTime()
		if lt == 0 && tr.Offset > 0 {
			continue
		}
		g = math.Max(g, lt+tr.Offset)
	}
	return g
}

func (d *DualTransport) armDeferredStart(idx int, wait time.Duration, gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		return
	}
	d.tracks[idx].timer = time.AfterFunc(wait, func() {
		d.mu.Lock()
		if gen != d.gen || !d.playing {
			d.mu.Unlock()
			return
		}
		d.tracks[idx].timer = nil
		sink := d.tracks[idx].Sink
		d.mu.Unlock()

		sink.Seek(0)
		if err := sink.Play(); err != nil {
			d.log.Warn().Err(err).Int("track", idx).Msg("deferred start rejected")
		}
	})
}

func (d *DualTransport) clearTimersLocked() {
	for i := range d.tracks {
		if d.tracks[i].timer != nil {
			d.tracks[i].timer.Stop()
			d.tracks[i].timer = nil
		}
	}
}

func (d *DualTransport) sinksLocked() []Sink {
	out := make([]Sink, len(d.tracks))
	for i := range d.tracks {
		out[i] = d.tracks[i].Sink
	}
	return out
}
