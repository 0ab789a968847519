// Package audio holds the synthesized-audio store and a minimal WAV probe.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrDecode indicates bytes that could not be read as PCM WAV. Callers
// treat this as non-fatal: waveforms fall back to a flat baseline and
// durations to the layout floor.
var ErrDecode = errors.New("audio: undecodable data")

// WAV is a decoded PCM16 WAV file.
type WAV struct {
	SampleRate int
	Channels   int
	data       []byte // raw PCM16 little-endian frames
}

// DecodeWAV parses a RIFF/WAVE byte stream. Only uncompressed 16-bit PCM is
// supported; anything else (mp3, float WAV, truncated data) returns ErrDecode.
func DecodeWAV(b []byte) (*WAV, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, ErrDecode
	}

	w := &WAV{}
	var bitsPerSample int
	// Walk the chunk list for "fmt " and "data".
	for off := 12; off+8 <= len(b); {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		if body+size > len(b) {
			return nil, fmt.Errorf("%w: chunk %q overruns file", ErrDecode, id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrDecode)
			}
			format := int(binary.LittleEndian.Uint16(b[body : body+2]))
			w.Channels = int(binary.LittleEndian.Uint16(b[body+2 : body+4]))
			w.SampleRate = int(binary.LittleEndian.Uint32(b[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(b[body+14 : body+16]))
			if format != 1 || bitsPerSample != 16 {
				return nil, fmt.Errorf("%w: unsupported format=%d bits=%d", ErrDecode, format, bitsPerSample)
			}
		case "data":
			w.data = b[body : body+size]
		}
		// Chunks are word-aligned.
		off = body + size + size%2
	}

	if w.SampleRate <= 0 || w.Channels <= 0 || len(w.data) == 0 {
		return nil, ErrDecode
	}
	return w, nil
}

// Duration returns the audio length in seconds.
func (w *WAV) Duration() float64 {
	frameSize := 2 * w.Channels
	frames := len(w.data) / frameSize
	return float64(frames) / float64(w.SampleRate)
}

// Samples decodes the first channel to floats in [-1, 1], the shape the
// waveform peak extractor consumes.
func (w *WAV) Samples() []float64 {
	frameSize := 2 * w.Channels
	frames := len(w.data) / frameSize
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		v := int16(binary.LittleEndian.Uint16(w.data[i*frameSize : i*frameSize+2]))
		out[i] = float64(v) / 32768
	}
	return out
}
