// Package waveform downsamples decoded PCM into per-column peak amplitudes
// for rendering. It is display plumbing, not audio processing: decode
// problems degrade to a flat baseline instead of blocking playback.
package waveform

import "math"

// Peaks reduces samples to width buckets, one peak per output column, taking
// the max absolute value inside each bucket. Returns nil when width <= 0 or
// there are no samples; callers render that as a flat baseline.
func Peaks(samples []float64, width int) []float64 {
	if width <= 0 || len(samples) == 0 {
		return nil
	}
	per := len(samples) / width
	if per < 1 {
		per = 1
	}
	n := len(samples) / per
	peaks := make([]float64, 0, n)
	for i := 0; i+per <= len(samples) && len(peaks) < n; i += per {
		min, max := 1.0, -1.0
		for _, v := range samples[i : i+per] {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		peaks = append(peaks, math.Max(math.Abs(min), math.Abs(max)))
	}
	return peaks
}

// Baseline returns a zero-amplitude peak sequence of the given width, the
// fallback shape for clips whose audio could not be decoded.
func Baseline(width int) []float64 {
	if width <= 0 {
		return nil
	}
	return make([]float64, width)
}
