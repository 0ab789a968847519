// Package timecode converts between textual timecodes and seconds.
package timecode

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a timecode string cannot be parsed.
type ErrMalformed struct {
	Input string
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("malformed timecode %q (use HH:MM:SS.mmm, MM:SS.mmm, or seconds)", e.Input)
}

// Accepts SS[.mmm], MM:SS[.mmm], HH:MM:SS[.mmm]. No upper bound on any
// component: "90:00" is 5400s, which keeps slightly sloppy transcripts usable.
var timecodeRe = regexp.MustCompile(`^(?:(\d+):)?(?:(\d+):)?(\d+)(?:\.(\d{1,3}))?$`)

// Parse converts a timecode string to seconds.
func Parse(tc string) (float64, error) {
	s := strings.TrimSpace(tc)
	m := timecodeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, &ErrMalformed{Input: tc}
	}

	// With one colon only the first group matches, so its value is minutes.
	hh, mm := m[1], m[2]
	if hh != "" && mm == "" {
		hh, mm = "", m[1]
	}

	var total float64
	if hh != "" {
		h, err := strconv.Atoi(hh)
		if err != nil {
			return 0, &ErrMalformed{Input: tc}
		}
		total += float64(h) * 3600
	}
	if mm != "" {
		min, err := strconv.Atoi(mm)
		if err != nil {
			return 0, &ErrMalformed{Input: tc}
		}
		total += float64(min) * 60
	}
	sec, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, &ErrMalformed{Input: tc}
	}
	total += float64(sec)

	if frac := m[4]; frac != "" {
		// Pad or truncate to millisecond precision.
		for len(frac) < 3 {
			frac += "0"
		}
		ms, err := strconv.Atoi(frac[:3])
		if err != nil {
			return 0, &ErrMalformed{Input: tc}
		}
		total += float64(ms) / 1000
	}

	return total, nil
}

// FormatSeconds renders a second count as "MM:SS" for display. It is not an
// inverse of Parse: hours fold into minutes and fractions are floored.
func FormatSeconds(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "00:00"
	}
	m := int(seconds) / 60
	s := int(seconds) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}
