// Package transcript parses and validates user-supplied transcript JSON.
//
// A transcript is a JSON array of lines. Each line needs a non-empty "text";
// "time" and "speaker" are optional and degrade to absent when present with
// the wrong type.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultSpeaker is used when a line carries no usable speaker label.
const DefaultSpeaker = "Speaker"

// ErrInvalidJSON indicates the raw input is not syntactically valid JSON.
var ErrInvalidJSON = errors.New("transcript is not valid JSON")

// SchemaError identifies the first offending element of a structurally
// invalid transcript.
type SchemaError struct {
	Index  int // 0-based position in the array, -1 when the root is wrong
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Index < 0 {
		return "transcript schema: " + e.Reason
	}
	return fmt.Sprintf("transcript schema: item %d %s", e.Index, e.Reason)
}

// Line is one parsed transcript line, immutable once parsed.
type Line struct {
	Time    string `json:"time,omitempty"` // raw timecode as authored, "" means infer sequentially
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Parse converts raw transcript JSON into ordered lines. Order is preserved;
// nothing is deduplicated or sorted.
func Parse(raw []byte) ([]Line, error) {
	var root json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, ErrInvalidJSON
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(root, &rows); err != nil {
		return nil, &SchemaError{Index: -1, Reason: "root must be an array"}
	}

	lines := make([]Line, 0, len(rows))
	for i, raw := range rows {
		var row map[string]json.RawMessage
		if err := json.Unmarshal(raw, &row); err != nil || row == nil {
			return nil, &SchemaError{Index: i, Reason: "is not an object"}
		}
		text, ok := stringField(row, "text")
		if !ok {
			return nil, &SchemaError{Index: i, Reason: `is missing required "text"`}
		}
		if strings.TrimSpace(text) == "" {
			return nil, &SchemaError{Index: i, Reason: `has empty "text"`}
		}

		line := Line{Text: strings.TrimSpace(text), Speaker: DefaultSpeaker}
		// Optional fields with the wrong type are treated as absent, not errors.
		if tc, ok := stringField(row, "time"); ok {
			line.Time = tc
		}
		if sp, ok := stringField(row, "speaker"); ok && sp != "" {
			line.Speaker = sp
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func stringField(row map[string]json.RawMessage, key string) (string, bool) {
	v, ok := row[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}
