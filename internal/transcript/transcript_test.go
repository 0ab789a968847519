package transcript

import (
	"errors"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	raw := `[
		{"time": "00:00:03.250", "speaker": "PlayByPlay", "text": "Welcome to the season opener!"},
		{"time": "00:00:05.000", "speaker": "Color", "text": "You can feel the tempo picking up."},
		{"text": "  Tip-off!  "}
	]`
	lines, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("len = %d, want 3", len(lines))
	}
	if lines[0].Time != "00:00:03.250" || lines[0].Speaker != "PlayByPlay" {
		t.Errorf("line 0 = %+v", lines[0])
	}
	if lines[2].Text != "Tip-off!" {
		t.Errorf("line 2 text = %q, want trimmed", lines[2].Text)
	}
	if lines[2].Speaker != DefaultSpeaker {
		t.Errorf("line 2 speaker = %q, want %q", lines[2].Speaker, DefaultSpeaker)
	}
	if lines[2].Time != "" {
		t.Errorf("line 2 time = %q, want empty", lines[2].Time)
	}
}

func TestParse_PreservesOrder(t *testing.T) {
	raw := `[{"text":"c"},{"text":"a"},{"text":"b"}]`
	lines, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := lines[0].Text + lines[1].Text + lines[2].Text
	if got != "cab" {
		t.Errorf("order = %q, want cab", got)
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	if !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("err = %v, want ErrInvalidJSON", err)
	}
}

func TestParse_SchemaErrors(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantIndex int
	}{
		{"root_not_array", `{"text":"hi"}`, -1},
		{"element_not_object", `[{"text":"ok"}, 42]`, 1},
		{"element_null", `[null]`, 0},
		{"missing_text", `[{"text":"ok"},{"speaker":"X"}]`, 1},
		{"text_not_string", `[{"text": 7}]`, 0},
		{"text_whitespace_only", `[{"text":"ok"},{"text":"   "}]`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want SchemaError", err)
			}
			if se.Index != tt.wantIndex {
				t.Errorf("Index = %d, want %d", se.Index, tt.wantIndex)
			}
		})
	}
}

func TestParse_OptionalFieldsDegrade(t *testing.T) {
	// Wrong-typed optional fields are treated as absent, not as errors.
	raw := `[{"time": 90, "speaker": ["nope"], "text": "hi"}]`
	lines, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if lines[0].Time != "" {
		t.Errorf("Time = %q, want empty", lines[0].Time)
	}
	if lines[0].Speaker != DefaultSpeaker {
		t.Errorf("Speaker = %q, want default", lines[0].Speaker)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		label string
		want  Role
	}{
		{"Color", RoleColor},
		{"color commentary", RoleColor},
		{"PlayByPlay", RolePlayByPlay},
		{"play-by-play", RolePlayByPlay},
		{"Analyst", RolePlayByPlay},
		{"", RolePlayByPlay},
	}
	for _, tt := range tests {
		if got := Classify(tt.label); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}
