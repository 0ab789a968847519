package timeline

import (
	"math"
	"testing"

	"github.com/snarg/booth-engine/internal/transcript"
)

func mustBuild(t *testing.T, lines []transcript.Line) []Track {
	t.Helper()
	tracks, err := Build(lines)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tracks
}

func trackByID(t *testing.T, tracks []Track, id string) Track {
	t.Helper()
	for _, tr := range tracks {
		if tr.ID == id {
			return tr
		}
	}
	t.Fatalf("no track %s", id)
	return Track{}
}

func assertNoOverlap(t *testing.T, tr Track) {
	t.Helper()
	for i := 1; i < len(tr.Clips); i++ {
		prev, cur := tr.Clips[i-1], tr.Clips[i]
		if prev.End() > cur.Start+1e-9 {
			t.Errorf("track %s: clip %d (end %v) overlaps clip %d (start %v)",
				tr.ID, i-1, prev.End(), i, cur.Start)
		}
	}
}

func TestBuild_RoutesRolesToTracks(t *testing.T) {
	tracks := mustBuild(t, []transcript.Line{
		{Time: "00:00:03.250", Speaker: "PlayByPlay", Text: "Tip-off!"},
		{Time: "00:00:05.000", Speaker: "Color", Text: "Tempo's up."},
		{Time: "00:00:08.400", Speaker: "PlayByPlay", Text: "Tigers ball."},
	})

	a := trackByID(t, tracks, "A")
	b := trackByID(t, tracks, "B")
	if len(a.Clips) != 2 || len(b.Clips) != 1 {
		t.Fatalf("clips A=%d B=%d, want 2/1", len(a.Clips), len(b.Clips))
	}
	if math.Abs(a.Clips[0].Start-3.25) > 1e-9 {
		t.Errorf("A[0].Start = %v, want 3.25", a.Clips[0].Start)
	}
	if a.Clips[0].Status != StatusPending || a.Clips[0].Duration != DurationFloor {
		t.Errorf("pending clip = %+v", a.Clips[0])
	}
}

func TestBuild_EpsilonTieBreak(t *testing.T) {
	tracks := mustBuild(t, []transcript.Line{
		{Time: "00:00:10.000", Speaker: "PlayByPlay", Text: "one"},
		{Time: "00:00:10.000", Speaker: "PlayByPlay", Text: "two"},
		{Time: "00:00:10.000", Speaker: "PlayByPlay", Text: "three"},
	})

	a := trackByID(t, tracks, "A")
	for i := 1; i < len(a.Clips); i++ {
		diff := a.Clips[i].Start - a.Clips[i-1].Start
		if diff < Epsilon-1e-9 {
			t.Errorf("start[%d]-start[%d] = %v, want >= %v", i, i-1, diff, Epsilon)
		}
	}
}

func TestBuild_UntimedLinesFollowTrackEnd(t *testing.T) {
	tracks := mustBuild(t, []transcript.Line{
		{Time: "00:00:02.000", Speaker: "PlayByPlay", Text: "anchored"},
		{Speaker: "PlayByPlay", Text: "follows"},
	})

	a := trackByID(t, tracks, "A")
	want := a.Clips[0].End()
	if math.Abs(a.Clips[1].Start-want) > 1e-9 {
		t.Errorf("untimed start = %v, want %v (previous end)", a.Clips[1].Start, want)
	}
	assertNoOverlap(t, a)
}

func TestBuild_MalformedTimecodeFails(t *testing.T) {
	_, err := Build([]transcript.Line{{Time: "1:2:3:4", Speaker: "PlayByPlay", Text: "bad"}})
	if err == nil {
		t.Fatal("Build should fail on malformed timecode")
	}
}

func TestSnapNonOverlap_FlushAgainstPredecessor(t *testing.T) {
	tr := Track{ID: "A", Clips: []Clip{
		{ID: "a", Start: 0, Duration: 5},
		{ID: "b", Start: 10, Duration: 5},
	}}

	// Dragging B into the middle of A lands flush against A's end, not at 2.
	got, err := SnapNonOverlap(tr, "b", 2)
	if err != nil {
		t.Fatalf("SnapNonOverlap: %v", err)
	}
	if got != 5 {
		t.Errorf("snapped start = %v, want 5", got)
	}
}

func TestSnapNonOverlap_FreePositionUnchanged(t *testing.T) {
	tr := Track{ID: "A", Clips: []Clip{
		{ID: "a", Start: 0, Duration: 5},
		{ID: "b", Start: 20, Duration: 5},
		{ID: "c", Start: 40, Duration: 2},
	}}

	got, err := SnapNonOverlap(tr, "c", 10)
	if err != nil {
		t.Fatalf("SnapNonOverlap: %v", err)
	}
	if got != 10 {
		t.Errorf("snapped start = %v, want 10 (fits the gap)", got)
	}
}

func TestSnapNonOverlap_ClampsAgainstNext(t *testing.T) {
	tr := Track{ID: "A", Clips: []Clip{
		{ID: "a", Start: 0, Duration: 5},
		{ID: "b", Start: 20, Duration: 5},
		{ID: "c", Start: 40, Duration: 4},
	}}

	// Gap between A and B is 5..20; duration 4 means the latest legal start is 16.
	got, err := SnapNonOverlap(tr, "c", 18)
	if err != nil {
		t.Fatalf("SnapNonOverlap: %v", err)
	}
	if got != 16 {
		t.Errorf("snapped start = %v, want 16", got)
	}
}

func TestSnapNonOverlap_PostConditionOverlapFree(t *testing.T) {
	tr := Track{ID: "A", Clips: []Clip{
		{ID: "a", Start: 0, Duration: 3},
		{ID: "b", Start: 6, Duration: 3},
		{ID: "m", Start: 12, Duration: 2},
	}}

	for _, proposed := range []float64{-5, 0, 1.5, 3, 4, 5.5, 9, 100} {
		got, err := SnapNonOverlap(tr, "m", proposed)
		if err != nil {
			t.Fatalf("SnapNonOverlap(%v): %v", proposed, err)
		}
		// Apply the move and verify no overlap with a or b.
		for _, other := range tr.Clips[:2] {
			if got < other.End() && other.Start < got+2 {
				t.Errorf("proposed %v → %v overlaps clip %s [%v,%v)",
					proposed, got, other.ID, other.Start, other.End())
			}
		}
	}
}

func TestSnapNonOverlap_UnknownClip(t *testing.T) {
	tr := Track{ID: "A", Clips: []Clip{{ID: "a", Start: 0, Duration: 1}}}
	if _, err := SnapNonOverlap(tr, "zz", 0); err == nil {
		t.Error("expected error for unknown clip")
	}
}

func TestResolveOverlapsGlobally(t *testing.T) {
	tracks := []Track{
		{ID: "A", Clips: []Clip{
			{ID: "a1", Start: 0, Duration: 5},
			{ID: "a2", Start: 30, Duration: 5},
		}},
		{ID: "B", Clips: []Clip{
			{ID: "b1", Start: 2, Duration: 5}, // overlaps a1 across tracks
		}},
	}

	out := ResolveOverlapsGlobally(tracks, DefaultGlobalGap)

	// Flatten and sort mentally: a1(0..5), then b1 pushed to 15, then a2 to 30.
	a := trackByID(t, out, "A")
	b := trackByID(t, out, "B")
	if a.Clips[0].Start != 0 {
		t.Errorf("first clip moved: %v", a.Clips[0].Start)
	}
	if b.Clips[0].Start != 15 {
		t.Errorf("b1 start = %v, want 15 (a1 end + gap)", b.Clips[0].Start)
	}
	if a.Clips[1].Start != 30 {
		t.Errorf("a2 start = %v, want 30 (already clear of b1 end + gap)", a.Clips[1].Start)
	}

	// Global exclusivity: no two clips anywhere may overlap.
	var flat []Clip
	for _, tr := range out {
		flat = append(flat, tr.Clips...)
	}
	for i := range flat {
		for j := i + 1; j < len(flat); j++ {
			x, y := flat[i], flat[j]
			if x.Start < y.End() && y.Start < x.End() {
				t.Errorf("clips %s and %s overlap globally", x.ID, y.ID)
			}
		}
	}
}

func TestTrackOffset(t *testing.T) {
	tr := Track{Clips: []Clip{{Start: 7}, {Start: 3}, {Start: 12}}}
	if got := TrackOffset(tr); got != 3 {
		t.Errorf("TrackOffset = %v, want 3", got)
	}
	if got := TrackOffset(Track{}); got != 0 {
		t.Errorf("TrackOffset(empty) = %v, want 0", got)
	}
}
