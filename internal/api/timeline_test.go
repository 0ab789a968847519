package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/snarg/booth-engine/internal/timeline"
)

const sampleTranscript = `[
  {"time": "00:00:03.250", "speaker": "PlayByPlay", "text": "Tip-off, Tigers control."},
  {"time": "00:00:05.000", "speaker": "Color", "text": "Watch the tempo here."},
  {"time": "00:00:08.400", "speaker": "PlayByPlay", "text": "Quick outlet pass."}
]`

func buildTimeline(t *testing.T, baseURL, query string) timelineResponse {
	t.Helper()
	resp := postJSON(t, baseURL+"/api/v1/timeline/build"+query, sampleTranscript)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("build status = %d", resp.StatusCode)
	}
	var out timelineResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestTimelineBuild_LaysOutTwoTracks(t *testing.T) {
	ts, _ := newTestServer(t, &stubProvider{data: []byte("fake-audio")})

	out := buildTimeline(t, ts.URL, "")
	if len(out.Tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(out.Tracks))
	}
	var a, b timeline.Track
	for _, tr := range out.Tracks {
		switch tr.ID {
		case "A":
			a = tr
		case "B":
			b = tr
		}
	}
	if len(a.Clips) != 2 || len(b.Clips) != 1 {
		t.Fatalf("clips A=%d B=%d, want 2/1", len(a.Clips), len(b.Clips))
	}
	if a.Clips[0].Start != 3.25 {
		t.Errorf("A[0].Start = %v, want 3.25", a.Clips[0].Start)
	}
}

func TestTimelineBuild_SegmentsResolveAsynchronously(t *testing.T) {
	ts, c := newTestServer(t, &stubProvider{data: []byte("fake-audio")})
	buildTimeline(t, ts.URL, "")

	deadline := time.Now().Add(3 * time.Second)
	for {
		ready := 0
		for _, tr := range c.Timeline.Snapshot() {
			for _, clip := range tr.Clips {
				if clip.Status == timeline.StatusReady {
					ready++
				}
			}
		}
		if ready == 3 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d/3 clips resolved", ready)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTimelineBuild_AcceptsWrappedTranscriptString(t *testing.T) {
	ts, _ := newTestServer(t, &stubProvider{data: []byte("x")})

	body, err := json.Marshal(map[string]string{"transcript": sampleTranscript})
	if err != nil {
		t.Fatal(err)
	}
	resp := postJSON(t, ts.URL+"/api/v1/timeline/build", string(body))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("build status = %d", resp.StatusCode)
	}
	var out timelineResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(out.Tracks))
	}
}

func TestTimelineBuild_InvalidTranscriptNamesIndex(t *testing.T) {
	ts, _ := newTestServer(t, &stubProvider{data: []byte("x")})

	resp := postJSON(t, ts.URL+"/api/v1/timeline/build", `[{"text":"ok"},{"speaker":"Color"}]`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body.Detail, "item 1") {
		t.Errorf("detail = %q, want the offending index named", body.Detail)
	}
}

func TestTimelineBuild_GlobalModeIsExclusive(t *testing.T) {
	ts, _ := newTestServer(t, &stubProvider{data: []byte("x")})

	out := buildTimeline(t, ts.URL, "?mode=global")
	var flat []timeline.Clip
	for _, tr := range out.Tracks {
		flat = append(flat, tr.Clips...)
	}
	for i := range flat {
		for j := i + 1; j < len(flat); j++ {
			x, y := flat[i], flat[j]
			if x.Start < y.End() && y.Start < x.End() {
				t.Errorf("clips %s and %s overlap in global mode", x.ID, y.ID)
			}
		}
	}
}

func TestTimelineMove_SnapsAndPersists(t *testing.T) {
	ts, c := newTestServer(t, &stubProvider{data: []byte("x")})
	out := buildTimeline(t, ts.URL, "")

	var a timeline.Track
	for _, tr := range out.Tracks {
		if tr.ID == "A" {
			a = tr
		}
	}
	second := a.Clips[1]

	resp := postJSON(t, ts.URL+"/api/v1/timeline/clips/"+second.ID+"/move", `{"start":0}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("move status = %d", resp.StatusCode)
	}
	var mv moveResponse
	if err := json.NewDecoder(resp.Body).Decode(&mv); err != nil {
		t.Fatal(err)
	}

	stored, ok := c.Timeline.Clip(second.ID)
	if !ok || stored.Start != mv.Start {
		t.Errorf("stored start %v != response %v", stored.Start, mv.Start)
	}
}

func TestTimelineMove_UnknownClip404(t *testing.T) {
	ts, _ := newTestServer(t, &stubProvider{data: []byte("x")})
	resp := postJSON(t, ts.URL+"/api/v1/timeline/clips/no-such-id/move", `{"start":1}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestTimelinePeaks_DegradesToBaseline(t *testing.T) {
	ts, _ := newTestServer(t, &stubProvider{data: []byte("not-a-wav")})
	out := buildTimeline(t, ts.URL, "")
	id := out.Tracks[0].Clips[0].ID

	resp, err := http.Get(ts.URL + "/api/v1/timeline/clips/" + id + "/peaks?width=64")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var pk peaksResponse
	if err := json.NewDecoder(resp.Body).Decode(&pk); err != nil {
		t.Fatal(err)
	}
	if pk.Width != 64 || len(pk.Peaks) != 64 {
		t.Fatalf("width=%d len=%d, want 64/64", pk.Width, len(pk.Peaks))
	}
	for _, p := range pk.Peaks {
		if p != 0 {
			t.Fatal("undecodable audio must yield a flat baseline")
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, &stubProvider{data: []byte("x")})
	resp, err := http.Get(ts.URL + "/api/v1/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var h HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		t.Fatal(err)
	}
	if h.Status != "healthy" || h.Voices == 0 {
		t.Errorf("health = %+v", h)
	}
	if h.Checks["tts_provider"] != "ok" {
		t.Errorf("checks = %v", h.Checks)
	}
}
