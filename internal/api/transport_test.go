package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/snarg/booth-engine/internal/playback"
	"github.com/snarg/booth-engine/internal/timeline"
)

func transportSnapshot(t *testing.T, resp *http.Response) playback.Snapshot {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var snap playback.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	return snap
}

func TestTransport_EmptyTimelineEnds(t *testing.T) {
	ts, _ := newTestServer(t, &stubProvider{data: []byte("x")})

	snap := transportSnapshot(t, postJSON(t, ts.URL+"/api/v1/transport/play", `{"index":0}`))
	if snap.State != playback.StateEnded {
		t.Errorf("state = %v, want ended with nothing playable", snap.State)
	}
}

func TestTransport_PlaysResolvedSequence(t *testing.T) {
	ts, c := newTestServer(t, &stubProvider{data: []byte("x")})
	buildTimeline(t, ts.URL, "")

	// Wait until synthesis resolves so the transport has playable segments.
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
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("clips never resolved")
		}
		time.Sleep(10 * time.Millisecond)
	}

	snap := transportSnapshot(t, postJSON(t, ts.URL+"/api/v1/transport/play", `{"index":0}`))
	if snap.State != playback.StatePlaying {
		t.Fatalf("state = %v, want playing", snap.State)
	}
	if snap.SegmentID == "" {
		t.Error("snapshot missing current segment")
	}

	snap = transportSnapshot(t, postJSON(t, ts.URL+"/api/v1/transport/pause", ``))
	if snap.State != playback.StatePaused {
		t.Errorf("state after pause = %v", snap.State)
	}

	snap = transportSnapshot(t, postJSON(t, ts.URL+"/api/v1/transport/resume", ``))
	if snap.State != playback.StatePlaying {
		t.Errorf("state after resume = %v", snap.State)
	}

	snap = transportSnapshot(t, postJSON(t, ts.URL+"/api/v1/transport/stop", ``))
	if snap.State != playback.StateIdle || snap.Position != 0 {
		t.Errorf("state after stop = %+v", snap)
	}
}

func TestTransport_GetSnapshot(t *testing.T) {
	ts, _ := newTestServer(t, &stubProvider{data: []byte("x")})
	resp, err := http.Get(ts.URL + "/api/v1/transport")
	if err != nil {
		t.Fatal(err)
	}
	snap := transportSnapshot(t, resp)
	if snap.State != playback.StateIdle {
		t.Errorf("fresh transport state = %v, want idle", snap.State)
	}
}
