package api

import (
	"encoding/json"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/snarg/booth-engine/internal/audio"
	"github.com/snarg/booth-engine/internal/events"
	"github.com/snarg/booth-engine/internal/metrics"
	"github.com/snarg/booth-engine/internal/timeline"
	"github.com/snarg/booth-engine/internal/transcript"
	"github.com/snarg/booth-engine/internal/tts"
	"github.com/snarg/booth-engine/internal/waveform"
)

const (
	defaultPeakWidth = 200
	maxPeakWidth     = 4096
	maxTranscriptLen = 4 << 20 // request body cap for transcript uploads
)

// TimelineHandler owns the timeline lifecycle: build from transcript,
// snapshot, clip moves, and waveform peaks.
type TimelineHandler struct {
	store      *timeline.Store
	pool       *tts.WorkerPool
	audioStore *audio.Store
	bus        *events.Bus
	globalGap  float64
}

func NewTimelineHandler(store *timeline.Store, pool *tts.WorkerPool, audioStore *audio.Store, bus *events.Bus, globalGap float64) *TimelineHandler {
	return &TimelineHandler{
		store:      store,
		pool:       pool,
		audioStore: audioStore,
		bus:        bus,
		globalGap:  globalGap,
	}
}

type timelineResponse struct {
	Tracks []timeline.Track `json:"tracks"`
}

// Build parses the submitted transcript, lays out a fresh timeline, and
// enqueues synthesis for every clip. ?mode=global switches from per-track
// layout to the globally exclusive splice ordering.
func (h *TimelineHandler) Build(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxTranscriptLen))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "read request body")
		return
	}

	// Clients post either the transcript array itself or a wrapper object
	// carrying the array as a JSON string.
	var wrapper struct {
		Transcript string `json:"transcript"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && wrapper.Transcript != "" {
		raw = []byte(wrapper.Transcript)
	}

	lines, err := transcript.Parse(raw)
	if err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid transcript", err.Error())
		return
	}

	tracks, err := timeline.Build(lines)
	if err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "timeline build failed", err.Error())
		return
	}
	if mode, _ := QueryString(r, "mode"); mode == "global" {
		tracks = timeline.ResolveOverlapsGlobally(tracks, h.globalGap)
	}

	// Replacing the timeline invalidates every in-flight job: their clip
	// IDs no longer resolve, so late results are dropped.
	h.store.Replace(tracks)
	metrics.TimelineBuildsTotal.Inc()

	dropped := 0
	for _, t := range tracks {
		for _, c := range t.Clips {
			if !h.pool.Enqueue(tts.Job{SegmentID: c.ID, Speaker: c.Speaker, Text: c.Text}) {
				dropped++
			}
		}
	}
	if dropped > 0 {
		hlog.FromRequest(r).Warn().Int("dropped", dropped).Msg("synthesis queue full, some clips stay pending")
	}

	h.bus.Publish("timeline", map[string]any{"action": "rebuilt", "tracks": len(tracks)})
	WriteJSON(w, http.StatusOK, timelineResponse{Tracks: h.store.Snapshot()})
}

// Get returns the current timeline snapshot.
func (h *TimelineHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, timelineResponse{Tracks: h.store.Snapshot()})
}

type moveRequest struct {
	Start float64 `json:"start"`
}

type moveResponse struct {
	ID    string  `json:"id"`
	Start float64 `json:"start"`
}

// Move applies a drag to a clip. The response carries the start actually
// applied after snapping, which can differ from the proposal.
func (h *TimelineHandler) Move(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req moveRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	adjusted, err := h.store.MoveClip(id, req.Start)
	if err != nil {
		WriteError(w, http.StatusNotFound, "clip not found")
		return
	}

	h.bus.Publish("timeline", map[string]any{"action": "moved", "clip_id": id, "start": adjusted})
	WriteJSON(w, http.StatusOK, moveResponse{ID: id, Start: adjusted})
}

type peaksResponse struct {
	ID    string    `json:"id"`
	Width int       `json:"width"`
	Peaks []float64 `json:"peaks"`
}

// Peaks returns waveform peaks for a clip's audio, one column per pixel.
// Clips without decodable audio degrade to a flat baseline: a broken
// waveform must never block rendering or playback.
func (h *TimelineHandler) Peaks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	clip, ok := h.store.Clip(id)
	if !ok {
		WriteError(w, http.StatusNotFound, "clip not found")
		return
	}

	width, _ := QueryInt(r, "width")
	if width < 1 {
		width = defaultPeakWidth
	}
	if width > maxPeakWidth {
		width = maxPeakWidth
	}

	peaks := waveform.Baseline(width)
	if name := audioName(clip.URL); name != "" {
		if data, err := h.audioStore.Read(name); err == nil {
			if wav, err := audio.DecodeWAV(data); err == nil {
				peaks = waveform.Peaks(wav.Samples(), width)
			}
		}
	}

	WriteJSON(w, http.StatusOK, peaksResponse{ID: id, Width: width, Peaks: peaks})
}

// Routes registers timeline routes on the given router.
func (h *TimelineHandler) Routes(r chi.Router) {
	r.Post("/timeline/build", h.Build)
	r.Get("/timeline", h.Get)
	r.Post("/timeline/clips/{id}/move", h.Move)
	r.Get("/timeline/clips/{id}/peaks", h.Peaks)
}

// audioName maps a locally served audio URL back to its store file name.
func audioName(url string) string {
	if !strings.HasPrefix(url, "/audio/") {
		return ""
	}
	return path.Base(url)
}
