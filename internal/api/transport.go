package api

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/snarg/booth-engine/internal/playback"
	"github.com/snarg/booth-engine/internal/timeline"
)

// TransportHandler exposes the shared server-side transport: one simulated
// playhead over the globally ordered clip sequence, so every connected
// client sees the same position via the event stream.
type TransportHandler struct {
	transport *playback.Transport
	store     *timeline.Store
}

func NewTransportHandler(transport *playback.Transport, store *timeline.Store) *TransportHandler {
	return &TransportHandler{transport: transport, store: store}
}

type playRequest struct {
	Index int `json:"index"`
}

// Play reloads the transport's segment sequence from the current timeline
// and starts at the requested index. Clips without audio are skipped.
func (h *TransportHandler) Play(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if r.ContentLength > 0 {
		if err := DecodeJSON(r, &req); err != nil {
			WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	h.transport.SetSegments(h.segmentSequence())
	h.transport.PlayFrom(req.Index)
	WriteJSON(w, http.StatusOK, h.transport.Snapshot())
}

// Pause freezes the shared playhead.
func (h *TransportHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transport.Pause()
	WriteJSON(w, http.StatusOK, h.transport.Snapshot())
}

// Resume continues from the paused position.
func (h *TransportHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transport.Resume()
	WriteJSON(w, http.StatusOK, h.transport.Snapshot())
}

// Stop resets the transport to idle at position zero.
func (h *TransportHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.transport.Stop()
	WriteJSON(w, http.StatusOK, h.transport.Snapshot())
}

type seekRequest struct {
	Position float64 `json:"position"`
}

// Seek repositions within the current segment.
func (h *TransportHandler) Seek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	h.transport.Seek(req.Position)
	WriteJSON(w, http.StatusOK, h.transport.Snapshot())
}

// Get returns the current transport snapshot.
func (h *TransportHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.transport.Snapshot())
}

// Routes registers transport routes on the given router.
func (h *TransportHandler) Routes(r chi.Router) {
	r.Get("/transport", h.Get)
	r.Post("/transport/play", h.Play)
	r.Post("/transport/pause", h.Pause)
	r.Post("/transport/resume", h.Resume)
	r.Post("/transport/stop", h.Stop)
	r.Post("/transport/seek", h.Seek)
}

// segmentSequence flattens the timeline into global start order for the
// shared sequential transport.
func (h *TransportHandler) segmentSequence() []playback.Segment {
	type timed struct {
		seg   playback.Segment
		start float64
	}
	var all []timed
	for _, t := range h.store.Snapshot() {
		for _, c := range t.Clips {
			url := c.URL
			if c.Status != timeline.StatusReady {
				url = "" // pending or failed clips are skipped
			}
			all = append(all, timed{seg: playback.Segment{ID: c.ID, URL: url}, start: c.Start})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].start < all[j].start })

	out := make([]playback.Segment, len(all))
	for i, t := range all {
		out[i] = t.seg
	}
	return out
}
