package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/snarg/booth-engine/internal/audio"
)

// AudioHandler serves synthesized audio files from the local store.
type AudioHandler struct {
	store *audio.Store
}

func NewAudioHandler(store *audio.Store) *AudioHandler {
	return &AudioHandler{store: store}
}

// Serve streams one stored audio file. Names are uuids, so responses are
// immutable and long-cacheable.
func (h *AudioHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	path, err := h.store.Path(name)
	if err != nil {
		WriteError(w, http.StatusNotFound, "audio not found")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeFile(w, r, path)
}

// Routes registers the audio route on the given router.
func (h *AudioHandler) Routes(r chi.Router) {
	r.Get("/audio/{name}", h.Serve)
}
