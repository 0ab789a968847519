package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/snarg/booth-engine/internal/audio"
	"github.com/snarg/booth-engine/internal/metrics"
	"github.com/snarg/booth-engine/internal/transcript"
	"github.com/snarg/booth-engine/internal/tts"
	"github.com/snarg/booth-engine/internal/voices"
)

// TTSHandler proxies synthesis requests to the configured providers. The
// single route answers with raw audio bytes; the dialog route answers with a
// JSON envelope carrying an audio URL.
type TTSHandler struct {
	provider tts.Provider      // single-turn synthesis; nil when unconfigured
	dialog   *tts.DialogClient // whole-script rendering; nil when unconfigured
	cache    *tts.Cache
	store    *audio.Store
	roster   *voices.Roster
	retry    tts.RetryPolicy
	format   string
	timeout  time.Duration
}

func NewTTSHandler(provider tts.Provider, dialog *tts.DialogClient, cache *tts.Cache, store *audio.Store, roster *voices.Roster, retry tts.RetryPolicy, format string, timeout time.Duration) *TTSHandler {
	return &TTSHandler{
		provider: provider,
		dialog:   dialog,
		cache:    cache,
		store:    store,
		roster:   roster,
		retry:    retry,
		format:   format,
		timeout:  timeout,
	}
}

type singleRequest struct {
	Text         string `json:"text"`
	Speaker      string `json:"speaker,omitempty"`
	VoiceID      string `json:"voice_id,omitempty"`
	ModelID      string `json:"model_id,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
}

// Single synthesizes one text and streams the audio bytes back.
func (h *TTSHandler) Single(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		WriteError(w, http.StatusInternalServerError, "tts provider not configured")
		return
	}

	var req singleRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	text, truncated := tts.Truncate(req.Text)
	if truncated {
		metrics.TTSTextTruncatedTotal.Inc()
	}

	voice := req.VoiceID
	model := req.ModelID
	if voice == "" {
		v := h.roster.Resolve(req.Speaker)
		voice = v.VoiceID
		if model == "" {
			model = v.ModelID
		}
	}
	format := req.OutputFormat
	if format == "" {
		format = h.format
	}

	ctx := r.Context()
	key := tts.CacheKey(voice, model, format, text)
	data, hit := h.cache.Get(key)
	// Derived from the requested format so cached and fresh responses carry
	// the same label.
	contentType := contentTypeForFormat(format)
	if hit {
		metrics.TTSCacheHitsTotal.Inc()
	} else {
		metrics.TTSCacheMissesTotal.Inc()
		res, err := tts.Do(ctx, h.retry, func() (*tts.Result, error) {
			metrics.TTSRequestsTotal.WithLabelValues(h.provider.Name()).Inc()
			return h.provider.Synthesize(ctx, tts.Request{
				Text:         text,
				VoiceID:      voice,
				ModelID:      model,
				OutputFormat: format,
			})
		})
		if err != nil {
			writeUpstreamError(w, r, err)
			return
		}
		data = res.Bytes
		if data == nil {
			if res.URL == "" {
				WriteError(w, http.StatusBadGateway, "upstream returned no audio")
				return
			}
			data, err = tts.FetchURL(ctx, res.URL, h.timeout)
			if err != nil {
				writeUpstreamError(w, r, err)
				return
			}
		}
		h.cache.Put(key, data)
	}

	if truncated {
		w.Header().Set("X-Text-Truncated", "true")
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type dialogRequest struct {
	Lines []transcript.Line `json:"lines"`
	Seed  *int64            `json:"seed,omitempty"`
}

type dialogResponse struct {
	Audio          dialogAudio `json:"audio"`
	TruncatedLines int         `json:"truncated_lines,omitempty"`
}

type dialogAudio struct {
	URL string `json:"url"`
}

// Dialog renders a whole multi-speaker script in one upstream request and
// answers with the audio URL envelope.
func (h *TTSHandler) Dialog(w http.ResponseWriter, r *http.Request) {
	if h.dialog == nil {
		WriteError(w, http.StatusInternalServerError, "dialog provider not configured")
		return
	}

	var req dialogRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if len(req.Lines) == 0 {
		WriteError(w, http.StatusBadRequest, "lines are required")
		return
	}
	for i, l := range req.Lines {
		if strings.TrimSpace(l.Text) == "" {
			WriteErrorDetail(w, http.StatusBadRequest, "invalid line", "empty text at index "+strconv.Itoa(i))
			return
		}
	}

	ctx := r.Context()
	res, truncatedLines, err := h.dialog.RenderDialog(ctx, req.Lines, h.roster, req.Seed)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}

	url := res.URL
	if url == "" && res.Bytes != nil {
		// Bytes envelope: persist locally and hand out our own URL.
		name, serr := h.store.Put(res.Bytes, h.format)
		if serr != nil {
			WriteError(w, http.StatusInternalServerError, "store audio: "+serr.Error())
			return
		}
		url = h.store.URLPath(name)
	}
	if url == "" {
		WriteError(w, http.StatusBadGateway, "upstream returned no audio")
		return
	}

	if truncatedLines > 0 {
		w.Header().Set("X-Text-Truncated", "true")
	}
	WriteJSON(w, http.StatusOK, dialogResponse{
		Audio:          dialogAudio{URL: url},
		TruncatedLines: truncatedLines,
	})
}

// Routes registers TTS routes on the given router.
func (h *TTSHandler) Routes(r chi.Router) {
	r.Post("/tts/single", h.Single)
	r.Post("/tts/dialog", h.Dialog)
}

// contentTypeForFormat maps a synthesis output format name onto a MIME type.
func contentTypeForFormat(format string) string {
	switch {
	case strings.HasPrefix(format, "pcm"), strings.HasPrefix(format, "wav"):
		return "audio/wav"
	case strings.HasPrefix(format, "ulaw"):
		return "audio/basic"
	case strings.HasPrefix(format, "opus"):
		return "audio/ogg"
	default:
		return "audio/mpeg"
	}
}

// writeUpstreamError maps provider failures onto the HTTP surface: upstream
// detail text when available, a generic message otherwise.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	hlog.FromRequest(r).Warn().Err(err).Msg("tts upstream failure")
	var ue *tts.UpstreamError
	if errors.As(err, &ue) && ue.Detail != "" {
		WriteErrorDetail(w, http.StatusBadGateway, "tts provider error", ue.Detail)
		return
	}
	WriteErrorDetail(w, http.StatusBadGateway, "tts provider error", err.Error())
}
