package api

import (
	"net/http"
	"time"

	"github.com/snarg/booth-engine/internal/tts"
	"github.com/snarg/booth-engine/internal/voices"
)

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
	Queue         tts.QueueStats    `json:"queue"`
	Cache         tts.CacheStats    `json:"cache"`
	Voices        int               `json:"voices"`
}

type HealthHandler struct {
	pool      *tts.WorkerPool
	cache     *tts.Cache
	roster    *voices.Roster
	hasTTS    bool
	hasDialog bool
	version   string
	startTime time.Time
}

func NewHealthHandler(pool *tts.WorkerPool, cache *tts.Cache, roster *voices.Roster, hasTTS, hasDialog bool, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		pool:      pool,
		cache:     cache,
		roster:    roster,
		hasTTS:    hasTTS,
		hasDialog: hasDialog,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"

	// Provider configuration: the engine runs without keys but can only
	// serve cached or already stored audio, so report degraded.
	if h.hasTTS {
		checks["tts_provider"] = "ok"
	} else {
		checks["tts_provider"] = "not_configured"
		status = "degraded"
	}
	if h.hasDialog {
		checks["dialog_provider"] = "ok"
	} else {
		checks["dialog_provider"] = "not_configured"
	}

	queue := h.pool.Stats()
	checks["synthesis_queue"] = "ok"

	resp := HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
		Queue:         queue,
		Cache:         h.cache.Stats(),
		Voices:        len(h.roster.Snapshot()),
	}
	WriteJSON(w, http.StatusOK, resp)
}
