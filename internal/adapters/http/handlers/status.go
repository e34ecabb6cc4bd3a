package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ufogalaxy/devicelink/internal/adapters/http/encoding"
	"github.com/ufogalaxy/devicelink/internal/link"
)

// StatsSource is anything that can report link statistics.
type StatsSource interface {
	Stats() link.Stats
}

type StatusHandler struct {
	source  StatsSource
	version string
	started time.Time
	logger  *slog.Logger
}

func NewStatusHandler(source StatsSource, version string, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		source:  source,
		version: version,
		started: time.Now(),
		logger:  logger,
	}
}

type statusResponse struct {
	Version string     `json:"version"`
	Uptime  string     `json:"uptime"`
	Link    link.Stats `json:"link"`
}

// Status reports the link snapshot as JSON, or msgpack when asked for it.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version: h.version,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Link:    h.source.Stats(),
	}
	if err := encoding.Write(w, r, http.StatusOK, resp); err != nil {
		h.logger.Warn("failed to write status", "error", err)
	}
}

// Health is 200 while the link is connected and 503 otherwise.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.source.Stats()
	status := http.StatusOK
	if stats.State != link.Connected {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, map[string]any{
		"status": stats.State.String(),
	}, status)
}
