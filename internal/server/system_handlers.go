package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/slippax/lotus-ge/internal/database"
	"github.com/slippax/lotus-ge/internal/summaries"
)

// SystemHandlers serves health and status endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	summaries   *summaries.Service
	snapshotsDB *database.DB
	relay       ConnectionStatus
	startedAt   time.Time
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(log zerolog.Logger, svc *summaries.Service, snapshotsDB *database.DB, relay ConnectionStatus, startedAt time.Time) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		summaries:   svc,
		snapshotsDB: snapshotsDB,
		relay:       relay,
		startedAt:   startedAt,
	}
}

// HandleHealth handles GET /health and GET /api/health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "disabled"

	if h.snapshotsDB != nil {
		dbStatus = "ok"
		if err := h.snapshotsDB.QuickCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("Snapshot database ping failed")
			dbStatus = "error"
			status = "degraded"
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"database":  dbStatus,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// HandleSystemStatus handles GET /api/status.
// Reports process uptime, host load, per-category cache ages and the refresh
// relay's connection state.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	system := map[string]interface{}{
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		system["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		system["memory_percent"] = vm.UsedPercent
		system["memory_used_mb"] = vm.Used / 1024 / 1024
	}

	caches := make(map[string]interface{})
	for category, age := range h.summaries.Ages() {
		caches[string(category)] = map[string]interface{}{
			"age_ms": age.Milliseconds(),
		}
	}

	relayConnected := false
	if h.relay != nil {
		relayConnected = h.relay.IsConnected()
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"system": system,
		"caches": caches,
		"relay": map[string]interface{}{
			"enabled":   h.relay != nil,
			"connected": relayConnected,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// writeJSON writes a JSON response with the given status code
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
