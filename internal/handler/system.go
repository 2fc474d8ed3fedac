package handler

import (
	"net/http"

	"framesync/internal/httputil"
	"framesync/internal/repository"
	"framesync/internal/service"
)

type SystemHandler struct {
	storage *service.StorageService
	stats   repository.StatsRepository
}

func NewSystemHandler(storage *service.StorageService, stats repository.StatsRepository) *SystemHandler {
	return &SystemHandler{storage: storage, stats: stats}
}

// Health handles GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Storage handles GET /api/storage
func (h *SystemHandler) Storage(w http.ResponseWriter, r *http.Request) {
	usage := h.storage.Usage(r.Context())
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"usage":   usage,
		"warning": h.storage.IsWarning(r.Context()),
	})
}

// Stats handles GET /api/stats
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, "Failed to collect stats")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}
