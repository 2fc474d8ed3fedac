package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"framesync/internal/httputil"
	"framesync/internal/model"
	"framesync/internal/service"
)

type DisplayHandler struct {
	displayService *service.DisplayService
}

func NewDisplayHandler(displayService *service.DisplayService) *DisplayHandler {
	return &DisplayHandler{displayService: displayService}
}

// Show handles POST /api/display/{filename}
// The target device comes from the body or the device_id query param.
func (h *DisplayHandler) Show(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" && r.Body != nil {
		var req struct {
			DeviceID string `json:"device_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			deviceID = req.DeviceID
		}
	}
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		httputil.WriteBadRequest(w, "device_id is required")
		return
	}

	if err := h.displayService.Show(r.Context(), deviceID, filename); err != nil {
		switch {
		case errors.Is(err, model.ErrDeviceNotFound):
			httputil.WriteNotFound(w, "Device not found")
		case errors.Is(err, model.ErrImageNotFound):
			httputil.WriteNotFound(w, "Image not found")
		case errors.Is(err, model.ErrDisplayFailed):
			httputil.WriteBadGateway(w, "Display command failed")
		default:
			httputil.WriteInternalError(w, "Failed to display image")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"device_id": deviceID,
		"displayed": filename,
	})
}

// Current handles GET /api/devices/{id}/display
func (h *DisplayHandler) Current(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	filename, err := h.displayService.Current(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, model.ErrDeviceNotFound) {
			httputil.WriteNotFound(w, "Device not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to read display state")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"device_id": deviceID,
		"current":   filename,
	})
}
