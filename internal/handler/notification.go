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

type NotificationHandler struct {
	notificationService *service.NotificationService
}

func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// Enqueue handles POST /api/notifications
func (h *NotificationHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req model.EnqueueNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	req.DeviceID = strings.TrimSpace(req.DeviceID)
	if req.DeviceID == "" {
		httputil.WriteBadRequest(w, "device_id is required")
		return
	}

	n, err := h.notificationService.Enqueue(r.Context(), req.DeviceID, req.Action, req.ImageFilename)
	if err != nil {
		if errors.Is(err, model.ErrDeviceNotFound) {
			httputil.WriteNotFound(w, "Device not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to enqueue notification")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, n)
}

// Drain handles GET /api/devices/{id}/notifications
// Returns pending notifications oldest-first; entries stay queued until
// acknowledged.
func (h *NotificationHandler) Drain(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	notifications, err := h.notificationService.Drain(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, model.ErrDeviceNotFound) {
			httputil.WriteNotFound(w, "Device not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to list notifications")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"device_id":     deviceID,
		"notifications": notifications,
	})
}

// Acknowledge handles DELETE /api/notifications/{id}
func (h *NotificationHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.notificationService.Acknowledge(r.Context(), id); err != nil {
		if errors.Is(err, model.ErrNotificationNotFound) {
			httputil.WriteNotFound(w, "Notification not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to acknowledge notification")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"acknowledged": id})
}
