package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"framesync/internal/httputil"
	"framesync/internal/model"
	"framesync/internal/repository"
	"framesync/internal/service"
)

type DeviceHandler struct {
	devices  repository.DeviceRepository
	selector *service.SelectorService
}

func NewDeviceHandler(devices repository.DeviceRepository, selector *service.SelectorService) *DeviceHandler {
	return &DeviceHandler{devices: devices, selector: selector}
}

// Register handles POST /api/devices/register
// Registration is an upsert: a repeated id updates name/type/metadata but
// keeps the original registration time. Returns 201 only for new devices.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	req.DeviceID = strings.TrimSpace(req.DeviceID)
	if req.DeviceID == "" {
		httputil.WriteBadRequest(w, "device_id is required")
		return
	}
	if req.Name == "" {
		req.Name = req.DeviceID
	}
	if req.DeviceType == "" {
		req.DeviceType = model.DefaultDeviceType
	}

	device := &model.Device{
		DeviceID:   req.DeviceID,
		Name:       req.Name,
		DeviceType: req.DeviceType,
		Metadata:   req.Metadata,
	}

	isNew, err := h.devices.Upsert(r.Context(), device)
	if err != nil {
		httputil.WriteInternalError(w, "Failed to register device")
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, device)
}

// List handles GET /api/devices
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.List(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, "Failed to list devices")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"devices": devices})
}

// Delete handles DELETE /api/devices/{id}
// Assignments and queued notifications go with the device.
func (h *DeviceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	existed, err := h.devices.Delete(r.Context(), deviceID)
	if err != nil {
		httputil.WriteInternalError(w, "Failed to delete device")
		return
	}
	if !existed {
		httputil.WriteNotFound(w, "Device not found")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"deleted": deviceID})
}

// Images handles GET /api/devices/{id}/images
// Query params: search, from, to (YYYY-MM-DD, inclusive), uploader.
func (h *DeviceHandler) Images(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	filters, err := parseImageFilters(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	images, err := h.selector.ListForDevice(r.Context(), deviceID, filters)
	if err != nil {
		if errors.Is(err, model.ErrDeviceNotFound) {
			httputil.WriteNotFound(w, "Device not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to list images")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"device_id": deviceID,
		"images":    images,
	})
}

// Next handles GET /api/devices/{id}/next
func (h *DeviceHandler) Next(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	img, err := h.selector.PickNext(r.Context(), deviceID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrDeviceNotFound):
			httputil.WriteNotFound(w, "Device not found")
		case errors.Is(err, model.ErrNoContent):
			httputil.WriteNotFound(w, "No content available for device")
		default:
			httputil.WriteInternalError(w, "Failed to pick next image")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, img)
}

// Heartbeat handles POST /api/devices/{id}/heartbeat
func (h *DeviceHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	if err := h.selector.Heartbeat(r.Context(), deviceID); err != nil {
		if errors.Is(err, model.ErrDeviceNotFound) {
			httputil.WriteNotFound(w, "Device not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to record heartbeat")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"device_id": deviceID, "status": "ok"})
}

func parseImageFilters(r *http.Request) (model.ImageFilters, error) {
	q := r.URL.Query()
	filters := model.ImageFilters{
		Search:     q.Get("search"),
		UploaderIP: q.Get("uploader"),
	}

	if from := q.Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return filters, errors.New("from must be YYYY-MM-DD")
		}
		filters.UploadedFrom = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return filters, errors.New("to must be YYYY-MM-DD")
		}
		// Inclusive day bound.
		filters.UploadedTo = t.Add(24*time.Hour - time.Nanosecond)
	}

	return filters, nil
}
