package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"framesync/internal/httputil"
	"framesync/internal/model"
	"framesync/internal/service"
)

type ImageHandler struct {
	imageService *service.ImageService
}

func NewImageHandler(imageService *service.ImageService) *ImageHandler {
	return &ImageHandler{imageService: imageService}
}

// Upload handles POST /api/upload
// Accepts multipart form data with a "file" part and an optional "devices"
// part holding comma-separated device ids to assign immediately.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Multipart overhead on top of the image payload itself.
	r.Body = http.MaxBytesReader(w, r.Body, 64<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteBadRequest(w, "failed to read file")
		return
	}

	var deviceIDs []string
	for _, raw := range r.Form["devices"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				deviceIDs = append(deviceIDs, id)
			}
		}
	}

	img, err := h.imageService.Ingest(r.Context(), data, header.Filename, clientIP(r), deviceIDs)
	if err != nil {
		writeIngestError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, img)
}

// List handles GET /api/images?sort=date_taken
func (h *ImageHandler) List(w http.ResponseWriter, r *http.Request) {
	images, err := h.imageService.List(r.Context(), r.URL.Query().Get("sort"))
	if err != nil {
		httputil.WriteInternalError(w, "Failed to list images")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"images": images})
}

// Delete handles DELETE /api/images/{filename}
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	if err := h.imageService.Delete(r.Context(), filename); err != nil {
		if errors.Is(err, model.ErrImageNotFound) {
			httputil.WriteNotFound(w, "Image not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to delete image")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"deleted": filename})
}

// BulkDelete handles POST /api/images/bulk-delete
func (h *ImageHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req model.BulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if len(req.Filenames) == 0 {
		httputil.WriteBadRequest(w, "filenames is required")
		return
	}

	result, err := h.imageService.BulkDelete(r.Context(), req.Filenames)
	if err != nil {
		if errors.Is(err, model.ErrTooManyItems) {
			httputil.WriteBadRequest(w, "Too many items in one batch")
			return
		}
		httputil.WriteInternalError(w, "Bulk delete failed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// BulkReplaceDevices handles POST /api/images/bulk-devices
func (h *ImageHandler) BulkReplaceDevices(w http.ResponseWriter, r *http.Request) {
	var req model.BulkDeviceUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if len(req.Items) == 0 {
		httputil.WriteBadRequest(w, "items is required")
		return
	}

	result, err := h.imageService.BulkReplaceDevices(r.Context(), req.Items)
	if err != nil {
		if errors.Is(err, model.ErrTooManyItems) {
			httputil.WriteBadRequest(w, "Too many items in one batch")
			return
		}
		httputil.WriteInternalError(w, "Bulk update failed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// ReplaceDevices handles POST /api/images/{filename}/devices
// Atomically replaces the image's full assignment set.
func (h *ImageHandler) ReplaceDevices(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	var req struct {
		DeviceIDs []string `json:"device_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := h.imageService.ReplaceDevices(r.Context(), filename, req.DeviceIDs); err != nil {
		switch {
		case errors.Is(err, model.ErrImageNotFound):
			httputil.WriteNotFound(w, "Image not found")
		case errors.Is(err, model.ErrDeviceNotFound):
			httputil.WriteBadRequest(w, "Unknown device in device_ids")
		default:
			httputil.WriteInternalError(w, "Failed to update devices")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"filename":   filename,
		"device_ids": req.DeviceIDs,
	})
}

// GetDevices handles GET /api/images/{filename}/devices
func (h *ImageHandler) GetDevices(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	deviceIDs, err := h.imageService.GetDevices(r.Context(), filename)
	if err != nil {
		if errors.Is(err, model.ErrImageNotFound) {
			httputil.WriteNotFound(w, "Image not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to list devices")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"filename":   filename,
		"device_ids": deviceIDs,
	})
}

// ServeOriginal handles GET /uploads/{filename}
func (h *ImageHandler) ServeOriginal(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	data, img, err := h.imageService.Open(r.Context(), filename)
	if err != nil {
		if errors.Is(err, model.ErrImageNotFound) {
			httputil.WriteNotFound(w, "Image not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to read image")
		return
	}

	if img.MimeType != "" {
		w.Header().Set("Content-Type", img.MimeType)
	}
	w.Write(data)
}

// ServeThumbnail handles GET /thumbnails/{filename}
// Thumbnails are always JPEG; a missing thumbnail falls back to the original.
func (h *ImageHandler) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	data, err := h.imageService.OpenThumbnail(r.Context(), filename)
	if err != nil {
		if errors.Is(err, model.ErrImageNotFound) {
			httputil.WriteNotFound(w, "Image not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to read thumbnail")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(data)
}

func writeIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidFileType):
		httputil.WriteBadRequestWithCode(w, model.CodeInvalidFileType, "File type not allowed")
	case errors.Is(err, model.ErrFileTooLarge):
		httputil.WritePayloadTooLarge(w, model.CodeFileTooLarge, "File exceeds the upload size limit")
	case errors.Is(err, model.ErrQuotaExceeded):
		httputil.WritePayloadTooLarge(w, model.CodeQuotaExceeded, "Storage quota exceeded")
	case errors.Is(err, model.ErrInvalidImage):
		httputil.WriteBadRequestWithCode(w, model.CodeInvalidImage, "File is not a valid image")
	case errors.Is(err, model.ErrDuplicateImage):
		httputil.WriteConflict(w, "An image with this filename already exists")
	case errors.Is(err, model.ErrDeviceNotFound):
		httputil.WriteBadRequest(w, "Unknown device in devices")
	default:
		httputil.WriteInternalError(w, "Upload failed")
	}
}

// clientIP extracts the uploader address, honoring X-Forwarded-For when a
// proxy sits in front.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
