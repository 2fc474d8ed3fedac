package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"framesync/internal/httputil"
	"framesync/internal/model"
	"framesync/internal/repository"
)

type UserHandler struct {
	users repository.UserRepository
}

func NewUserHandler(users repository.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

// List handles GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListWithImageCounts(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, "Failed to list users")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// SetName handles POST /api/user/name
// Names the caller's own IP; creates the user row when none exists yet.
func (h *UserHandler) SetName(w http.ResponseWriter, r *http.Request) {
	var req model.SetNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	user, err := h.users.Upsert(r.Context(), clientIP(r), req.Name)
	if err != nil {
		httputil.WriteInternalError(w, "Failed to set name")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}
