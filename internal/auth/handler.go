package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type guestRequest struct {
	DisplayName string `json:"displayName"`
}

// Guest handles POST /auth/guest. The body is optional.
func (h *Handler) Guest(w http.ResponseWriter, r *http.Request) {
	var req guestRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	result, err := h.service.Guest(req.DisplayName)
	if err != nil {
		if errors.Is(err, ErrInvalidDisplayName) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "displayName must be at most 64 characters"})
			return
		}
		slog.Error("issue guest token failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Me handles GET /auth/me and echoes the authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
