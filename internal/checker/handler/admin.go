package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/docsim/docsim/internal/auth/apikey"
)

// AdminHandler manages API keys. It is only mounted when the checker runs
// with PostgreSQL configured.
type AdminHandler struct {
	validator *apikey.Validator
	logger    *slog.Logger
}

func NewAdmin(validator *apikey.Validator) *AdminHandler {
	return &AdminHandler{
		validator: validator,
		logger:    slog.Default().With("component", "admin-handler"),
	}
}

// CreateAPIKey creates a new API key and returns the raw key, shown once.
func (h *AdminHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		RateLimit int    `json:"rate_limit"`
		ExpiresIn string `json:"expires_in,omitempty"` // Go duration, e.g. "720h"
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.RateLimit <= 0 {
		req.RateLimit = 60
	}

	var expiresAt *time.Time
	if req.ExpiresIn != "" {
		d, err := time.ParseDuration(req.ExpiresIn)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid expires_in duration")
			return
		}
		t := time.Now().Add(d)
		expiresAt = &t
	}

	key, err := h.validator.CreateKey(r.Context(), req.Name, req.RateLimit, expiresAt)
	if err != nil {
		h.logger.Error("failed to create api key", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to create api key")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{
		"api_key": key,
		"name":    req.Name,
		"message": "store this key securely; it cannot be retrieved again",
	})
}

// ListAPIKeys returns all active API keys, without hashes.
func (h *AdminHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.validator.ListKeys(r.Context())
	if err != nil {
		h.logger.Error("failed to list api keys", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list api keys")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"keys":  keys,
		"count": len(keys),
	})
}

// RevokeAPIKey deactivates a key by ID.
func (h *AdminHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "key id is required")
		return
	}

	if err := h.validator.RevokeKey(r.Context(), id); err != nil {
		if errors.Is(err, apikey.ErrInvalidKey) {
			h.writeError(w, http.StatusNotFound, "key not found or already revoked")
			return
		}
		h.logger.Error("failed to revoke api key", "id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to revoke api key")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "revoked",
		"id":     id,
	})
}

func (h *AdminHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *AdminHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
