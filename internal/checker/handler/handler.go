// Package handler implements the checker's HTTP endpoints: corpus
// management, pairwise comparison, and full corpus scans.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/docsim/docsim/internal/checker"
	apperrors "github.com/docsim/docsim/pkg/errors"
	"github.com/docsim/docsim/pkg/logger"
)

type Handler struct {
	service *checker.Service
	logger  *slog.Logger
}

func New(service *checker.Service) *Handler {
	return &Handler{
		service: service,
		logger:  slog.Default().With("component", "checker-handler"),
	}
}

// AddDocument adds one document to the comparison corpus.
func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	var req checker.AddDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	info, err := h.service.AddDocument(r.Context(), req.Name, req.Text)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, info)
}

// ListDocuments returns the corpus listing with per-document token counts.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.ListDocuments(r.Context()))
}

// ClearCorpus removes every document from the corpus.
func (h *Handler) ClearCorpus(w http.ResponseWriter, r *http.Request) {
	removed := h.service.ClearCorpus(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "cleared",
		"removed": removed,
	})
}

// Compare scores two texts against each other in isolation.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	var req checker.CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.service.ComparePair(r.Context(), req.TextA, req.TextB)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Scan scores every document pair in the corpus. The body is optional; an
// empty body scans with the default threshold and no result limit.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req checker.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.service.ScanCorpus(r.Context(), req)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// CacheStats reports pair-cache hit and miss counts.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	hits, misses, enabled := h.service.CacheStats()
	if !enabled {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate drops every cached pair score.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if _, _, enabled := h.service.CacheStats(); !enabled {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.service.InvalidateCache(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps a service error onto its HTTP status. AppError
// messages pass through except on plain 500s, which get a generic message
// so internals stay out of response bodies.
func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := "internal error"

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && status != http.StatusInternalServerError {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	h.writeError(w, status, message)
}
