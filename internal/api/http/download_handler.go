package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/veranemoloko/soundtrack-downloader/internal/domain"
	errpkg "github.com/veranemoloko/soundtrack-downloader/internal/errors"
	"github.com/veranemoloko/soundtrack-downloader/internal/validation"
)

// StartDownload handles POST /downloads.
func (h *Handler) StartDownload(w http.ResponseWriter, r *http.Request) {
	var req domain.StartDownloadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("failed to decode request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.AlbumID = strings.TrimSpace(req.AlbumID)
	if req.AlbumID == "" {
		writeError(w, http.StatusBadRequest, "No album ID provided")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.logger.Warn("validation failed", "error", err)
		writeError(w, http.StatusBadRequest, validation.Message(err))
		return
	}

	session, err := h.downloads.StartDownload(r.Context(), &req)
	if err != nil {
		if errors.Is(err, errpkg.ErrShuttingDown) {
			writeError(w, http.StatusServiceUnavailable, "service is shutting down")
			return
		}
		h.logger.Error("failed to start download", "album_id", req.AlbumID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusAccepted, domain.StartDownloadResponse{
		Status:    "started",
		SessionID: session.ID,
		Message:   "Download started",
	})
}

// GetSession handles GET /downloads/{sessionID}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.downloads.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, errpkg.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "download session not found")
			return
		}
		h.logger.Error("failed to get session", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// ListSessions handles GET /downloads with an optional status filter.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	status := domain.SessionStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown status: "+string(status))
		return
	}

	sessions, err := h.downloads.ListSessions(r.Context(), status)
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
	})
}

// CancelSession handles POST /downloads/{sessionID}/cancel.
func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	_, err := h.downloads.CancelSession(r.Context(), sessionID)
	switch {
	case errors.Is(err, errpkg.ErrSessionNotFound), errors.Is(err, errpkg.ErrSessionNotActive):
		writeError(w, http.StatusNotFound, "Download not found")
		return
	case err != nil:
		h.logger.Error("failed to cancel session", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("download cancelled", "session_id", sessionID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
