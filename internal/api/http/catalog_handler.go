package http

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/veranemoloko/soundtrack-downloader/internal/catalog"
	"github.com/veranemoloko/soundtrack-downloader/internal/domain"
	errpkg "github.com/veranemoloko/soundtrack-downloader/internal/errors"
	"github.com/veranemoloko/soundtrack-downloader/internal/validation"
)

// Home handles GET /home.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.HomeSections(r.Context()))
}

// Search handles POST /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req domain.SearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("failed to decode request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "No search query provided")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.logger.Warn("validation failed", "error", err)
		writeError(w, http.StatusBadRequest, validation.Message(err))
		return
	}

	results := h.catalog.Search(r.Context(), req.Query)
	h.logger.Info("search served", "query", req.Query, "results", len(results))
	writeJSON(w, http.StatusOK, domain.SearchResponse{Results: results})
}

// GetAlbum handles GET /albums/{albumID}.
func (h *Handler) GetAlbum(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "albumID")
	if decoded, err := url.PathUnescape(albumID); err == nil {
		albumID = decoded
	}

	album, err := h.catalog.AlbumDetail(r.Context(), albumID)
	if err != nil {
		if errors.Is(err, errpkg.ErrAlbumNotFound) {
			writeError(w, http.StatusNotFound, "Album not found")
			return
		}
		h.logger.Error("failed to get album", "album_id", albumID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, album)
}

// Stream handles GET /stream?p={track page URL}. Range requests are forwarded so
// players can seek.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	pageURL := strings.TrimSpace(r.URL.Query().Get("p"))
	if pageURL == "" {
		writeError(w, http.StatusBadRequest, "missing param p")
		return
	}
	if err := h.validator.TrackPage(pageURL); err != nil {
		h.logger.Warn("rejected stream target", "url", pageURL, "error", err)
		writeError(w, http.StatusBadRequest, "p must be a track page URL on the site")
		return
	}

	res, err := h.streamer.Stream(r.Context(), pageURL, r.Header.Get("Range"))
	if err != nil {
		if catalog.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "could not resolve download link")
			return
		}
		h.logger.Error("stream failed", "url", pageURL, "error", err)
		writeError(w, http.StatusBadGateway, "upstream request failed")
		return
	}
	defer res.Body.Close()

	for k, vs := range res.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(res.Status)

	if _, err := io.Copy(w, res.Body); err != nil {
		h.logger.Debug("stream interrupted", "url", pageURL, "error", err)
	}
}
