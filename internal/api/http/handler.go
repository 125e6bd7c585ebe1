package http

import (
	"context"
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/veranemoloko/soundtrack-downloader/internal/domain"
	"github.com/veranemoloko/soundtrack-downloader/internal/service"
	"github.com/veranemoloko/soundtrack-downloader/internal/validation"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Catalog exposes site lookups.
type Catalog interface {
	Search(ctx context.Context, query string) []domain.AlbumSummary
	HomeSections(ctx context.Context) domain.HomeSections
	AlbumDetail(ctx context.Context, idOrURL string) (*domain.AlbumDetail, error)
}

// DownloadManager runs and tracks album downloads.
type DownloadManager interface {
	StartDownload(ctx context.Context, req *domain.StartDownloadRequest) (*domain.DownloadSession, error)
	GetSession(ctx context.Context, id string) (*domain.DownloadSession, error)
	ListSessions(ctx context.Context, status domain.SessionStatus) ([]*domain.DownloadSession, error)
	CancelSession(ctx context.Context, id string) (*domain.DownloadSession, error)
}

// Streamer relays track audio.
type Streamer interface {
	Stream(ctx context.Context, pageURL, rangeHeader string) (*service.StreamResult, error)
}

// Handler serves the JSON API.
type Handler struct {
	catalog   Catalog
	downloads DownloadManager
	streamer  Streamer
	validator *validation.Validator
	logger    *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(
	catalog Catalog,
	downloads DownloadManager,
	streamer Streamer,
	validator *validation.Validator,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		catalog:   catalog,
		downloads: downloads,
		streamer:  streamer,
		validator: validator,
		logger:    logger,
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
