// Package app wires the components shared by the server and the CLI.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	h "github.com/veranemoloko/soundtrack-downloader/internal/api/http"
	"github.com/veranemoloko/soundtrack-downloader/internal/catalog"
	"github.com/veranemoloko/soundtrack-downloader/internal/config"
	"github.com/veranemoloko/soundtrack-downloader/internal/fetch"
	repo "github.com/veranemoloko/soundtrack-downloader/internal/repository"
	"github.com/veranemoloko/soundtrack-downloader/internal/scraper"
	svc "github.com/veranemoloko/soundtrack-downloader/internal/service"
	"github.com/veranemoloko/soundtrack-downloader/internal/validation"
	"github.com/veranemoloko/soundtrack-downloader/internal/worker"
)

// App holds the wired services.
type App struct {
	Config    *config.Config
	Catalog   *catalog.Client
	Sessions  *repo.SessionStorage
	Downloads *svc.DownloadService
	Streams   *svc.StreamService
	Validator *validation.Validator
	Logger    *slog.Logger
}

// New builds every component from cfg. When persist is false the session state file is not used.
func New(cfg *config.Config, logger *slog.Logger, persist bool) (*App, error) {
	pages := fetch.New(fetch.Options{
		Timeout:        cfg.FetchTimeout,
		MaxAttempts:    cfg.MaxFetchAttempts,
		BackoffBase:    cfg.BackoffBase,
		RequestsPerSec: cfg.RequestsPerSec,
		Burst:          cfg.RequestBurst,
		Logger:         logger.With("component", "fetch"),
	})
	// Audio bodies take far longer than pages; streams are bounded only by the time to first byte.
	media := pages.WithClient(&http.Client{Timeout: cfg.DownloadTimeout})
	streams := pages.WithClient(&http.Client{Transport: &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: cfg.StreamTimeout,
	}})

	parser, err := scraper.New(cfg.BaseURL, cfg.MediaHosts)
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}
	client := catalog.NewClient(pages, parser, logger)

	stateFile := cfg.StateFile
	if !persist {
		stateFile = ""
	}
	sessions, err := repo.NewSessionStorage(repo.StorageOptions{
		StateFile:   stateFile,
		TTL:         cfg.SessionTTL,
		MaxSessions: cfg.MaxSessions,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session storage: %w", err)
	}

	tracks := worker.NewDownloadWorker(media, worker.Options{
		Timeout:       cfg.DownloadTimeout,
		MinTrackBytes: cfg.MinTrackBytes,
		MaxFileSize:   cfg.MaxFileSize,
	}, logger.With("component", "worker"))

	downloads := svc.NewDownloadService(sessions, client, tracks, svc.DownloadOptions{
		DefaultDir:    cfg.DownloadDir,
		MaxConcurrent: int64(cfg.MaxConcurrentDownloads),
		TrackDelayMin: cfg.TrackDelayMin,
		TrackDelayMax: cfg.TrackDelayMax,
	}, logger.With("component", "downloads"))

	return &App{
		Config:    cfg,
		Catalog:   client,
		Sessions:  sessions,
		Downloads: downloads,
		Streams:   svc.NewStreamService(client, streams, logger.With("component", "stream")),
		Validator: validation.New(cfg.SiteHost()),
		Logger:    logger,
	}, nil
}

// Router returns the HTTP API.
func (a *App) Router() *chi.Mux {
	handler := h.NewHandler(a.Catalog, a.Downloads, a.Streams, a.Validator, a.Logger.With("component", "api"))
	return h.NewRouter(handler)
}
