package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/veranemoloko/soundtrack-downloader/internal/domain"
	errpkg "github.com/veranemoloko/soundtrack-downloader/internal/errors"
	"github.com/veranemoloko/soundtrack-downloader/internal/metrics"
	repo "github.com/veranemoloko/soundtrack-downloader/internal/repository"
	"github.com/veranemoloko/soundtrack-downloader/internal/storage"
	"github.com/veranemoloko/soundtrack-downloader/internal/worker"
)

// AlbumResolver looks up albums and the audio files behind their track pages.
type AlbumResolver interface {
	AlbumDetail(ctx context.Context, idOrURL string) (*domain.AlbumDetail, error)
	ResolveAudioLink(ctx context.Context, trackURL string) (string, error)
}

// TrackDownloader writes one audio file to disk.
type TrackDownloader interface {
	DownloadTrack(ctx context.Context, audioURL string, files *storage.FileStorage, filename string) (worker.TrackResult, error)
}

// DownloadOptions configures a DownloadService.
type DownloadOptions struct {
	// DefaultDir receives downloads when the request names no output path.
	DefaultDir string
	// MaxConcurrent caps albums downloading at the same time.
	MaxConcurrent int64
	// TrackDelayMin and TrackDelayMax bound the random pause between tracks.
	TrackDelayMin time.Duration
	TrackDelayMax time.Duration
}

// DownloadService runs album downloads in the background and tracks their progress
// in a session repository.
type DownloadService struct {
	sessions repo.SessionRepo
	albums   AlbumResolver
	tracks   TrackDownloader
	opts     DownloadOptions
	slots    *semaphore.Weighted
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDownloadService creates a new DownloadService.
func NewDownloadService(
	sessions repo.SessionRepo,
	albums AlbumResolver,
	tracks TrackDownloader,
	opts DownloadOptions,
	logger *slog.Logger,
) *DownloadService {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.TrackDelayMax < opts.TrackDelayMin {
		opts.TrackDelayMax = opts.TrackDelayMin
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &DownloadService{
		sessions: sessions,
		albums:   albums,
		tracks:   tracks,
		opts:     opts,
		slots:    semaphore.NewWeighted(opts.MaxConcurrent),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// StartDownload registers a new session and downloads the album in the background.
// It returns as soon as the session is stored.
func (s *DownloadService) StartDownload(ctx context.Context, req *domain.StartDownloadRequest) (*domain.DownloadSession, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errpkg.ErrShuttingDown
	}
	s.wg.Add(1)
	s.mu.Unlock()

	session, err := s.register(ctx, req)
	if err != nil {
		s.wg.Done()
		return nil, err
	}

	selection := req.Selection()
	go func() {
		defer s.wg.Done()
		s.run(session.ID, session.AlbumID, session.Destination, selection)
	}()

	s.logger.Info("download started",
		"session_id", session.ID,
		"album_id", session.AlbumID,
		"destination", session.Destination,
	)
	return session, nil
}

func (s *DownloadService) register(ctx context.Context, req *domain.StartDownloadRequest) (*domain.DownloadSession, error) {
	dest, err := storage.ResolveDestination(s.opts.DefaultDir, req.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	session := &domain.DownloadSession{
		ID:          id.String(),
		AlbumID:     req.AlbumID,
		Status:      domain.SessionStatusStarting,
		Message:     "Getting album information...",
		Destination: dest,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	metrics.SessionsStarted.Inc()

	return s.sessions.Get(ctx, session.ID)
}

// run waits for a free download slot. Sessions waiting for a slot stay "starting".
func (s *DownloadService) run(sessionID, albumID, dest string, selection domain.Selection) {
	if err := s.slots.Acquire(s.ctx, 1); err != nil {
		s.finish(sessionID, domain.SessionStatusError, "Download failed: service is shutting down", nil)
		return
	}
	defer s.slots.Release(1)

	s.DownloadAlbum(s.ctx, sessionID, albumID, dest, selection)
}

// DownloadAlbum downloads the selected tracks of an album into dest, one at a time in
// album order, publishing progress to the session. Cancellation is checked before each
// track; a track already in flight is finished. It reports whether at least one track
// was saved.
func (s *DownloadService) DownloadAlbum(ctx context.Context, sessionID, albumID, dest string, selection domain.Selection) (ok bool) {
	logger := s.logger.With("session_id", sessionID, "album_id", albumID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("download panicked", "panic", r)
			s.finish(sessionID, domain.SessionStatusError, fmt.Sprintf("Download failed: %v", r), nil)
			ok = false
		}
	}()

	if !s.sessions.IsActive(sessionID) {
		logger.Info("download cancelled before start")
		return false
	}

	album, err := s.albums.AlbumDetail(ctx, albumID)
	if err != nil {
		logger.Warn("album lookup failed", "error", err)
		s.finish(sessionID, domain.SessionStatusError, "Album not found: "+albumID, nil)
		return false
	}

	tracks := selection.Apply(album.Tracks)
	total := len(tracks)
	if total == 0 {
		s.finish(sessionID, domain.SessionStatusError, "No tracks to download", nil)
		return false
	}

	albumDir := filepath.Join(dest, storage.AlbumDirName(album.Title))
	files := storage.NewFileStorage(albumDir)
	if err := files.EnsureDir(); err != nil {
		logger.Error("failed to create album directory", "dir", albumDir, "error", err)
		s.finish(sessionID, domain.SessionStatusError, fmt.Sprintf("Download failed: %v", err), nil)
		return false
	}

	if !s.progress(sessionID, func(sess *domain.DownloadSession) {
		sess.Status = domain.SessionStatusDownloading
		sess.TotalTracks = total
		sess.AlbumDir = albumDir
		sess.Message = fmt.Sprintf("Downloading %d tracks from \"%s\"", total, album.Title)
	}) {
		s.finish(sessionID, domain.SessionStatusError, "Download failed: could not record progress", nil)
		return false
	}

	done, failed, skipped := 0, 0, 0
	var written int64
	for i, track := range tracks {
		if ctx.Err() != nil || !s.sessions.IsActive(sessionID) {
			break
		}

		pos := i + 1
		if !s.progress(sessionID, func(sess *domain.DownloadSession) {
			sess.CurrentTrack = pos
			sess.CurrentFile = track.Name
			sess.Message = fmt.Sprintf("Downloading: %s (%d/%d)", track.Name, pos, total)
		}) {
			break
		}

		if result, saved := s.downloadTrack(ctx, logger, track, files); saved {
			done++
			written += result.Bytes
			if result.Skipped {
				skipped++
			}
			metrics.TracksSucceeded.Inc()
		} else {
			failed++
			metrics.TracksFailed.Inc()
		}
		s.progress(sessionID, func(sess *domain.DownloadSession) {
			sess.Succeeded = done
			sess.Failed = failed
			sess.Skipped = skipped
			sess.Bytes = written
		})

		if pos < total {
			if err := sleepContext(ctx, s.trackDelay()); err != nil {
				break
			}
		}
	}

	switch {
	case ctx.Err() != nil:
		s.finish(sessionID, domain.SessionStatusError, "Download failed: service is shutting down", nil)
	case s.sessions.IsActive(sessionID):
		s.finish(sessionID, domain.SessionStatusCompleted,
			fmt.Sprintf("Downloaded %d/%d tracks to: %s", done, total, albumDir),
			func(sess *domain.DownloadSession) { sess.CurrentTrack = done })
	default:
		s.finish(sessionID, domain.SessionStatusCancelled, "Download cancelled", nil)
	}

	logger.Info("download finished", "succeeded", done, "skipped", skipped, "failed", failed, "total", total)
	return done > 0
}

func (s *DownloadService) downloadTrack(ctx context.Context, logger *slog.Logger, track domain.Track, files *storage.FileStorage) (worker.TrackResult, bool) {
	link, err := s.albums.ResolveAudioLink(ctx, track.URL)
	if err != nil {
		logger.Warn("track link not resolved", "track", track.Name, "url", track.URL, "error", err)
		return worker.TrackResult{}, false
	}

	filename := storage.TrackFileName(track.Ordinal, track.Name, link)
	result, err := s.tracks.DownloadTrack(ctx, link, files, filename)
	if err != nil {
		logger.Warn("track download failed", "track", track.Name, "error", err)
		return result, false
	}
	return result, true
}

// progress applies a non-terminal update and reports whether the session accepted it.
func (s *DownloadService) progress(sessionID string, fn func(*domain.DownloadSession)) bool {
	_, err := s.sessions.Update(context.Background(), sessionID, func(sess *domain.DownloadSession) error {
		fn(sess)
		return nil
	})
	if err != nil {
		if !errors.Is(err, errpkg.ErrSessionFinished) {
			s.logger.Error("failed to update session", "session_id", sessionID, "error", err)
		}
		return false
	}
	return true
}

// finish moves the session to a terminal status. Sessions already finished, for
// example cancelled by a client, are left untouched.
func (s *DownloadService) finish(sessionID string, status domain.SessionStatus, message string, fn func(*domain.DownloadSession)) {
	_, err := s.sessions.Update(context.Background(), sessionID, func(sess *domain.DownloadSession) error {
		sess.Status = status
		sess.Message = message
		if fn != nil {
			fn(sess)
		}
		return nil
	})
	switch {
	case errors.Is(err, errpkg.ErrSessionFinished):
		return
	case err != nil:
		s.logger.Error("failed to finish session", "session_id", sessionID, "status", status, "error", err)
		return
	}
	metrics.SessionsFinished.WithLabelValues(string(status)).Inc()
}

func (s *DownloadService) trackDelay() time.Duration {
	lo, hi := s.opts.TrackDelayMin, s.opts.TrackDelayMax
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int64N(int64(hi-lo)+1))
}

// GetSession returns the current state of a session.
func (s *DownloadService) GetSession(ctx context.Context, id string) (*domain.DownloadSession, error) {
	return s.sessions.Get(ctx, id)
}

// ListSessions returns known sessions, oldest first. An empty status lists all of them.
func (s *DownloadService) ListSessions(ctx context.Context, status domain.SessionStatus) ([]*domain.DownloadSession, error) {
	if status == "" {
		return s.sessions.List(ctx)
	}
	return s.sessions.ListByStatus(ctx, status)
}

// CancelSession stops a running session. The session is marked cancelled at once;
// its worker stops before the next track.
func (s *DownloadService) CancelSession(ctx context.Context, id string) (*domain.DownloadSession, error) {
	if _, err := s.sessions.Get(ctx, id); err != nil {
		return nil, err
	}
	if !s.sessions.Deactivate(id) {
		return nil, errpkg.ErrSessionNotActive
	}

	session, err := s.sessions.Update(ctx, id, func(sess *domain.DownloadSession) error {
		sess.Status = domain.SessionStatusCancelled
		sess.Message = "Download cancelled"
		return nil
	})
	if errors.Is(err, errpkg.ErrSessionFinished) {
		return nil, errpkg.ErrSessionNotActive
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel session: %w", err)
	}

	metrics.SessionsFinished.WithLabelValues(string(domain.SessionStatusCancelled)).Inc()
	s.logger.Info("download cancelled", "session_id", id)
	return session, nil
}

// Shutdown stops accepting downloads, interrupts running ones and waits for their
// workers to exit or for ctx to expire.
func (s *DownloadService) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down download service")

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("download service shutdown completed")
		return nil
	case <-ctx.Done():
		s.logger.Warn("download service shutdown timed out")
		return ctx.Err()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
