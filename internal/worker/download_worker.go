package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/veranemoloko/soundtrack-downloader/internal/metrics"
	"github.com/veranemoloko/soundtrack-downloader/internal/storage"
)

// DefaultMinTrackBytes is the size a downloaded file must exceed to count as audio.
const DefaultMinTrackBytes = 1000

// ErrTrackTooSmall is returned when the downloaded body is too small to be audio,
// usually an error page served with a 200 status.
var ErrTrackTooSmall = errors.New("downloaded file is too small")

// Getter fetches a URL with retries and returns a 2xx response.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*http.Response, error)
}

// Options tunes a DownloadWorker. Zero values fall back to defaults.
type Options struct {
	// Timeout bounds a single track download including the body transfer.
	Timeout       time.Duration
	MinTrackBytes int64
	MaxFileSize   int64
}

// TrackResult describes a file written by DownloadTrack.
type TrackResult struct {
	FileName string
	Path     string
	Bytes    int64
	Duration time.Duration
	// Skipped is set when a complete file was already on disk and nothing was fetched.
	Skipped bool
}

// DownloadWorker streams audio files to disk.
type DownloadWorker struct {
	getter        Getter
	timeout       time.Duration
	minTrackBytes int64
	maxFileSize   int64
	logger        *slog.Logger
}

// NewDownloadWorker creates a new DownloadWorker that fetches files through getter.
func NewDownloadWorker(getter Getter, opts Options, logger *slog.Logger) *DownloadWorker {
	minBytes := opts.MinTrackBytes
	if minBytes <= 0 {
		minBytes = DefaultMinTrackBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DownloadWorker{
		getter:        getter,
		timeout:       opts.Timeout,
		minTrackBytes: minBytes,
		maxFileSize:   opts.MaxFileSize,
		logger:        logger,
	}
}

// DownloadTrack downloads audioURL into files under filename. A file already present
// and larger than the minimum track size is kept and reported as skipped. Files that
// end up no larger than the minimum are removed and reported as ErrTrackTooSmall.
func (w *DownloadWorker) DownloadTrack(ctx context.Context, audioURL string, files *storage.FileStorage, filename string) (TrackResult, error) {
	result := TrackResult{FileName: filename, Path: files.Path(filename)}
	start := time.Now()

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	if err := files.EnsureDir(); err != nil {
		return result, err
	}

	if files.FileExists(filename) {
		if size, err := files.GetFileSize(filename); err == nil && size > w.minTrackBytes {
			result.Bytes = size
			result.Skipped = true
			w.logger.Info("track already exists", "file", result.Path, "size", humanize.Bytes(uint64(size)))
			return result, nil
		}
	}

	resp, err := w.getter.Get(ctx, audioURL)
	if err != nil {
		w.logger.Error("download request failed",
			"url", audioURL,
			"error", err,
		)
		return result, fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()

	n, err := files.CopyFile(&contextReader{ctx: ctx, r: resp.Body}, filename, w.maxFileSize)
	result.Bytes = n
	result.Duration = time.Since(start)
	if err != nil {
		w.logger.Error("download failed",
			"url", audioURL,
			"file", filename,
			"error", err,
		)
		return result, fmt.Errorf("save %s: %w", filename, err)
	}

	if n <= w.minTrackBytes {
		if rmErr := files.Remove(filename); rmErr != nil {
			w.logger.Warn("failed to remove undersized file", "file", result.Path, "error", rmErr)
		}
		w.logger.Warn("download rejected",
			"url", audioURL,
			"file", filename,
			"size", humanize.Bytes(uint64(n)),
		)
		return result, fmt.Errorf("%w: %d bytes", ErrTrackTooSmall, n)
	}

	metrics.DownloadBytes.Add(float64(n))
	metrics.TrackDuration.Observe(result.Duration.Seconds())
	w.logger.Info("track saved",
		"file", result.Path,
		"size", humanize.Bytes(uint64(n)),
		"duration", result.Duration.Round(time.Millisecond),
	)
	return result, nil
}

// contextReader stops a copy as soon as ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
