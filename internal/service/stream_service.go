package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/veranemoloko/soundtrack-downloader/internal/metrics"
)

// passthroughHeaders are copied from the upstream audio response.
var passthroughHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Accept-Ranges",
	"ETag",
	"Last-Modified",
	"Cache-Control",
}

// streamDefaults fill headers the upstream left out.
var streamDefaults = map[string]string{
	"Content-Type":  "audio/mpeg",
	"Accept-Ranges": "bytes",
	"Cache-Control": "no-store",
}

// LinkResolver finds the audio file behind a track page.
type LinkResolver interface {
	ResolveAudioLink(ctx context.Context, trackURL string) (string, error)
}

// Opener performs a single upstream request and returns the response whatever its status.
type Opener interface {
	Open(ctx context.Context, rawURL string, header http.Header) (*http.Response, error)
}

// StreamResult is an upstream audio response ready to be relayed. The caller must
// close Body.
type StreamResult struct {
	Status int
	Header http.Header
	Body   io.ReadCloser
}

// StreamService relays track audio so players can seek with byte ranges.
type StreamService struct {
	links  LinkResolver
	opener Opener
	logger *slog.Logger
}

// NewStreamService creates a StreamService.
func NewStreamService(links LinkResolver, opener Opener, logger *slog.Logger) *StreamService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamService{links: links, opener: opener, logger: logger}
}

// Stream resolves pageURL to its audio file and opens it, forwarding rangeHeader.
// A 206 upstream status is kept; every other status is reported as 200.
func (s *StreamService) Stream(ctx context.Context, pageURL, rangeHeader string) (*StreamResult, error) {
	link, err := s.links.ResolveAudioLink(ctx, pageURL)
	if err != nil {
		metrics.StreamRequests.WithLabelValues("not_found").Inc()
		return nil, err
	}

	header := http.Header{}
	if rangeHeader != "" {
		header.Set("Range", rangeHeader)
	}

	resp, err := s.opener.Open(ctx, link, header)
	if err != nil {
		metrics.StreamRequests.WithLabelValues("upstream_error").Inc()
		s.logger.Error("stream upstream request failed", "url", link, "error", err)
		return nil, fmt.Errorf("open upstream audio: %w", err)
	}

	status := http.StatusOK
	if resp.StatusCode == http.StatusPartialContent {
		status = http.StatusPartialContent
	}
	metrics.StreamRequests.WithLabelValues(strconv.Itoa(status)).Inc()

	out := make(http.Header, len(passthroughHeaders))
	for _, h := range passthroughHeaders {
		if v := resp.Header.Get(h); v != "" {
			out.Set(h, v)
		}
	}
	for h, v := range streamDefaults {
		if out.Get(h) == "" {
			out.Set(h, v)
		}
	}

	s.logger.Debug("streaming track", "url", link, "status", status, "range", rangeHeader)
	return &StreamResult{Status: status, Header: out, Body: resp.Body}, nil
}
