// Package catalog resolves site pages into albums, tracks and audio links.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	errpkg "github.com/veranemoloko/soundtrack-downloader/internal/errors"
	"github.com/veranemoloko/soundtrack-downloader/internal/domain"
	"github.com/veranemoloko/soundtrack-downloader/internal/fetch"
	"github.com/veranemoloko/soundtrack-downloader/internal/scraper"
)

// maxPageBytes bounds how much of an HTML page is read.
const maxPageBytes = 8 << 20

// Getter fetches a page with the retry policy of the fetch layer.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*http.Response, error)
}

// Client combines fetching and extraction. It keeps no cache: every call hits the site.
type Client struct {
	getter Getter
	parser *scraper.Parser
	logger *slog.Logger
}

// NewClient creates a catalog client.
func NewClient(getter Getter, parser *scraper.Parser, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		getter: getter,
		parser: parser,
		logger: logger.With("component", "catalog"),
	}
}

// Search runs a site search. Failures are logged and yield an empty result.
func (c *Client) Search(ctx context.Context, query string) []domain.AlbumSummary {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.AlbumSummary{}
	}

	searchURL := c.parser.BaseURL() + "/search?" + url.Values{"search": {query}}.Encode()
	doc, err := c.page(ctx, searchURL)
	if err != nil {
		c.logger.Warn("Search failed", "query", query, "error", err)
		return []domain.AlbumSummary{}
	}

	results := c.parser.SearchResults(doc)
	c.logger.Debug("Search completed", "query", query, "results", len(results))
	return results
}

// HomeSections scrapes the home page. Failures yield empty sections.
func (c *Client) HomeSections(ctx context.Context) domain.HomeSections {
	doc, err := c.page(ctx, c.parser.BaseURL()+"/")
	if err != nil {
		c.logger.Warn("Home page fetch failed", "error", err)
		return domain.HomeSections{
			Popular: []domain.AlbumSummary{},
			Latest:  []domain.AlbumSummary{},
		}
	}
	return c.parser.HomeSections(doc, scraper.DefaultHomeItems)
}

// AlbumDetail fetches an album by slug or by full album page URL.
// Every failure is reported as errors.ErrAlbumNotFound.
func (c *Client) AlbumDetail(ctx context.Context, idOrURL string) (*domain.AlbumDetail, error) {
	idOrURL = strings.TrimSpace(idOrURL)
	if idOrURL == "" {
		return nil, errpkg.ErrAlbumNotFound
	}

	pageURL, albumID := c.albumLocation(idOrURL)
	doc, err := c.page(ctx, pageURL)
	if err != nil {
		c.logger.Warn("Album fetch failed", "album_id", albumID, "url", pageURL, "error", err)
		return nil, fmt.Errorf("%w: %s", errpkg.ErrAlbumNotFound, albumID)
	}

	album := c.parser.Album(doc, albumID)
	c.logger.Debug("Album resolved", "album_id", albumID, "title", album.Title, "tracks", album.TotalTracks)
	return &album, nil
}

// albumLocation maps an id or URL to the page URL and the album id.
func (c *Client) albumLocation(idOrURL string) (pageURL, albumID string) {
	if strings.HasPrefix(strings.ToLower(idOrURL), "http") {
		return idOrURL, scraper.AlbumIDFromURL(idOrURL)
	}
	return c.parser.AlbumURL(idOrURL), idOrURL
}

// ResolveAudioLink finds the direct audio URL of a track page.
func (c *Client) ResolveAudioLink(ctx context.Context, trackURL string) (string, error) {
	doc, err := c.page(ctx, trackURL)
	if err != nil {
		c.logger.Warn("Track page fetch failed", "url", trackURL, "error", err)
		return "", fmt.Errorf("%w: %w", errpkg.ErrAudioLinkNotFound, err)
	}

	link := c.parser.AudioLink(doc)
	if link == "" {
		return "", errpkg.ErrAudioLinkNotFound
	}
	return link, nil
}

func (c *Client) page(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := c.getter.Get(ctx, pageURL)
	if err != nil {
		if fetch.IsForbidden(err) {
			c.logger.Warn("Site refused the request with every identity", "url", pageURL)
		}
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := scraper.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// IsNotFound reports whether err means the album or audio link could not be resolved.
func IsNotFound(err error) bool {
	return errors.Is(err, errpkg.ErrAlbumNotFound) || errors.Is(err, errpkg.ErrAudioLinkNotFound)
}
