// Package scraper turns site HTML into domain records.
//
// Every extractor is an ordered cascade of strategies, from the most specific markup
// to loose whole-document scans. Extractors never fail on unexpected markup: they
// return partial or empty results instead.
package scraper

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/veranemoloko/soundtrack-downloader/internal/domain"
)

const (
	// MaxSearchResults caps the number of search results returned.
	MaxSearchResults = 20
	// DefaultHomeItems caps each home page section.
	DefaultHomeItems = 24

	albumPathMarker = "/game-soundtracks/album/"
	albumIDMarker   = "/album/"
)

// Parser extracts records from documents served by one site.
type Parser struct {
	base       *url.URL
	mediaHosts []string
}

// New creates a Parser resolving relative links against baseURL.
// mediaHosts lists third-party domains that serve audio files.
func New(baseURL string, mediaHosts []string) (*Parser, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute: %q", baseURL)
	}

	hosts := make([]string, 0, len(mediaHosts))
	for _, h := range mediaHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}

	return &Parser{base: base, mediaHosts: hosts}, nil
}

// BaseURL returns the site root without a trailing slash.
func (p *Parser) BaseURL() string {
	return p.base.String()
}

// AlbumURL returns the album page URL for an album id.
func (p *Parser) AlbumURL(id string) string {
	return p.BaseURL() + albumPathMarker + url.PathEscape(id)
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(r)
}

// absolute resolves ref against the site root.
func (p *Parser) absolute(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return p.base.ResolveReference(u).String()
}

// imageURL accepts only root-relative or absolute sources.
func (p *Parser) imageURL(src string) string {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(src, "/") || strings.HasPrefix(src, "http") {
		return p.absolute(src)
	}
	return ""
}

// AlbumIDFromURL returns the album slug of an album URL: the text after the last
// "/album/" marker, or the last path segment when the marker is absent.
func AlbumIDFromURL(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		raw = u.Path
	}
	raw = strings.TrimRight(raw, "/")

	if i := strings.LastIndex(raw, albumIDMarker); i >= 0 {
		raw = raw[i+len(albumIDMarker):]
	} else if i := strings.LastIndex(raw, "/"); i >= 0 {
		raw = raw[i+1:]
	}

	if id, err := url.PathUnescape(raw); err == nil {
		return id
	}
	return raw
}

func isAlbumHref(href string) bool {
	return strings.Contains(href, albumPathMarker)
}

// text collapses whitespace the way a browser renders it.
func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// albumFromAnchor builds a summary from an album-shaped anchor.
// Returns false when the anchor is not an album link or has no text.
func (p *Parser) albumFromAnchor(a *goquery.Selection) (domain.AlbumSummary, bool) {
	href, _ := a.Attr("href")
	if !isAlbumHref(href) {
		return domain.AlbumSummary{}, false
	}

	name := text(a)
	if name == "" {
		return domain.AlbumSummary{}, false
	}

	abs := p.absolute(href)
	return domain.AlbumSummary{
		ID:   AlbumIDFromURL(abs),
		Name: name,
		URL:  abs,
		Type: domain.ItemTypeAlbum,
	}, true
}

// firstImage returns the first usable image source inside any of the selections.
func (p *Parser) firstImage(scopes ...*goquery.Selection) string {
	for _, scope := range scopes {
		if scope == nil || scope.Length() == 0 {
			continue
		}
		if src, ok := scope.Find("img[src]").First().Attr("src"); ok {
			if icon := p.imageURL(src); icon != "" {
				return icon
			}
		}
	}
	return ""
}

// dedupe drops repeated ids, keeping first-seen order, and caps the result.
func dedupe(items []domain.AlbumSummary, limit int) []domain.AlbumSummary {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.AlbumSummary, 0, min(len(items), limit))
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
		if len(out) >= limit {
			break
		}
	}
	return out
}
