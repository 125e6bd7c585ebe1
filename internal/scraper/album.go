package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/veranemoloko/soundtrack-downloader/internal/domain"
)

// titleNoise strips the site's boilerplate from a page title.
var titleNoise = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*-\s*Download.*$`),
	regexp.MustCompile(`(?i)\s*-\s*KHInsider.*$`),
	regexp.MustCompile(`(?i)\s*MP3.*$`),
	regexp.MustCompile(`(?i)\s*\([^)]*download[^)]*\)`),
}

var (
	iconSrcKeywords = []string{"album", "cover", "artwork", "thumb"}
	iconAltKeywords = []string{"album", "cover", "artwork"}
)

// Album extracts the album record from an album page. id is used as-is for the record
// and as the last-resort title source.
func (p *Parser) Album(doc *goquery.Document, id string) domain.AlbumDetail {
	tracks := p.Tracks(doc)
	return domain.AlbumDetail{
		ID:          id,
		Title:       Title(doc, id),
		Icon:        p.AlbumIcon(doc),
		Tracks:      tracks,
		TotalTracks: len(tracks),
	}
}

// Title resolves the album title: the cleaned document title, then the first
// meaningful h1, h2 or h3, then a title-cased form of the fallback id.
func Title(doc *goquery.Document, fallbackID string) string {
	if t := pageTitle(doc); t != "" {
		return t
	}

	for _, tag := range []string{"h1", "h2", "h3"} {
		el := doc.Find(tag).First()
		if el.Length() == 0 {
			continue
		}
		if t := text(el); runeLen(t) > 3 {
			return t
		}
	}

	words := strings.NewReplacer("-", " ", "_", " ").Replace(fallbackID)
	return cases.Title(language.English).String(words)
}

// pageTitle returns "" for blocked or error pages.
func pageTitle(doc *goquery.Document) string {
	t := text(doc.Find("title").First())
	if t == "" || strings.Contains(t, "403") || strings.Contains(strings.ToLower(t), "error") {
		return ""
	}
	for _, re := range titleNoise {
		t = re.ReplaceAllString(t, "")
	}
	return strings.TrimSpace(t)
}

// AlbumIcon returns the first image that looks like cover art, or "".
func (p *Parser) AlbumIcon(doc *goquery.Document) string {
	var icon string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := img.AttrOr("src", "")
		alt := strings.ToLower(img.AttrOr("alt", ""))
		if !containsAny(strings.ToLower(src), iconSrcKeywords) && !containsAny(alt, iconAltKeywords) {
			return true
		}
		icon = p.imageURL(src)
		return icon == ""
	})
	return icon
}

// Tracks reads the song list table. Ordinals are assigned 1..N in row order over
// accepted rows only.
func (p *Parser) Tracks(doc *goquery.Document) []domain.Track {
	tracks := []domain.Track{}
	doc.Find("table#songlist").First().Find("tr").Each(func(_ int, row *goquery.Selection) {
		switch row.AttrOr("id", "") {
		case "songlist_header", "songlist_footer":
			return
		}

		link := row.Find("td.clickable-row").First().Find("a[href]").First()
		if link.Length() == 0 {
			return
		}

		name := text(link)
		href := p.absolute(link.AttrOr("href", ""))
		if name == "" || href == "" {
			return
		}

		tracks = append(tracks, domain.Track{
			Ordinal: len(tracks) + 1,
			Name:    name,
			URL:     href,
		})
	})
	return tracks
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
